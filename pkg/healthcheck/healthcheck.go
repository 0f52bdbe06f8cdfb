package healthcheck

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	log "github.com/rs/zerolog"
)

const (
	// ReadyMsg is sent once the target process is attached.
	ReadyMsg = 0x01
	// FailedMsg is sent when attaching to the target process failed.
	FailedMsg = 0x02
)

type HealthCheckServer struct {
	ln         net.Listener
	readyCh    chan struct{}
	once       sync.Once
	msg        byte
	socketPath string
	logger     log.Logger
}

// NewHealthCheckServer creates a new health check server.
func NewHealthCheckServer(socketPath string, logger log.Logger) *HealthCheckServer {
	l := logger.With().Str("component", "healthcheck").Logger()
	return &HealthCheckServer{
		socketPath: socketPath,
		readyCh:    make(chan struct{}),
		logger:     l,
	}
}

// InitializeListener starts the UDS listener for accepting connections.
func (s *HealthCheckServer) InitializeListener(ctx context.Context) error {
	// Remove socket if it already exists.
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errors.Wrap(err, "failed to listen on UDS")
	}
	s.ln = ln

	go s.acceptConnections(ctx)

	return nil
}

// NotifyAttached marks the sampler as attached to its target.
func (s *HealthCheckServer) NotifyAttached() {
	s.notify(ReadyMsg)
}

// NotifyAttachFailed reports to waiting clients that the attach failed.
func (s *HealthCheckServer) NotifyAttachFailed() {
	s.notify(FailedMsg)
}

// notify publishes the attach outcome. Only the first outcome counts.
func (s *HealthCheckServer) notify(msg byte) {
	s.once.Do(func() {
		s.logger.Debug().Uint8("msg", msg).Msg("publishing attach outcome")
		s.msg = msg
		close(s.readyCh)
	})
}

// ShutdownListener gracefully shuts down the listener and removes the socket.
func (s *HealthCheckServer) ShutdownListener() error {
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("error closing listener")
		}
	}

	if err := os.Remove(s.socketPath); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug().Err(err).Msgf("error removing socket")
			return err
		}
		s.logger.Debug().Msg("ignoring removing socket file, as it is already removed")
	}

	return nil
}

// acceptConnections listens for incoming connections and handles them.
func (s *HealthCheckServer) acceptConnections(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Msg("stopping accepting connections")
			return
		default:
			conn, err := s.ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					s.logger.Debug().Msg("ignoring accepting connection as it is closed")
					return
				}
				s.logger.Warn().Err(err).Msg("accept error")
				continue
			}

			go s.processConnection(ctx, conn)
		}
	}
}

// processConnection answers with the attach outcome once it is known.
func (s *HealthCheckServer) processConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	select {
	case <-s.readyCh:
		if !s.isConnectionAlive(conn) {
			s.logger.Debug().Msg("connection is closed")
			return
		}
		if err := s.safeWrite(conn, []byte{s.msg}); err != nil {
			if !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				s.logger.Debug().Err(err).Msg("failed to write")
			}
		}
	case <-ctx.Done():
		s.logger.Debug().Msg("ignoring sending attach outcome as context is canceled")
		return
	}
}

func (s *HealthCheckServer) isConnectionAlive(conn net.Conn) bool {
	// Decrease timeout to read fast.
	conn.SetReadDeadline(time.Now())
	if _, err := conn.Read([]byte{}); err == io.EOF {
		s.logger.Debug().Err(err).Msg("cannot write attach outcome: connection is already closed")
		conn.Close()

		return false
	}

	conn.SetReadDeadline(time.Time{})
	return true
}

func (s *HealthCheckServer) safeWrite(conn net.Conn, data []byte) error {
	_, err := conn.Write(data)
	if err != nil {
		switch {
		case errors.Is(err, syscall.EPIPE):
			conn.Close()
			return errors.Wrap(err, "peer closed the connection")
		case errors.Is(err, syscall.ECONNRESET):
			conn.Close()
			return errors.Wrap(err, "peer reset the connection")
		default:
			return errors.Wrap(err, "failed to write")
		}
	}
	return nil
}
