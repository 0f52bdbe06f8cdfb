package healthcheck

import (
	"context"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrAttachFailed = errors.New("sampler failed to attach to the target")
	ErrNotSocket    = errors.New("path exists but is not a Unix socket")
)

// Wait polls the health check socket at socketPath until the sampler
// publishes its attach outcome. It returns ErrAttachFailed if the attach
// failed, or the context error.
func Wait(ctx context.Context, socketPath string, retryInterval time.Duration) error {
	for {
		done, err := probe(socketPath, retryInterval)
		if done || err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "timeout waiting for the sampler")
		case <-time.After(retryInterval):
		}
	}
}

// probe makes one attempt at reading the attach outcome.
func probe(socketPath string, timeout time.Duration) (bool, error) {
	info, err := os.Stat(socketPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "error checking socket")
	}
	if info.Mode()&os.ModeSocket == 0 {
		return false, errors.Wrap(ErrNotSocket, socketPath)
	}

	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		if errors.Is(err, syscall.EACCES) {
			return false, errors.Wrap(err, "failed connecting")
		}
		return false, nil
	}
	defer conn.Close()

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(timeout))
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return false, nil
	}

	switch buf[0] {
	case ReadyMsg:
		return true, nil
	case FailedMsg:
		return true, ErrAttachFailed
	default:
		return false, nil
	}
}
