package sampling_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stackflow/pkg/process"
	"github.com/maxgio92/stackflow/pkg/sampling"
)

const testPID = 4242

var testProcess = process.Process{PID: testPID, Name: "notepad"}

// mockBackend implements Debugger, ThreadController and SymbolResolver.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Attach(_ context.Context, pid int) error {
	return m.Called(pid).Error(0)
}

func (m *mockBackend) WaitForAttach(_ context.Context) error {
	return m.Called().Error(0)
}

func (m *mockBackend) Detach() error {
	return m.Called().Error(0)
}

func (m *mockBackend) ThreadIDs() ([]uint32, error) {
	args := m.Called()
	tids, _ := args.Get(0).([]uint32)
	return tids, args.Error(1)
}

func (m *mockBackend) CaptureStack(tid uint32) ([]sampling.RawStackFrame, error) {
	args := m.Called(tid)
	frames, _ := args.Get(0).([]sampling.RawStackFrame)
	return frames, args.Error(1)
}

func (m *mockBackend) NameByOffset(ip uint64) (string, uint64, error) {
	args := m.Called(ip)
	return args.String(0), args.Get(1).(uint64), args.Error(2)
}

func (m *mockBackend) ModuleByOffset(ip uint64) (uint32, uint64, error) {
	args := m.Called(ip)
	return args.Get(0).(uint32), args.Get(1).(uint64), args.Error(2)
}

func (m *mockBackend) ModuleParameters(index uint32) (sampling.ModuleParameters, error) {
	args := m.Called(index)
	return args.Get(0).(sampling.ModuleParameters), args.Error(1)
}

// debuggerOnly lacks the thread and symbol capabilities.
type debuggerOnly struct {
	detached bool
}

func (d *debuggerOnly) Attach(context.Context, int) error    { return nil }
func (d *debuggerOnly) WaitForAttach(context.Context) error { return nil }
func (d *debuggerOnly) Detach() error {
	d.detached = true
	return nil
}

// blockingBackend never completes the attach handshake on its own.
type blockingBackend struct {
	mockBackend
}

func (b *blockingBackend) WaitForAttach(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingBackend) Detach() error { return nil }

func factoryOf(d sampling.Debugger) sampling.BackendFactory {
	return func() (sampling.Debugger, error) {
		return d, nil
	}
}

func testLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
}

func newAttachedClient(t *testing.T, m *mockBackend, opts ...sampling.ClientOpt) *sampling.Client {
	t.Helper()
	m.On("Attach", testPID).Return(nil).Once()
	m.On("WaitForAttach").Return(nil).Once()

	opts = append([]sampling.ClientOpt{
		sampling.WithClientBackend(factoryOf(m)),
		sampling.WithClientLogger(testLogger(t)),
	}, opts...)
	c := sampling.NewClient(context.Background(), testProcess, opts...)
	require.True(t, c.IsValid())
	require.NoError(t, c.Err())

	return c
}

func frames(ips ...uint64) []sampling.RawStackFrame {
	out := make([]sampling.RawStackFrame, 0, len(ips))
	for _, ip := range ips {
		out = append(out, sampling.RawStackFrame{InstructionPointer: ip})
	}
	return out
}
