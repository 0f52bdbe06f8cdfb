//go:build linux

package procdbg_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/maxgio92/stackflow/internal/testutil"
	"github.com/maxgio92/stackflow/pkg/procdbg"
	"github.com/maxgio92/stackflow/pkg/process"
	"github.com/maxgio92/stackflow/pkg/sampling"
	"github.com/maxgio92/stackflow/pkg/symtable"
)

func attach(t *testing.T, pid int) *procdbg.Debugger {
	t.Helper()

	d, err := procdbg.New(
		procdbg.WithAttachBackoff(time.Second),
		procdbg.WithRefreshInterval(0),
		procdbg.WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
	)
	require.NoError(t, err)
	require.NoError(t, d.Attach(context.Background(), pid))
	if err := d.WaitForAttach(context.Background()); err != nil {
		t.Skipf("process memory is not readable here: %v", err)
	}
	t.Cleanup(func() { _ = d.Detach() })

	return d
}

// fixtureSymbol returns the link address of the fixture's known function.
// The fixture is not position independent, so it is also its runtime
// address.
func fixtureSymbol(t *testing.T, bin string) uint64 {
	t.Helper()

	tab, err := symtable.Load(bin)
	require.NoError(t, err)
	for _, s := range tab.Symbols() {
		if s.Name == testutil.FixtureSymbol {
			return s.Value
		}
	}
	require.FailNow(t, "fixture symbol not found")

	return 0
}

func TestDebugger_Fixture(t *testing.T) {
	cmd, bin := testutil.StartFixture(t)
	pid := cmd.Process.Pid
	d := attach(t, pid)

	tids, err := d.ThreadIDs()
	require.NoError(t, err)
	require.Contains(t, tids, uint32(pid))

	ip := fixtureSymbol(t, bin) + 4

	index, base, err := d.ModuleByOffset(ip)
	require.NoError(t, err)
	require.LessOrEqual(t, base, ip)

	params, err := d.ModuleParameters(index)
	require.NoError(t, err)
	require.Equal(t, base, params.Base)
	require.Greater(t, base+params.Size, ip)
	require.Equal(t, testutil.FixtureName, params.Name)

	name, displacement, err := d.NameByOffset(ip)
	require.NoError(t, err)
	require.Equal(t, testutil.FixtureSymbol, name)
	require.Equal(t, uint64(4), displacement)
}

func TestDebugger_TargetReaped(t *testing.T) {
	cmd, _ := testutil.StartFixture(t)
	d := attach(t, cmd.Process.Pid)

	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()

	_, err := d.ThreadIDs()
	require.ErrorIs(t, err, sampling.ErrTargetExited)
}

func TestDebugger_TargetZombie(t *testing.T) {
	cmd, _ := testutil.StartFixture(t)
	d := attach(t, cmd.Process.Pid)

	// Not reaped: the process stays a zombie until cleanup.
	require.NoError(t, cmd.Process.Kill())

	require.Eventually(t, func() bool {
		_, err := d.ThreadIDs()
		return errors.Is(err, sampling.ErrTargetExited)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestClient_StopsWhenTargetExits(t *testing.T) {
	defer goleak.VerifyNone(t)

	cmd, _ := testutil.StartFixture(t)
	p := process.Process{PID: cmd.Process.Pid, Name: testutil.FixtureName}

	client := sampling.NewClient(context.Background(), p,
		sampling.WithClientBackend(procdbg.Factory(procdbg.WithAttachBackoff(time.Second))),
		sampling.WithClientLogger(zerolog.New(zerolog.NewTestWriter(t))),
	)
	if !client.IsValid() {
		t.Skipf("process memory is not readable here: %v", client.Err())
	}

	q := sampling.NewOutputQueue(1024)
	task := sampling.NewTask(sampling.NewSampler(client, sampling.NewSession(p)), q,
		sampling.WithTaskInterval(5*time.Millisecond),
	)
	require.NoError(t, task.Begin(context.Background()))
	require.Eventually(t, func() bool { return task.Passes() >= 2 }, 5*time.Second, time.Millisecond)

	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sampling did not stop after the target exited")
	}
	require.Equal(t, sampling.TaskStopped, task.State())
	require.False(t, client.IsValid())
	require.ErrorIs(t, client.Err(), sampling.ErrTargetExited)
}

func TestDebugger_NotAttached(t *testing.T) {
	d, err := procdbg.New()
	require.NoError(t, err)

	_, err = d.ThreadIDs()
	require.ErrorIs(t, err, procdbg.ErrNotAttached)
	_, err = d.CaptureStack(1)
	require.ErrorIs(t, err, procdbg.ErrNotAttached)
	require.ErrorIs(t, d.WaitForAttach(context.Background()), procdbg.ErrNotAttached)
	require.ErrorIs(t, d.Detach(), procdbg.ErrNotAttached)
}

func TestDebugger_AttachMissingProcess(t *testing.T) {
	d, err := procdbg.New()
	require.NoError(t, err)

	require.ErrorIs(t, d.Attach(context.Background(), 1<<30), sampling.ErrTargetExited)
}

func TestFactory(t *testing.T) {
	debugger, err := procdbg.Factory(procdbg.WithMaxDepth(16))()
	require.NoError(t, err)
	require.NotNil(t, debugger)
}
