package testutil

import (
	"bufio"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	// FixtureName is the file name of the fixture binary.
	FixtureName = "fixture"
	// FixtureSymbol is a function of the fixture that is never inlined.
	FixtureSymbol = "main.spin"
)

// BuildFixture compiles the fixture program into a temporary directory and
// returns the path of the binary. Unlike test binaries, the fixture keeps
// its symbol table. The test is skipped when no go command is available.
func BuildFixture(t *testing.T) string {
	t.Helper()

	gobin, err := exec.LookPath("go")
	if err != nil {
		t.Skipf("go command not found: %v", err)
	}

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	out := filepath.Join(t.TempDir(), FixtureName)
	cmd := exec.Command(gobin, "build", "-buildmode=exe", "-o", out, "./testdata/fixture")
	cmd.Dir = filepath.Dir(file)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "building fixture: %s", string(output))

	return out
}

// StartFixture builds and runs the fixture, and returns once it has
// started. The process is killed and reaped at cleanup unless the test
// already waited for it.
func StartFixture(t *testing.T) (*exec.Cmd, string) {
	t.Helper()

	bin := BuildFixture(t)

	cmd := exec.Command(bin)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		if cmd.ProcessState == nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
	})

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ready\n", line)

	return cmd, bin
}
