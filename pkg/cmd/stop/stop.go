package stop

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxgio92/stackflow/internal/settings"
	"github.com/maxgio92/stackflow/pkg/cmd/common"
)

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "stop",
		Short:             fmt.Sprintf("Stop the %s sampler daemon", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Run:               o.Run,
	}

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()

	pid, err := common.ReadPidFile(settings.PidFile)
	if err != nil {
		fmt.Fprintf(out, "%s not running or PID file not found\n", settings.CmdName)
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Fprintln(out, "Process not found")
		return
	}

	// The sampler detaches from its target on SIGTERM.
	if err = process.Signal(syscall.SIGTERM); err != nil {
		fmt.Fprintf(out, "Failed to stop daemon: %v\n", err)
		return
	}

	// Wait for process to stop.
	for i := 0; i < 50; i++ {
		if !common.IsRunning(pid) {
			fmt.Fprintf(out, "%s stopped (PID %d)\n", settings.CmdName, pid)
			os.Remove(settings.PidFile)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Force kill if still running.
	process.Kill()
	os.Remove(settings.PidFile)
	fmt.Fprintf(out, "%s force killed (PID %d)\n", settings.CmdName, pid)
}
