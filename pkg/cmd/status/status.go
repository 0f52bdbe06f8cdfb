package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxgio92/stackflow/internal/settings"
	"github.com/maxgio92/stackflow/pkg/cmd/common"
)

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "status",
		Short:             fmt.Sprintf("Check the %s sampler status", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Run:               o.Run,
	}

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) {
	pid, err := common.ReadPidFile(settings.PidFile)
	if err == nil && common.IsRunning(pid) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is running (PID %d)\n", settings.CmdName, pid)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is not running\n", settings.CmdName)
}
