package ps

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/stackflow/pkg/process"
)

const CmdName = "ps"

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             "List the processes that can be sampled",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}
	cmd.Flags().StringVarP(&o.filter, "filter", "f", "", "Show only processes whose name contains this string")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if err := o.InitLogger(cmd, CmdName); err != nil {
		return err
	}

	list, err := process.List(o.Ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list processes")
	}
	list = process.Filter(list, o.filter)
	o.Logger.Debug().Int("count", len(list)).Msg("listed processes")

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNAME")
	for _, p := range list {
		fmt.Fprintf(tw, "%d\t%s\n", p.PID, p.Name)
	}

	return tw.Flush()
}
