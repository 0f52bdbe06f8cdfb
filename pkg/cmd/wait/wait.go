package wait

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/stackflow/internal/settings"
	"github.com/maxgio92/stackflow/pkg/healthcheck"
)

const CmdName = "wait"

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Wait for the %s sampler to attach to its target", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}

	cmd.Flags().StringVarP(&o.socketPath, "socket-path", "s", o.socketPath, fmt.Sprintf("Path to the %s socket file", settings.CmdName))
	cmd.Flags().DurationVar(&o.timeout, "timeout", o.timeout, "How long to wait for the sampler")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if err := o.InitLogger(cmd, CmdName); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(o.Ctx, o.timeout)
	defer cancel()

	o.Logger.Info().Str("socket", o.socketPath).Msg("waiting for the sampler to attach")
	if err := healthcheck.Wait(ctx, o.socketPath, o.retryInterval); err != nil {
		return errors.Wrap(err, "sampler is not ready")
	}
	o.Logger.Info().Msg("sampler is attached")

	return nil
}
