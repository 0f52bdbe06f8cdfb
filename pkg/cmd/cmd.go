package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/stackflow/internal/settings"
	"github.com/maxgio92/stackflow/pkg/cmd/ps"
	"github.com/maxgio92/stackflow/pkg/cmd/run"
	"github.com/maxgio92/stackflow/pkg/cmd/status"
	"github.com/maxgio92/stackflow/pkg/cmd/stop"
	"github.com/maxgio92/stackflow/pkg/cmd/wait"
)

const logLevelInfo = "info"

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   settings.CmdName,
		Short: fmt.Sprintf("%s is a live sampling profiler", settings.CmdName),
		Long: fmt.Sprintf(`
%s attaches to a running process without stopping it, periodically captures
the call stacks of all its threads and resolves them into symbols and modules.
`, settings.CmdName),
		DisableAutoGenTag: true,
	}
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", logLevelInfo, "Log level (trace, debug, info, warn, error, fatal, panic)")

	cmd.AddCommand(run.NewCommand(run.NewOptions(
		run.WithContext(o.Ctx),
		run.WithLogger(o.Logger),
	)))
	cmd.AddCommand(ps.NewCommand(ps.NewOptions(
		ps.WithContext(o.Ctx),
		ps.WithLogger(o.Logger),
	)))
	cmd.AddCommand(status.NewCommand(status.NewOptions()))
	cmd.AddCommand(stop.NewCommand(stop.NewOptions()))
	cmd.AddCommand(wait.NewCommand(wait.NewOptions(
		wait.WithContext(o.Ctx),
		wait.WithLogger(o.Logger),
	)))

	return cmd
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(
		log.ConsoleWriter{Out: os.Stderr},
	).With().Timestamp().Logger()

	opts := NewOptions(
		WithContext(ctx),
		WithLogger(logger),
	)

	if err := NewCommand(opts).Execute(); err != nil {
		cancel()
		os.Exit(1)
	}
}
