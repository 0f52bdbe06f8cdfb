package run

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/aquasecurity/libbpfgo/helpers"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maxgio92/stackflow/internal/output"
	"github.com/maxgio92/stackflow/internal/settings"
	"github.com/maxgio92/stackflow/pkg/cmd/common"
	"github.com/maxgio92/stackflow/pkg/healthcheck"
	"github.com/maxgio92/stackflow/pkg/procdbg"
	"github.com/maxgio92/stackflow/pkg/process"
	"github.com/maxgio92/stackflow/pkg/render"
	"github.com/maxgio92/stackflow/pkg/repository"
	"github.com/maxgio92/stackflow/pkg/sampling"
)

const CmdName = "run"

var ErrNoTarget = errors.New("either --pid or --name is required")

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Sample the call stacks of a running process",
		Long: fmt.Sprintf(`
%s attaches to the target process, selected by PID or by name, and samples the
call stacks of all its threads until interrupted. Each sample is symbolized and
printed as folded stacks, one line per thread.
`, CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}

	cmd.Flags().IntVar(&o.pid, "pid", o.pid, "PID of the process to sample")
	cmd.Flags().StringVarP(&o.name, "name", "n", "", "Name of the process to sample")

	cmd.Flags().DurationVar(&o.interval, "interval", o.interval, "Pause between two sampling passes")
	cmd.Flags().IntVar(&o.queueSize, "queue-size", o.queueSize, "Capacity of the sample output queue")
	cmd.Flags().DurationVar(&o.attachTimeout, "attach-timeout", o.attachTimeout, "Timeout of the attach handshake (0 waits forever)")
	cmd.Flags().IntVar(&o.maxDepth, "max-depth", o.maxDepth, "Maximum number of frames captured per thread")
	cmd.Flags().DurationVar(&o.duration, "duration", 0, "Stop sampling after this duration (0 runs until interrupted)")

	cmd.Flags().StringVarP(&o.output, "output", "o", o.output, fmt.Sprintf("Output format (%s, %s, %s)", outputFolded, outputSymbols, outputNone))
	cmd.Flags().StringVar(&o.symExcludePattern, "exclude", "", "Regex pattern to exclude symbol names from the symbols output")
	cmd.Flags().StringVar(&o.symIncludePattern, "include", "", "Regex pattern to include symbol names in the symbols output")

	cmd.Flags().StringVar(&o.metricsAddress, "metrics-address", "", "Address to serve Prometheus metrics on (disabled when empty)")
	cmd.Flags().StringVarP(&o.socketPath, "socket-path", "s", o.socketPath, "Path to the health check socket file")

	cmd.Flags().BoolVarP(&o.detach, "detach", "d", false, fmt.Sprintf("Run %s as daemon", settings.CmdName))
	cmd.Flags().BoolVar(&o.report, "report", false, fmt.Sprintf("Generate report (as %s)", settings.ReportFile))
	cmd.Flags().BoolVar(&o.status, "status", false, "Periodically print a status of the sampling")

	cmd.MarkFlagsMutuallyExclusive("pid", "name")

	return cmd
}

func (o *Options) validate() error {
	if o.pid <= 0 && o.name == "" {
		return ErrNoTarget
	}
	switch o.output {
	case outputFolded, outputSymbols, outputNone:
	default:
		return errors.Errorf("unknown output format %q", o.output)
	}

	return nil
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if err := o.validate(); err != nil {
		return err
	}
	if err := o.InitLogger(cmd, CmdName); err != nil {
		return err
	}
	if o.detach {
		return o.daemonize()
	}

	if err := common.WritePidFile(settings.PidFile, os.Getpid()); err != nil {
		o.Logger.Warn().Err(err).Msg("failed to store PID file")
	}
	defer os.Remove(settings.PidFile)

	o.logOSInfo()

	filter, err := render.NewFilter(o.symIncludePattern, o.symExcludePattern)
	if err != nil {
		return err
	}

	target, err := o.target()
	if err != nil {
		return err
	}

	hc := healthcheck.NewHealthCheckServer(o.socketPath, o.Logger)
	if err := hc.InitializeListener(o.Ctx); err != nil {
		o.Logger.Warn().Err(err).Msg("health check disabled")
	} else {
		defer hc.ShutdownListener()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := sampling.NewMetrics(reg)

	client := sampling.NewClient(o.Ctx, target,
		sampling.WithClientBackend(procdbg.Factory(
			procdbg.WithMaxDepth(o.maxDepth),
			procdbg.WithLogger(o.Logger),
		)),
		sampling.WithClientAttachTimeout(o.attachTimeout),
		sampling.WithClientMetrics(metrics),
		sampling.WithClientLogger(o.Logger),
	)
	if !client.IsValid() {
		hc.NotifyAttachFailed()
		return errors.Wrapf(client.Err(), "failed to attach to %s", target)
	}
	hc.NotifyAttached()
	o.Logger.Info().Str("target", target.String()).Msg("attached")

	session := sampling.NewSession(target)
	queue := sampling.NewOutputQueue(o.queueSize)
	sampler := sampling.NewSampler(client, session)
	task := sampling.NewTask(sampler, queue,
		sampling.WithTaskInterval(o.interval),
		sampling.WithTaskLogger(o.Logger),
	)

	start := time.Now()
	if err := o.sample(session, sampler, task, queue, reg); err != nil {
		return err
	}
	elapsed := time.Since(start)
	if errors.Is(client.Err(), sampling.ErrTargetExited) {
		o.Logger.Info().Str("target", target.String()).Msg("target exited")
	}
	o.Logger.Info().Uint64("passes", task.Passes()).Dur("elapsed", elapsed).Msg("sampling completed")

	if o.output == outputSymbols {
		if err := render.WriteSymbols(cmd.OutOrStdout(), session, filter); err != nil {
			return err
		}
	}
	if o.report {
		return o.writeReport(session, task.Passes(), elapsed)
	}

	return nil
}

// sample runs the sampling task as producer and the renderer as consumer
// of the output queue, until the context is done or the target goes away.
func (o *Options) sample(session *sampling.Session, sampler *sampling.Sampler, task *sampling.Task, queue *sampling.OutputQueue, reg *prometheus.Registry) error {
	ctx := o.Ctx
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)
	if err := task.Begin(ctx); err != nil {
		return errors.Wrap(err, "failed to start sampling")
	}

	// Producer: the queue is closed once the task stops, so that the
	// consumer drains the remaining samples and returns.
	g.Go(func() error {
		<-task.Done()
		queue.Close()
		return nil
	})

	// Consumer.
	var consumer render.Consumer = render.Discard{}
	if o.output == outputFolded {
		consumer = render.NewFolded(session)
	}
	g.Go(func() error {
		if err := render.Drain(context.Background(), queue, consumer); err != nil {
			task.Stop()
			return errors.Wrap(err, "failed to consume samples")
		}
		return nil
	})

	if o.status {
		g.Go(func() error {
			o.printStatusBar(sampler, task, session, queue)
			return nil
		})
	}

	if o.metricsAddress != "" {
		srv := &http.Server{
			Addr:              o.metricsAddress,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			<-task.Done()
			return srv.Shutdown(context.Background())
		})
		g.Go(func() error {
			o.Logger.Info().Str("address", o.metricsAddress).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				task.Stop()
				return errors.Wrap(err, "failed to serve metrics")
			}
			return nil
		})
	}

	return g.Wait()
}

func (o *Options) printStatusBar(sampler *sampling.Sampler, task *sampling.Task, session *sampling.Session, queue *sampling.OutputQueue) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-task.Done()
		cancel()
	}()

	var last uint64
	output.StatusBar(ctx,
		1*time.Second, // bar refresh interval.
		func() {
			passes := task.Passes()
			status := output.SamplingStatus{
				PassRate:  passes - last, // pass rate reset at each bar refresh.
				Threads:   sampler.Threads(),
				QueueUtil: queue.Len() * 100 / queue.Cap(),
			}
			last = passes
			session.View(func(symbols *repository.SymbolRepository, modules *repository.ModuleRepository) {
				status.Symbols = symbols.Count()
				status.Modules = modules.Count()
			})
			output.PrintRight(output.PrettySamplingStatus(status))
		},
	)
}

// target resolves the process to sample from the flags.
func (o *Options) target() (process.Process, error) {
	if o.pid > 0 {
		p, err := process.Lookup(o.Ctx, o.pid)
		return p, errors.Wrapf(err, "failed to find process %d", o.pid)
	}
	p, err := process.Find(o.Ctx, o.name)
	return p, errors.Wrapf(err, "failed to find process %q", o.name)
}

func (o *Options) logOSInfo() {
	osInfo, err := helpers.GetOSInfo()
	if err != nil {
		o.Logger.Debug().Err(err).Msg("failed to get OS info")
		return
	}
	o.Logger.Debug().
		Str("kernel", osInfo.GetOSReleaseFieldValue(helpers.OS_KERNEL_RELEASE)).
		Msg("host")
}

func (o *Options) writeReport(session *sampling.Session, passes uint64, elapsed time.Duration) error {
	f, err := os.Create(settings.ReportFile)
	if err != nil {
		return errors.Wrap(err, "failed to create report file")
	}
	defer f.Close()

	report := sampling.NewSessionReport(
		sampling.WithReportSession(session),
		sampling.WithReportPasses(passes),
		sampling.WithReportDuration(elapsed),
	)
	if err := report.WriteReport(f); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	o.Logger.Info().Str("path", settings.ReportFile).Msg("report written")

	return nil
}

func (o *Options) daemonize() error {
	// Check if already running.
	if common.IsDaemonRunning() {
		fmt.Println("Daemon already running")
		return nil
	}

	// Start the daemon process.
	args := []string{CmdName}
	if o.pid > 0 {
		args = append(args, fmt.Sprintf("--pid=%d", o.pid))
	} else {
		args = append(args, fmt.Sprintf("--name=%s", o.name))
	}
	args = append(args, fmt.Sprintf("--interval=%s", o.interval))
	args = append(args, fmt.Sprintf("--queue-size=%d", o.queueSize))
	args = append(args, fmt.Sprintf("--attach-timeout=%s", o.attachTimeout))
	args = append(args, fmt.Sprintf("--max-depth=%d", o.maxDepth))
	args = append(args, fmt.Sprintf("--duration=%s", o.duration))
	args = append(args, fmt.Sprintf("--output=%s", o.output))
	args = append(args, fmt.Sprintf("--exclude=%s", o.symExcludePattern))
	args = append(args, fmt.Sprintf("--include=%s", o.symIncludePattern))
	args = append(args, fmt.Sprintf("--metrics-address=%s", o.metricsAddress))
	args = append(args, fmt.Sprintf("--socket-path=%s", o.socketPath))
	args = append(args, fmt.Sprintf("--report=%s", strconv.FormatBool(o.report)))
	args = append(args, fmt.Sprintf("--log-level=%s", o.LogLevel))

	cmd := exec.Command(os.Args[0], args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	// Redirect output to log file.
	if settings.LogFile != "" {
		f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			o.Logger.Error().Err(err).Msg("failed to open log file")
			return err
		}
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		o.Logger.Error().Err(err).Msgf("failed to start %s", settings.CmdName)
		return err
	}

	return common.WritePidFile(settings.PidFile, cmd.Process.Pid)
}
