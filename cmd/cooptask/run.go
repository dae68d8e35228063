package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Swind/go-coop-task/core"
	obs "github.com/Swind/go-coop-task/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	tasks        int
	steps        int
	background   int
	abortEvery   int
	wait         time.Duration
	tickInterval time.Duration
	timeout      time.Duration
	dumpEvery    time.Duration
	metricsAddr  string
	recent       int
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "schedule a synthetic workload and wait for it to drain",

		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "tasks",
				Aliases: []string{"n"},
				Value:   50,
				Usage:   "number of tasks to schedule",
				EnvVars: []string{"COOPTASK_TASKS"},
			},
			&cli.IntFlag{
				Name:    "steps",
				Value:   4,
				Usage:   "wait/hop rounds per task",
				EnvVars: []string{"COOPTASK_STEPS"},
			},
			&cli.IntFlag{
				Name:    "background-percent",
				Value:   50,
				Usage:   "share of tasks that start on the background backend (0-100)",
				EnvVars: []string{"COOPTASK_BACKGROUND_PERCENT"},
			},
			&cli.IntFlag{
				Name:    "abort-every",
				Usage:   "abort every Nth task right after scheduling it (0 disables)",
				EnvVars: []string{"COOPTASK_ABORT_EVERY"},
			},
			&cli.DurationFlag{
				Name:    "wait",
				Value:   5 * time.Millisecond,
				Usage:   "duration of each Wait instruction",
				EnvVars: []string{"COOPTASK_WAIT"},
			},
			&cli.DurationFlag{
				Name:    "tick-interval",
				Value:   core.DefaultTickInterval,
				Usage:   "interval between cooperative passes",
				EnvVars: []string{"COOPTASK_TICK_INTERVAL"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   30 * time.Second,
				Usage:   "abort whatever is left after this long",
				EnvVars: []string{"COOPTASK_TIMEOUT"},
			},
			&cli.DurationFlag{
				Name:    "dump-every",
				Usage:   "print the task registry at this interval (0 disables)",
				EnvVars: []string{"COOPTASK_DUMP_EVERY"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "serve Prometheus metrics on this address, e.g. :2112",
				EnvVars: []string{"COOPTASK_METRICS_ADDR"},
			},
			&cli.IntFlag{
				Name:    "recent",
				Value:   10,
				Usage:   "finished tasks to list in the summary",
				EnvVars: []string{"COOPTASK_RECENT"},
			},
		},

		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	// 1. Get flags
	opts := runOptions{
		tasks:        c.Int("tasks"),
		steps:        c.Int("steps"),
		background:   c.Int("background-percent"),
		abortEvery:   c.Int("abort-every"),
		wait:         c.Duration("wait"),
		tickInterval: c.Duration("tick-interval"),
		timeout:      c.Duration("timeout"),
		dumpEvery:    c.Duration("dump-every"),
		metricsAddr:  c.String("metrics-addr"),
		recent:       c.Int("recent"),
	}

	// 2. Validate (format only)
	if opts.tasks < 0 || opts.steps < 0 {
		return cli.Exit("tasks and steps must not be negative", 1)
	}
	if opts.background < 0 || opts.background > 100 {
		return cli.Exit("background-percent must be between 0 and 100", 1)
	}

	logger, err := newLogger(c.String("log-format"), c.String("log-level"), c.App.ErrWriter)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	// 3. Run
	s, err := runWorkload(c.Context, opts, logger, c.App.Writer)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	// 4. Format output
	return writeSummary(c.App.Writer, s.Stats(), s.RecentTasks(opts.recent))
}

// runWorkload schedules the synthetic tasks on a driven scheduler and returns
// once the registry is empty.
func runWorkload(ctx context.Context, opts runOptions, logger core.Logger, out io.Writer) (*core.Scheduler, error) {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	exporter, err := obs.NewMetricsExporter("cooptask", reg, obs.ExporterOptions{})
	if err != nil {
		return nil, err
	}
	poller, err := obs.NewSnapshotPoller(reg, time.Second)
	if err != nil {
		return nil, err
	}

	s := core.NewScheduler(&core.SchedulerConfig{
		Logger:  logger,
		Metrics: exporter,
	})
	driver := core.NewTickDriver(s, opts.tickInterval)
	driver.Start()
	defer driver.Stop()

	poller.AddScheduler("cli", s)
	poller.Start(ctx)
	defer poller.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if opts.metricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, opts.metricsAddr, reg, logger) })
	}
	if opts.dumpEvery > 0 {
		g.Go(func() error { return dumpLoop(gctx, s, opts.dumpEvery, out) })
	}

	g.Go(func() error {
		defer cancel()
		spawn(s, opts)
		return drain(gctx, driver, s, opts.timeout, logger)
	})

	if err := g.Wait(); err != nil {
		return s, err
	}
	return s, nil
}

// spawn schedules opts.tasks step-sequences alternating between backends.
func spawn(s *core.Scheduler, opts runOptions) {
	for i := range opts.tasks {
		backend := core.Cooperative
		if i*100 < opts.tasks*opts.background {
			backend = core.Background
		}
		t, err := s.RunSteps(workload(i, opts.steps, opts.wait), backend)
		if err != nil {
			s.Logger().Error("schedule failed", core.F("index", i), core.F("err", err))
			continue
		}
		if opts.abortEvery > 0 && (i+1)%opts.abortEvery == 0 {
			t.Abort()
		}
	}
}

// workload waits, then hops to the other backend, once per round.
func workload(seed, rounds int, wait time.Duration) core.Steps {
	return func(yield func(core.Instruction) bool) {
		for round := range rounds {
			if !yield(core.Wait(wait)) {
				return
			}
			hop := core.ToBackground
			if (seed+round)%2 == 1 {
				hop = core.ToCooperative
			}
			if !yield(hop) {
				return
			}
			if !yield(core.Yield(round)) {
				return
			}
		}
	}
}

// drain waits for the registry to empty. After timeout everything left is
// aborted and given one more chance to finalize.
func drain(ctx context.Context, driver *core.TickDriver, s *core.Scheduler, timeout time.Duration, logger core.Logger) error {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := driver.WaitIdle(waitCtx)
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	logger.Warn("workload timed out", core.F("remaining", s.Registry().Len()))
	s.AbortAll()
	graceCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := driver.WaitIdle(graceCtx); err != nil {
		return fmt.Errorf("draining aborted tasks: %w", err)
	}
	return nil
}

func dumpLoop(ctx context.Context, s *core.Scheduler, every time.Duration, out io.Writer) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := writeRegistry(out, s.Registry().Infos()); err != nil {
				return err
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prom.Registry, logger core.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	logger.Info("metrics endpoint listening", core.F("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
