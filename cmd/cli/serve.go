package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"surveygen/adapters/api"
	"surveygen/adapters/metrics"
	"surveygen/adapters/rng"
	"surveygen/internal"
	"surveygen/internal/collector"
	"surveygen/internal/config"
	"surveygen/internal/simulation"
)

func newServeCmd() *cobra.Command {
	var (
		port          string
		runSimulation bool
		items         int
		options       int
		blueprintPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live statistics, stored sessions and metrics over HTTP",
		Long: `Start the read-only statistics API. With --simulate a run is started in the
background and its progress can be watched on /api/stats and /metrics; the
final snapshot is persisted when it completes.

Example: surveygen serve --port 8080 --simulate --items 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			var bp *simulation.Blueprint
			if runSimulation {
				likert := simulation.LikertBlueprint("likert", items, options)
				bp = &likert
				if blueprintPath != "" {
					if bp, err = simulation.LoadBlueprint(blueprintPath); err != nil {
						return err
					}
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, bp)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8080", "Listen port (overrides PORT)")
	cmd.Flags().BoolVar(&runSimulation, "simulate", false, "Start a simulation in the background")
	cmd.Flags().IntVar(&items, "items", 10, "Number of Likert items when no blueprint is given")
	cmd.Flags().IntVar(&options, "options", 5, "Options per Likert item")
	cmd.Flags().StringVar(&blueprintPath, "blueprint", "", "JSON form blueprint")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, bp *simulation.Blueprint) error {
	logger := internal.DefaultLogger

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	roundMetrics := metrics.NewRoundMetrics(reg)

	c := collector.NewCollector(collector.WithObserver(roundMetrics), collector.WithLogger(logger))

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	server := api.NewServer(c, repo, reg, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(":" + cfg.Server.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if bp != nil {
		g.Go(func() error {
			runner := simulation.NewRunner(c, rng.NewStreamAdapter(), logger)
			result, err := runner.Run(gctx, *bp, simulationOptions(cfg.Simulation))
			if err != nil {
				return err
			}
			roundMetrics.SetMeasuredAlpha(result.Alpha)
			// Persist even when interrupted; the snapshot is still consistent.
			return repo.Save(context.WithoutCancel(gctx), result.Stats)
		})
	}

	return g.Wait()
}
