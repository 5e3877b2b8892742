package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"surveygen/adapters/excel"
	"surveygen/adapters/rng"
	"surveygen/internal"
	"surveygen/internal/collector"
	"surveygen/internal/config"
	"surveygen/internal/simulation"
)

type simulateFlags struct {
	items         int
	options       int
	blueprintPath string
	exportPath    string
	save          bool
	asJSON        bool

	alpha       float64
	respondents int
	workers     int
	seed        int64
	failureRate float64
	persona     bool
}

func newSimulateCmd() *cobra.Command {
	var f simulateFlags

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate respondents for a form and report the measured reliability",
		Long: `Run N simulated respondents through a form blueprint. Plan-covered items are
answered from a per-respondent latent trait calibrated to the target alpha;
every other item follows the respondent's dimension tendencies.

Without --blueprint a Likert form of --items scale questions is used.

Example: surveygen simulate --items 10 --options 5 --alpha 0.85 --respondents 2000 --export run.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applySimulateFlags(cmd, &f, cfg)
			if err := config.Validate(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulate(ctx, cmd.OutOrStdout(), cfg, f)
		},
	}

	cmd.Flags().IntVar(&f.items, "items", 10, "Number of Likert items when no blueprint is given")
	cmd.Flags().IntVar(&f.options, "options", 5, "Options per Likert item")
	cmd.Flags().StringVar(&f.blueprintPath, "blueprint", "", "JSON form blueprint")
	cmd.Flags().StringVar(&f.exportPath, "export", "", "Write statistics and responses to this XLSX file")
	cmd.Flags().BoolVar(&f.save, "save", false, "Persist the statistics snapshot")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0.85, "Target Cronbach's alpha (overrides TARGET_ALPHA)")
	cmd.Flags().IntVar(&f.respondents, "respondents", 200, "Respondents to simulate (overrides RESPONDENTS)")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "Concurrent respondent workers (overrides WORKERS)")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "Base random seed (overrides SEED)")
	cmd.Flags().Float64Var(&f.failureRate, "failure-rate", 0, "Chance a submission fails (overrides FAILURE_RATE)")
	cmd.Flags().BoolVar(&f.persona, "persona", false, "Draw a Beta persona per respondent (overrides PERSONA_ENABLED)")

	return cmd
}

// applySimulateFlags lets explicitly set flags win over the environment
func applySimulateFlags(cmd *cobra.Command, f *simulateFlags, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("alpha") {
		cfg.Simulation.TargetAlpha = f.alpha
	}
	if flags.Changed("respondents") {
		cfg.Simulation.Respondents = f.respondents
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers = f.workers
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = f.seed
	}
	if flags.Changed("failure-rate") {
		cfg.Simulation.FailureRate = f.failureRate
	}
	if flags.Changed("persona") {
		cfg.Simulation.PersonaEnabled = f.persona
	}
}

type simulateSummary struct {
	SessionID   string                   `json:"session_id"`
	Respondents int                      `json:"respondents"`
	Committed   int                      `json:"committed"`
	Discarded   int                      `json:"discarded"`
	TargetAlpha float64                  `json:"target_alpha"`
	Alpha       float64                  `json:"alpha"`
	ApproxAlpha float64                  `json:"approx_alpha"`
	Stopped     bool                     `json:"stopped"`
	Items       []simulation.ItemSummary `json:"items"`
	Elapsed     string                   `json:"elapsed"`
}

func runSimulate(ctx context.Context, out io.Writer, cfg *config.Config, f simulateFlags) error {
	logger := internal.DefaultLogger

	bp := simulation.LikertBlueprint("likert", f.items, f.options)
	if f.blueprintPath != "" {
		loaded, err := simulation.LoadBlueprint(f.blueprintPath)
		if err != nil {
			return err
		}
		bp = *loaded
	}

	c := collector.NewCollector(collector.WithLogger(logger))
	runner := simulation.NewRunner(c, rng.NewStreamAdapter(), logger)
	result, err := runner.Run(ctx, bp, simulationOptions(cfg.Simulation))
	if err != nil {
		return err
	}

	if f.exportPath != "" {
		if err := exportResult(result, f.exportPath); err != nil {
			return err
		}
		logger.Info("exported %s", f.exportPath)
	}

	if f.save {
		repo, closeRepo, err := openRepository(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeRepo()
		if err := repo.Save(ctx, result.Stats); err != nil {
			return err
		}
		logger.Info("saved session %s", result.SessionID)
	}

	summary := simulateSummary{
		SessionID:   result.SessionID.String(),
		Respondents: cfg.Simulation.Respondents,
		Committed:   result.Committed,
		Discarded:   result.Discarded,
		TargetAlpha: cfg.Simulation.TargetAlpha,
		Alpha:       result.Alpha,
		ApproxAlpha: result.ApproxAlpha,
		Stopped:     result.Stopped,
		Items:       result.Items,
		Elapsed:     result.Elapsed.String(),
	}
	return printSummary(out, summary, f.asJSON)
}

func exportResult(result *simulation.Result, path string) error {
	e, err := excel.NewExporter()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.WriteStats(result.Stats); err != nil {
		return err
	}
	if err := e.WriteResponses(result.Columns, result.Matrix); err != nil {
		return err
	}
	return e.SaveAs(path)
}

func printSummary(out io.Writer, s simulateSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(out, "Session:      %s\n", s.SessionID)
	fmt.Fprintf(out, "Respondents:  %d committed, %d discarded\n", s.Committed, s.Discarded)
	fmt.Fprintf(out, "Alpha:        %.4f (target %.2f, approximate %.4f)\n", s.Alpha, s.TargetAlpha, s.ApproxAlpha)
	if s.Stopped {
		fmt.Fprintln(out, "Stopped early: interrupted")
	}
	for _, item := range s.Items {
		fmt.Fprintf(out, "  %-14s mean=%.3f sd=%.3f\n", item.Key, item.Mean, item.StdDev)
	}
	fmt.Fprintf(out, "Elapsed:      %s\n", s.Elapsed)
	return nil
}
