package main

import (
	"context"

	"surveygen/adapters/filestore"
	"surveygen/adapters/persona"
	"surveygen/adapters/postgres"
	"surveygen/internal"
	"surveygen/internal/config"
	"surveygen/internal/simulation"
	"surveygen/ports"
)

// openRepository selects PostgreSQL when DATABASE_URL is set and the file
// store otherwise. The returned close func is never nil
func openRepository(ctx context.Context, cfg *config.Config, logger *internal.Logger) (ports.StatsRepository, func(), error) {
	if cfg.UseDatabase() {
		db, err := postgres.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		repo := postgres.NewStatsRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, func() {}, err
		}
		logger.Info("persisting statistics to PostgreSQL")
		return repo, func() { db.Close() }, nil
	}

	store, err := filestore.NewStatsStore(cfg.Storage.StatsDir)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info("persisting statistics under %s", cfg.Storage.StatsDir)
	return store, func() {}, nil
}

// personaFunc builds the per-respondent persona source, nil when disabled
func personaFunc(sim config.SimulationConfig) simulation.PersonaFunc {
	if !sim.PersonaEnabled {
		return nil
	}
	gen := persona.NewBetaGenerator(sim.PersonaAlpha, sim.PersonaBeta)
	return func(i int, seed uint64) ports.PersonaProvider {
		return gen.Draw(seed)
	}
}

func simulationOptions(sim config.SimulationConfig) simulation.Options {
	return simulation.Options{
		Respondents: sim.Respondents,
		Workers:     sim.Workers,
		Seed:        sim.Seed,
		TargetAlpha: sim.TargetAlpha,
		FailureRate: sim.FailureRate,
		Persona:     personaFunc(sim),
	}
}
