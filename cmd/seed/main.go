// Command seed provisions the Postgres schema and loads the canonical
// fixture. It is idempotent: when buildings already exist, nothing is
// written.
package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"example.com/directory/internal/config"
	"example.com/directory/internal/persistence/postgres"
	"example.com/directory/internal/seed"
)

func main() {
	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "directory-seed").Logger()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	repo := postgres.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	existing, err := repo.CountBuildings(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to inspect store")
	}
	if existing > 0 {
		log.Info().Int("buildings", existing).Msg("store already seeded, skipping")
		return
	}

	if err := seed.Apply(ctx, repo); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().
		Int("buildings", len(seed.Buildings())).
		Int("activities", len(seed.Activities())).
		Int("organizations", len(seed.Organizations())).
		Msg("fixture loaded")
}
