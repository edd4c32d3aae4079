package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scribe-api/internal/config"
	"github.com/jwalitptl/scribe-api/internal/repository"
	"github.com/jwalitptl/scribe-api/internal/repository/memory"
	"github.com/jwalitptl/scribe-api/internal/repository/postgres"
	"github.com/jwalitptl/scribe-api/pkg/logger"
)

// storage bundles the repositories for the configured driver. db is nil
// for the memory driver.
type storage struct {
	patients repository.PatientRepository
	results  repository.ResultRepository
	letters  repository.LetterRepository
	db       *sqlx.DB
}

func (s *storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Level),
		Format: cfg.Format,
	})
	log.SetGlobal()
	return log
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*storage, error) {
	if cfg.Driver == "memory" {
		log.Warn("using in-memory storage; data is lost on exit")
		store := memory.NewStore()
		return &storage{
			patients: store.Patients(),
			results:  store.Results(),
			letters:  store.Letters(),
		}, nil
	}

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := postgres.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &storage{
		patients: postgres.NewPatientRepository(db),
		results:  postgres.NewResultRepository(db),
		letters:  postgres.NewLetterRepository(db),
		db:       db,
	}, nil
}
