package store

import (
	"context"
	"database/sql"

	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	"github.com/openwisp/docker-openwisp-e2e/internal/store/migrations"
)

// Store provides access to all storage repositories.
type Store struct {
	db      *sql.DB
	qi      QueryInterceptor
	runs    *RunStore
	results *ResultStore
}

func NewStore(db *sql.DB) *Store {
	qi := NewQueryInterceptor(db)
	return &Store{
		db:      db,
		qi:      qi,
		runs:    NewRunStore(qi),
		results: NewResultStore(qi),
	}
}

// Migrate brings the schema up to date.
func (s *Store) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, s.db)
}

func (s *Store) Runs() *RunStore {
	return s.runs
}

func (s *Store) Results() *ResultStore {
	return s.results
}

// SaveReport stores the run and its scenario results in one transaction.
func (s *Store) SaveReport(ctx context.Context, report *models.RunReport) error {
	return s.qi.InTx(ctx, func(q QueryInterceptor) error {
		if err := NewRunStore(q).Save(ctx, report); err != nil {
			return err
		}
		return NewResultStore(q).Save(ctx, report.ID, report.Results)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
