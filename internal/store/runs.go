package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
)

const upsertRunSuffix = `ON CONFLICT (id) DO UPDATE SET
	driver = EXCLUDED.driver,
	started_at = EXCLUDED.started_at,
	ended_at = EXCLUDED.ended_at,
	failed = EXCLUDED.failed,
	aborted = EXCLUDED.aborted,
	teardown_attempted = EXCLUDED.teardown_attempted,
	teardown_deleted = EXCLUDED.teardown_deleted,
	teardown_gone = EXCLUDED.teardown_gone,
	teardown_failed = EXCLUDED.teardown_failed,
	diagnostics = EXCLUDED.diagnostics`

var runColumns = []string{
	"id",
	"driver",
	"started_at",
	"ended_at",
	"failed",
	"aborted",
	"teardown_attempted",
	"teardown_deleted",
	"teardown_gone",
	"teardown_failed",
	"diagnostics",
}

// RunStore persists one row per run. Scenario results live in ResultStore.
type RunStore struct {
	db QueryInterceptor
}

func NewRunStore(db QueryInterceptor) *RunStore {
	return &RunStore{db: db}
}

// Save inserts the run or replaces a run with the same ID.
func (s *RunStore) Save(ctx context.Context, r *models.RunReport) error {
	aborted := ""
	if r.Aborted != nil {
		aborted = r.Aborted.Error()
	}
	query, args, err := sq.Insert("runs").
		Columns(runColumns...).
		Values(
			r.ID,
			r.Driver,
			r.StartedAt,
			nullTime(r.EndedAt),
			r.Failed,
			aborted,
			r.Teardown.Attempted,
			r.Teardown.Deleted,
			r.Teardown.Gone,
			strings.Join(r.Teardown.Failed, "\n"),
			r.Diagnostics,
		).
		Suffix(upsertRunSuffix).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Get returns the run without its scenario results.
func (s *RunStore) Get(ctx context.Context, id string) (*models.RunReport, error) {
	query, args, err := sq.Select(runColumns...).From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var (
		r              models.RunReport
		endedAt        sql.NullTime
		aborted        string
		teardownFailed string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&r.ID,
		&r.Driver,
		&r.StartedAt,
		&endedAt,
		&r.Failed,
		&aborted,
		&r.Teardown.Attempted,
		&r.Teardown.Deleted,
		&r.Teardown.Gone,
		&teardownFailed,
		&r.Diagnostics,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewRunNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	r.EndedAt = endedAt.Time
	if aborted != "" {
		r.Aborted = errors.New(aborted)
	}
	if teardownFailed != "" {
		r.Teardown.Failed = strings.Split(teardownFailed, "\n")
	}
	return &r, nil
}

// Count returns the number of runs, optionally only the failed ones.
func (s *RunStore) Count(ctx context.Context, failedOnly bool) (int, error) {
	builder := sq.Select("COUNT(*)").From("runs")
	if failedOnly {
		builder = builder.Where(sq.Eq{"failed": true})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
