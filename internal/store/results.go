package store

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

// ScenarioRecord is a stored scenario result.
type ScenarioRecord struct {
	RunID    string
	Position int
	models.ScenarioResult
}

type ResultStore struct {
	db QueryInterceptor
}

func NewResultStore(db QueryInterceptor) *ResultStore {
	return &ResultStore{db: db}
}

// Save replaces the results stored for runID, keeping their order. The old
// rows are kept when the new ones cannot be written.
func (s *ResultStore) Save(ctx context.Context, runID string, results []models.ScenarioResult) error {
	return s.db.InTx(ctx, func(q QueryInterceptor) error {
		query, args, err := sq.Delete("scenario_results").Where(sq.Eq{"run_id": runID}).ToSql()
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}

		builder := sq.Insert("scenario_results").
			Columns("run_id", "position", "name", "status", "message", "started_at", "ended_at")
		for i, r := range results {
			builder = builder.Values(runID, i, r.Name, string(r.Status), r.Message, nullTime(r.StartedAt), nullTime(r.EndedAt))
		}
		query, args, err = builder.ToSql()
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *ResultStore) List(ctx context.Context, opts ...ListOption) ([]ScenarioRecord, error) {
	builder := sq.Select("run_id", "position", "name", "status", "message", "started_at", "ended_at").
		From("scenario_results").
		OrderBy("run_id", "position")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ScenarioRecord
	for rows.Next() {
		var (
			rec            ScenarioRecord
			status         string
			started, ended sql.NullTime
		)
		if err := rows.Scan(&rec.RunID, &rec.Position, &rec.Name, &status, &rec.Message, &started, &ended); err != nil {
			return nil, err
		}
		rec.Status = models.ScenarioStatus(status)
		rec.StartedAt = started.Time
		rec.EndedAt = ended.Time
		records = append(records, rec)
	}
	return records, rows.Err()
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByRun(ids ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(ids) == 0 {
			return b
		}
		return b.Where(sq.Eq{"run_id": ids})
	}
}

func ByName(names ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(names) == 0 {
			return b
		}
		return b.Where(sq.Eq{"name": names})
	}
}

func FailedOnly() ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"status": string(models.ScenarioStatusFailed)})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
