// Package store keeps the history of acceptance runs in DuckDB so failures
// can be compared across runs of the same stack.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Store (facade)                          │
//	├────────────────────────────────┬────────────────────────────────┤
//	│           RunStore             │          ResultStore           │
//	│              ▼                 │              ▼                 │
//	│            runs                │       scenario_results         │
//	├────────────────────────────────┴────────────────────────────────┤
//	│                 QueryInterceptor (debug logging)                │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Tables
//
// Created by the migrations embedded in internal/store/migrations/sql/:
//
//	┌────────────────────┬─────────────────────────────────────────────┐
//	│  Table             │  Purpose                                    │
//	├────────────────────┼─────────────────────────────────────────────┤
//	│  runs              │  One row per run: verdict, teardown counts  │
//	│                    │  and captured diagnostics                   │
//	│  scenario_results  │  One row per scenario, keyed by run and     │
//	│                    │  catalog position                           │
//	│  schema_migrations │  Migration version tracking                 │
//	└────────────────────┴─────────────────────────────────────────────┘
//
// # Initialization Flow
//
//	db, _ := NewDB(path)     ":memory:" for a private in-memory database
//	s := NewStore(db)
//	s.Migrate(ctx)           applies pending migrations
//	s.SaveReport(ctx, rep)   upserts the run, replaces its results
//
// # RunStore
//
// Save upserts on the run ID so a report saved twice leaves one row. Get
// returns RunNotFoundError for an unknown ID. The run abort cause is kept as
// text and restored as a plain error.
//
// # ResultStore
//
// List uses the functional options pattern of squirrel select builders:
//
//	failed, err := s.Results().List(ctx,
//	    store.ByRun(id),
//	    store.FailedOnly(),
//	    store.WithLimit(10),
//	)
//
// Results are ordered by run ID and catalog position.
//
// # QueryInterceptor
//
// Every statement goes through a QueryInterceptor that logs the SQL, the
// arguments and the duration at debug level.
package store
