// Package snapshot persists cumulative snapshot rows, raw per-season
// observations, and the merge run log. Two drivers implement the Store
// interface: Postgres (pgx, JSONB history) and SQLite (modernc, JSON text).
package snapshot

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cumulate/internal/model"
)

// Store defines the persistence interface for the snapshot pipeline.
type Store interface {
	// Snapshots. WriteSnapshots upserts a full season's snapshot set keyed
	// by (player_name, current_season); re-merging a season overwrites that
	// season's rows and never touches earlier ones.
	Snapshots(ctx context.Context, season int) ([]model.Snapshot, error)
	LatestSnapshot(ctx context.Context, playerName string) (*model.Snapshot, error)
	WriteSnapshots(ctx context.Context, snaps []model.Snapshot) (int64, error)

	// Observations
	Observations(ctx context.Context, season int) ([]model.Observation, error)
	InsertObservations(ctx context.Context, obs []model.Observation) (int64, error)
	DeleteObservations(ctx context.Context, season int) (int64, error)

	// Run log
	StartRun(ctx context.Context, season int) (string, error)
	CompleteRun(ctx context.Context, runID string, playersMerged int64) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]model.MergeRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a store driver.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`             // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // postgres DSN
	Path        string `yaml:"path" mapstructure:"path"`                 // sqlite file path
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return NewSQLite(cfg.Path)
	default:
		return nil, eris.Errorf("snapshot: unknown store driver %q", cfg.Driver)
	}
}
