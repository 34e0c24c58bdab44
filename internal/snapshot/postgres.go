package snapshot

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cumulate/internal/db"
	"github.com/sells-group/cumulate/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	if connString == "" {
		return nil, eris.New("postgres: database_url not configured")
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const snapshotColumns = `player_name, height, college, country, draft_year, draft_round, draft_number,
	season_stats, scoring_class, seasons_since_active, current_season`

// Snapshots returns the full snapshot set for a season, ordered by player.
func (s *PostgresStore) Snapshots(ctx context.Context, season int) ([]model.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+snapshotColumns+`
		FROM players
		WHERE current_season = $1
		ORDER BY player_name`, season)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: snapshots for season %d", season)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// LatestSnapshot returns a player's most recent snapshot row, or nil when the
// player has never been observed.
func (s *PostgresStore) LatestSnapshot(ctx context.Context, playerName string) (*model.Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM players
		WHERE player_name = $1
		ORDER BY current_season DESC
		LIMIT 1`, playerName)

	snap, err := scanSnapshot(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: latest snapshot for %s", playerName)
	}
	return snap, nil
}

// WriteSnapshots bulk-upserts a snapshot set via temp table + COPY.
func (s *PostgresStore) WriteSnapshots(ctx context.Context, snaps []model.Snapshot) (int64, error) {
	rows := make([][]any, 0, len(snaps))
	for i := range snaps {
		snap := &snaps[i]
		history, err := json.Marshal(snap.History)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal history for %s", snap.PlayerName)
		}
		rows = append(rows, []any{
			snap.PlayerName, snap.Height, snap.College, snap.Country,
			snap.DraftYear, snap.DraftRound, snap.DraftNumber,
			history, string(snap.ScoringClass), snap.SeasonsSinceActive, snap.CurrentSeason,
		})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "players",
		Columns: []string{
			"player_name", "height", "college", "country",
			"draft_year", "draft_round", "draft_number",
			"season_stats", "scoring_class", "seasons_since_active", "current_season",
		},
		ConflictKeys: []string{"player_name", "current_season"},
	}, rows)
}

const observationColumns = `player_name, season, gp, pts, reb, ast,
	height, college, country, draft_year, draft_round, draft_number`

// Observations returns the raw observation set for a season.
func (s *PostgresStore) Observations(ctx context.Context, season int) ([]model.Observation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+observationColumns+`
		FROM player_seasons
		WHERE season = $1
		ORDER BY player_name`, season)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: observations for season %d", season)
	}
	defer rows.Close()

	var obs []model.Observation
	for rows.Next() {
		var o model.Observation
		if err := rows.Scan(
			&o.PlayerName, &o.Season, &o.GamesPlayed, &o.Points, &o.Rebounds, &o.Assists,
			&o.Height, &o.College, &o.Country, &o.DraftYear, &o.DraftRound, &o.DraftNumber,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "postgres: iterate observations")
}

// InsertObservations bulk-loads observations via COPY. Rows for an already
// loaded (player, season) pair conflict; use DeleteObservations first when
// reloading a season.
func (s *PostgresStore) InsertObservations(ctx context.Context, obs []model.Observation) (int64, error) {
	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, []any{
			o.PlayerName, o.Season, o.GamesPlayed, o.Points, o.Rebounds, o.Assists,
			o.Height, o.College, o.Country, o.DraftYear, o.DraftRound, o.DraftNumber,
		})
	}

	return db.CopyFrom(ctx, s.pool, "player_seasons", []string{
		"player_name", "season", "gp", "pts", "reb", "ast",
		"height", "college", "country", "draft_year", "draft_round", "draft_number",
	}, rows)
}

// DeleteObservations removes all raw observations for a season.
func (s *PostgresStore) DeleteObservations(ctx context.Context, season int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM player_seasons WHERE season = $1`, season)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete observations for season %d", season)
	}
	return tag.RowsAffected(), nil
}

// StartRun records the beginning of a merge run and returns its ID.
func (s *PostgresStore) StartRun(ctx context.Context, season int) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO merge_runs (id, season, status, started_at)
		VALUES ($1, $2, 'running', now())`, id, season)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start run for season %d", season)
	}
	return id, nil
}

// CompleteRun marks a merge run as successfully completed.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, playersMerged int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE merge_runs
		SET status = 'complete', completed_at = now(), players_merged = $1
		WHERE id = $2`, playersMerged, runID)
	return eris.Wrapf(err, "postgres: complete run %s", runID)
}

// FailRun marks a merge run as failed with an error message.
func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE merge_runs
		SET status = 'failed', completed_at = now(), error = $1
		WHERE id = $2`, errMsg, runID)
	return eris.Wrapf(err, "postgres: fail run %s", runID)
}

// ListRuns returns recent merge runs, most recent first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.MergeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, season, status, players_merged, started_at, completed_at, COALESCE(error, '')
		FROM merge_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.MergeRun
	for rows.Next() {
		var r model.MergeRun
		if err := rows.Scan(&r.ID, &r.Season, &r.Status, &r.PlayersMerged, &r.StartedAt, &r.CompletedAt, &r.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*model.Snapshot, error) {
	var (
		snap    model.Snapshot
		history []byte
		class   string
	)
	if err := row.Scan(
		&snap.PlayerName, &snap.Height, &snap.College, &snap.Country,
		&snap.DraftYear, &snap.DraftRound, &snap.DraftNumber,
		&history, &class, &snap.SeasonsSinceActive, &snap.CurrentSeason,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &snap.History); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal history for %s", snap.PlayerName)
	}
	snap.ScoringClass = model.ScoringClass(class)
	return &snap, nil
}

func scanSnapshots(rows pgx.Rows) ([]model.Snapshot, error) {
	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		snaps = append(snaps, *snap)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: iterate snapshots")
}
