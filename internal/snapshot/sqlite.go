package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cumulate/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. History arrays are
// stored as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: path not configured")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS players (
	player_name          TEXT NOT NULL,
	height               TEXT NOT NULL DEFAULT '',
	college              TEXT NOT NULL DEFAULT '',
	country              TEXT NOT NULL DEFAULT '',
	draft_year           TEXT NOT NULL DEFAULT '',
	draft_round          TEXT NOT NULL DEFAULT '',
	draft_number         TEXT NOT NULL DEFAULT '',
	season_stats         TEXT NOT NULL DEFAULT '[]',
	scoring_class        TEXT NOT NULL DEFAULT '',
	seasons_since_active INTEGER NOT NULL DEFAULT 0,
	current_season       INTEGER NOT NULL,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (player_name, current_season)
);

CREATE TABLE IF NOT EXISTS player_seasons (
	player_name  TEXT NOT NULL,
	season       INTEGER NOT NULL,
	gp           INTEGER NOT NULL DEFAULT 0,
	pts          REAL NOT NULL DEFAULT 0,
	reb          REAL NOT NULL DEFAULT 0,
	ast          REAL NOT NULL DEFAULT 0,
	height       TEXT NOT NULL DEFAULT '',
	college      TEXT NOT NULL DEFAULT '',
	country      TEXT NOT NULL DEFAULT '',
	draft_year   TEXT NOT NULL DEFAULT '',
	draft_round  TEXT NOT NULL DEFAULT '',
	draft_number TEXT NOT NULL DEFAULT '',
	loaded_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (player_name, season)
);

CREATE TABLE IF NOT EXISTS merge_runs (
	id             TEXT PRIMARY KEY,
	season         INTEGER NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	players_merged INTEGER NOT NULL DEFAULT 0,
	started_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at   DATETIME,
	error          TEXT
);

CREATE INDEX IF NOT EXISTS idx_players_current_season ON players(current_season);
CREATE INDEX IF NOT EXISTS idx_player_seasons_season ON player_seasons(season);
CREATE INDEX IF NOT EXISTS idx_merge_runs_started_at ON merge_runs(started_at);
`

// Migrate applies the idempotent schema DDL.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Snapshots returns the full snapshot set for a season, ordered by player.
func (s *SQLiteStore) Snapshots(ctx context.Context, season int) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_name, height, college, country, draft_year, draft_round, draft_number,
			season_stats, scoring_class, seasons_since_active, current_season
		FROM players
		WHERE current_season = ?
		ORDER BY player_name`, season)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: snapshots for season %d", season)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSQLiteSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: iterate snapshots")
}

// LatestSnapshot returns a player's most recent snapshot row, or nil when the
// player has never been observed.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, playerName string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT player_name, height, college, country, draft_year, draft_round, draft_number,
			season_stats, scoring_class, seasons_since_active, current_season
		FROM players
		WHERE player_name = ?
		ORDER BY current_season DESC
		LIMIT 1`, playerName)

	snap, err := scanSQLiteSnapshot(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: latest snapshot for %s", playerName)
	}
	return snap, nil
}

// WriteSnapshots upserts a snapshot set inside a single transaction.
func (s *SQLiteStore) WriteSnapshots(ctx context.Context, snaps []model.Snapshot) (int64, error) {
	if len(snaps) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin write snapshots")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (
			player_name, height, college, country, draft_year, draft_round, draft_number,
			season_stats, scoring_class, seasons_since_active, current_season
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_name, current_season) DO UPDATE SET
			height = excluded.height,
			college = excluded.college,
			country = excluded.country,
			draft_year = excluded.draft_year,
			draft_round = excluded.draft_round,
			draft_number = excluded.draft_number,
			season_stats = excluded.season_stats,
			scoring_class = excluded.scoring_class,
			seasons_since_active = excluded.seasons_since_active`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare snapshot upsert")
	}
	defer stmt.Close()

	var written int64
	for i := range snaps {
		snap := &snaps[i]
		history, err := json.Marshal(snap.History)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal history for %s", snap.PlayerName)
		}
		if _, err := stmt.ExecContext(ctx,
			snap.PlayerName, snap.Height, snap.College, snap.Country,
			snap.DraftYear, snap.DraftRound, snap.DraftNumber,
			string(history), string(snap.ScoringClass), snap.SeasonsSinceActive, snap.CurrentSeason,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert snapshot for %s", snap.PlayerName)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit write snapshots")
	}
	return written, nil
}

// Observations returns the raw observation set for a season.
func (s *SQLiteStore) Observations(ctx context.Context, season int) ([]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_name, season, gp, pts, reb, ast,
			height, college, country, draft_year, draft_round, draft_number
		FROM player_seasons
		WHERE season = ?
		ORDER BY player_name`, season)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: observations for season %d", season)
	}
	defer rows.Close()

	var obs []model.Observation
	for rows.Next() {
		var o model.Observation
		if err := rows.Scan(
			&o.PlayerName, &o.Season, &o.GamesPlayed, &o.Points, &o.Rebounds, &o.Assists,
			&o.Height, &o.College, &o.Country, &o.DraftYear, &o.DraftRound, &o.DraftNumber,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "sqlite: iterate observations")
}

// InsertObservations loads observations inside a single transaction.
func (s *SQLiteStore) InsertObservations(ctx context.Context, obs []model.Observation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert observations")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_seasons (
			player_name, season, gp, pts, reb, ast,
			height, college, country, draft_year, draft_round, draft_number
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare observation insert")
	}
	defer stmt.Close()

	var inserted int64
	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx,
			o.PlayerName, o.Season, o.GamesPlayed, o.Points, o.Rebounds, o.Assists,
			o.Height, o.College, o.Country, o.DraftYear, o.DraftRound, o.DraftNumber,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert observation for %s", o.PlayerName)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert observations")
	}
	return inserted, nil
}

// DeleteObservations removes all raw observations for a season.
func (s *SQLiteStore) DeleteObservations(ctx context.Context, season int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM player_seasons WHERE season = ?`, season)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete observations for season %d", season)
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: delete observations rows affected")
}

// StartRun records the beginning of a merge run and returns its ID.
func (s *SQLiteStore) StartRun(ctx context.Context, season int) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merge_runs (id, season, status, started_at)
		VALUES (?, ?, 'running', ?)`, id, season, time.Now().UTC())
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start run for season %d", season)
	}
	return id, nil
}

// CompleteRun marks a merge run as successfully completed.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, playersMerged int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE merge_runs
		SET status = 'complete', completed_at = ?, players_merged = ?
		WHERE id = ?`, time.Now().UTC(), playersMerged, runID)
	return eris.Wrapf(err, "sqlite: complete run %s", runID)
}

// FailRun marks a merge run as failed with an error message.
func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE merge_runs
		SET status = 'failed', completed_at = ?, error = ?
		WHERE id = ?`, time.Now().UTC(), errMsg, runID)
	return eris.Wrapf(err, "sqlite: fail run %s", runID)
}

// ListRuns returns recent merge runs, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.MergeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, season, status, players_merged, started_at, completed_at, COALESCE(error, '')
		FROM merge_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.MergeRun
	for rows.Next() {
		var r model.MergeRun
		if err := rows.Scan(&r.ID, &r.Season, &r.Status, &r.PlayersMerged, &r.StartedAt, &r.CompletedAt, &r.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func scanSQLiteSnapshot(row interface{ Scan(...any) error }) (*model.Snapshot, error) {
	var (
		snap    model.Snapshot
		history string
		class   string
	)
	if err := row.Scan(
		&snap.PlayerName, &snap.Height, &snap.College, &snap.Country,
		&snap.DraftYear, &snap.DraftRound, &snap.DraftNumber,
		&history, &class, &snap.SeasonsSinceActive, &snap.CurrentSeason,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(history), &snap.History); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal history for %s", snap.PlayerName)
	}
	snap.ScoringClass = model.ScoringClass(class)
	return &snap, nil
}
