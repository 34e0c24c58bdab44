package snapshot

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cumulate/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func snapshotRows(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	return mock.NewRows([]string{
		"player_name", "height", "college", "country", "draft_year", "draft_round", "draft_number",
		"season_stats", "scoring_class", "seasons_since_active", "current_season",
	})
}

func TestPostgres_Snapshots(t *testing.T) {
	s, mock := newMockStore(t)

	rows := snapshotRows(mock).
		AddRow("Alpha", "6-6", "Duke", "USA", "1999", "1", "5",
			[]byte(`[{"season":2000,"gp":70,"pts":18,"reb":5,"ast":3}]`), "good", 0, 2000).
		AddRow("Beta", "", "", "", "", "", "",
			[]byte(`[]`), "bad", 2, 2000)

	mock.ExpectQuery(regexp.QuoteMeta("FROM players")).
		WithArgs(2000).
		WillReturnRows(rows)

	got, err := s.Snapshots(context.Background(), 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].PlayerName)
	require.Len(t, got[0].History, 1)
	assert.InDelta(t, 18, got[0].History[0].Points, 0.001)
	assert.Equal(t, model.ScoringClass("good"), got[0].ScoringClass)
	assert.Empty(t, got[1].History)
	assert.Equal(t, 2, got[1].SeasonsSinceActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestSnapshot_NoRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM players")).
		WithArgs("Nobody").
		WillReturnRows(snapshotRows(mock))

	got, err := s.LatestSnapshot(context.Background(), "Nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestSnapshot_BadHistoryJSON(t *testing.T) {
	s, mock := newMockStore(t)

	rows := snapshotRows(mock).
		AddRow("Alpha", "", "", "", "", "", "", []byte(`{not json`), "bad", 0, 2000)

	mock.ExpectQuery(regexp.QuoteMeta("FROM players")).
		WithArgs("Alpha").
		WillReturnRows(rows)

	_, err := s.LatestSnapshot(context.Background(), "Alpha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal history")
}

func TestPostgres_DeleteObservations(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM player_seasons WHERE season = $1")).
		WithArgs(2000).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := s.DeleteObservations(context.Background(), 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RunLog(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO merge_runs")).
		WithArgs(pgxmock.AnyArg(), 2001).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.StartRun(ctx, 2001)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'complete'")).
		WithArgs(int64(12), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteRun(ctx, id, 12))

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'failed'")).
		WithArgs("boom", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailRun(ctx, id, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns(t *testing.T) {
	s, mock := newMockStore(t)

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(3 * time.Second)

	rows := mock.NewRows([]string{"id", "season", "status", "players_merged", "started_at", "completed_at", "coalesce"}).
		AddRow("run-1", 2001, "complete", int64(40), started, &completed, "").
		AddRow("run-2", 2000, "failed", int64(0), started.Add(-time.Hour), &completed, "boom")

	mock.ExpectQuery(regexp.QuoteMeta("FROM merge_runs")).
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, int64(40), runs[0].PlayersMerged)
	assert.Equal(t, "boom", runs[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}
