package engine

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cumulate/internal/merge"
	"github.com/sells-group/cumulate/internal/model"
)

func TestRunSeason_FirstSeason(t *testing.T) {
	store := newFakeStore()
	store.observations[2000] = []model.Observation{
		{PlayerName: "Alpha", Season: 2000, Points: 22},
		{PlayerName: "Beta", Season: 2000, Points: 9},
	}

	e := New(store, merge.DefaultLadder(), 4)
	res, err := e.RunSeason(context.Background(), 2000)
	require.NoError(t, err)

	assert.Equal(t, 2, res.PlayersMerged)
	assert.Equal(t, int64(2), res.RowsWritten)

	snaps := store.snapshots[2000]
	require.Len(t, snaps, 2)
	assert.Equal(t, "Alpha", snaps[0].PlayerName)
	assert.Equal(t, model.ClassStar, snaps[0].ScoringClass)
	require.Len(t, snaps[0].History, 1)
	assert.Equal(t, 0, snaps[0].SeasonsSinceActive)
	assert.Equal(t, model.ClassBad, snaps[1].ScoringClass)

	require.Len(t, store.runs, 1)
	assert.Equal(t, model.RunStatusComplete, store.runs[0].Status)
	assert.Equal(t, int64(2), store.runs[0].PlayersMerged)
}

func TestRunSeason_OuterJoin(t *testing.T) {
	store := newFakeStore()
	store.snapshots[2000] = []model.Snapshot{
		{
			PlayerName:    "Alpha",
			History:       []model.SeasonStat{{Season: 2000, Points: 18}},
			ScoringClass:  model.ClassGood,
			CurrentSeason: 2000,
		},
		{
			PlayerName:    "Gone",
			History:       []model.SeasonStat{{Season: 2000, Points: 12}},
			ScoringClass:  model.ClassAverage,
			CurrentSeason: 2000,
		},
	}
	store.observations[2001] = []model.Observation{
		{PlayerName: "Alpha", Season: 2001, Points: 22},
		{PlayerName: "Rookie", Season: 2001, Points: 16},
	}

	e := New(store, merge.DefaultLadder(), 1)
	res, err := e.RunSeason(context.Background(), 2001)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PlayersMerged)

	snaps := store.snapshots[2001]
	require.Len(t, snaps, 3)

	byName := map[string]model.Snapshot{}
	for _, s := range snaps {
		byName[s.PlayerName] = s
	}

	// Observed on both sides: history appended, reclassified.
	alpha := byName["Alpha"]
	require.Len(t, alpha.History, 2)
	assert.Equal(t, model.ClassStar, alpha.ScoringClass)
	assert.Equal(t, 0, alpha.SeasonsSinceActive)
	assert.Equal(t, 2001, alpha.CurrentSeason)

	// Previous-only: carried forward with the counter bumped.
	gone := byName["Gone"]
	require.Len(t, gone.History, 1)
	assert.Equal(t, model.ClassAverage, gone.ScoringClass)
	assert.Equal(t, 1, gone.SeasonsSinceActive)
	assert.Equal(t, 2001, gone.CurrentSeason)

	// Observation-only: singleton history.
	rookie := byName["Rookie"]
	require.Len(t, rookie.History, 1)
	assert.Equal(t, model.ClassGood, rookie.ScoringClass)
	assert.Equal(t, 0, rookie.SeasonsSinceActive)
}

func TestRunSeason_EmptyInputs(t *testing.T) {
	store := newFakeStore()

	e := New(store, merge.DefaultLadder(), 2)
	res, err := e.RunSeason(context.Background(), 2000)
	require.NoError(t, err)

	assert.Equal(t, 0, res.PlayersMerged)
	assert.Empty(t, store.snapshots[2000])
	require.Len(t, store.runs, 1)
	assert.Equal(t, model.RunStatusComplete, store.runs[0].Status)
}

func TestRunSeason_WriteFailureRecordsFailedRun(t *testing.T) {
	store := newFakeStore()
	store.observations[2000] = []model.Observation{{PlayerName: "Alpha", Season: 2000, Points: 5}}
	store.writeErr = eris.New("disk full")

	e := New(store, merge.DefaultLadder(), 2)
	_, err := e.RunSeason(context.Background(), 2000)
	require.Error(t, err)

	require.Len(t, store.runs, 1)
	assert.Equal(t, model.RunStatusFailed, store.runs[0].Status)
	assert.Contains(t, store.runs[0].Error, "disk full")
}

func TestBackfill(t *testing.T) {
	store := newFakeStore()
	store.observations[2000] = []model.Observation{{PlayerName: "Alpha", Season: 2000, Points: 22}}
	store.observations[2001] = []model.Observation{{PlayerName: "Alpha", Season: 2001, Points: 8}}
	// 2002: Alpha unobserved.
	store.observations[2003] = []model.Observation{{PlayerName: "Alpha", Season: 2003, Points: 30}}

	e := New(store, merge.DefaultLadder(), 2)
	results, err := e.Backfill(context.Background(), 2000, 2003)
	require.NoError(t, err)
	require.Len(t, results, 4)

	final := store.snapshots[2003]
	require.Len(t, final, 1)
	alpha := final[0]

	// Three observed seasons over a four-season backfill.
	require.Len(t, alpha.History, 3)
	assert.Equal(t, []int{2000, 2001, 2003}, []int{
		alpha.History[0].Season, alpha.History[1].Season, alpha.History[2].Season,
	})
	assert.Equal(t, 0, alpha.SeasonsSinceActive)
	assert.Equal(t, model.ClassStar, alpha.ScoringClass)

	// The 2002 row kept the 2001 class while the counter ticked.
	gap := store.snapshots[2002]
	require.Len(t, gap, 1)
	assert.Equal(t, 1, gap[0].SeasonsSinceActive)
	assert.Equal(t, model.ClassBad, gap[0].ScoringClass)
}

func TestBackfill_InvertedRange(t *testing.T) {
	e := New(newFakeStore(), merge.DefaultLadder(), 1)
	_, err := e.Backfill(context.Background(), 2005, 2000)
	require.Error(t, err)
}

func TestOuterJoin_Deterministic(t *testing.T) {
	prev := []model.Snapshot{{PlayerName: "Zed"}, {PlayerName: "Amy"}}
	obs := []model.Observation{{PlayerName: "Mia"}, {PlayerName: "Amy"}}

	pairs := outerJoin(prev, obs)
	require.Len(t, pairs, 3)
	assert.Equal(t, "Amy", pairs[0].name)
	assert.Equal(t, "Mia", pairs[1].name)
	assert.Equal(t, "Zed", pairs[2].name)

	assert.NotNil(t, pairs[0].prev)
	assert.NotNil(t, pairs[0].obs)
	assert.Nil(t, pairs[1].prev)
	assert.Nil(t, pairs[2].obs)
}
