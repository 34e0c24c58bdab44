package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/cumulate/internal/model"
)

// fakeStore is an in-memory snapshot.Store for engine tests.
type fakeStore struct {
	snapshots    map[int][]model.Snapshot
	observations map[int][]model.Observation
	runs         []model.MergeRun

	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshots:    map[int][]model.Snapshot{},
		observations: map[int][]model.Observation{},
	}
}

func (f *fakeStore) Snapshots(_ context.Context, season int) ([]model.Snapshot, error) {
	return f.snapshots[season], nil
}

func (f *fakeStore) LatestSnapshot(_ context.Context, playerName string) (*model.Snapshot, error) {
	var latest *model.Snapshot
	for _, snaps := range f.snapshots {
		for i := range snaps {
			if snaps[i].PlayerName != playerName {
				continue
			}
			if latest == nil || snaps[i].CurrentSeason > latest.CurrentSeason {
				latest = &snaps[i]
			}
		}
	}
	return latest, nil
}

func (f *fakeStore) WriteSnapshots(_ context.Context, snaps []model.Snapshot) (int64, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	for _, s := range snaps {
		f.snapshots[s.CurrentSeason] = append(f.snapshots[s.CurrentSeason], s)
	}
	return int64(len(snaps)), nil
}

func (f *fakeStore) Observations(_ context.Context, season int) ([]model.Observation, error) {
	return f.observations[season], nil
}

func (f *fakeStore) InsertObservations(_ context.Context, obs []model.Observation) (int64, error) {
	for _, o := range obs {
		f.observations[o.Season] = append(f.observations[o.Season], o)
	}
	return int64(len(obs)), nil
}

func (f *fakeStore) DeleteObservations(_ context.Context, season int) (int64, error) {
	n := int64(len(f.observations[season]))
	delete(f.observations, season)
	return n, nil
}

func (f *fakeStore) StartRun(_ context.Context, season int) (string, error) {
	id := fmt.Sprintf("run-%d", len(f.runs)+1)
	f.runs = append(f.runs, model.MergeRun{
		ID:        id,
		Season:    season,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	})
	return id, nil
}

func (f *fakeStore) CompleteRun(_ context.Context, runID string, playersMerged int64) error {
	return f.finishRun(runID, model.RunStatusComplete, playersMerged, "")
}

func (f *fakeStore) FailRun(_ context.Context, runID string, errMsg string) error {
	return f.finishRun(runID, model.RunStatusFailed, 0, errMsg)
}

func (f *fakeStore) finishRun(runID string, status model.RunStatus, merged int64, errMsg string) error {
	for i := range f.runs {
		if f.runs[i].ID != runID {
			continue
		}
		now := time.Now().UTC()
		f.runs[i].Status = status
		f.runs[i].PlayersMerged = merged
		f.runs[i].Error = errMsg
		f.runs[i].CompletedAt = &now
		return nil
	}
	return fmt.Errorf("unknown run %s", runID)
}

func (f *fakeStore) ListRuns(_ context.Context, _ int) ([]model.MergeRun, error) {
	return f.runs, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }
