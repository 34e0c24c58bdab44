// Package merge implements the incremental snapshot merge: one prior-season
// snapshot combined with one current-season observation yields the next
// snapshot row, with an appended history array, a recomputed scoring class,
// and an inactivity counter.
package merge

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cumulate/internal/model"
)

// ErrNoInput is returned when Merge is called with neither a previous
// snapshot nor an observation. The outer-join enumeration guarantees at
// least one side, so hitting this is a caller bug.
var ErrNoInput = eris.New("merge: both previous snapshot and observation are nil")

// Merge produces the next snapshot for one player from the prior snapshot
// and the current season's observation. Either input may be nil, but not
// both. The previous snapshot is never mutated; its history is copied before
// appending.
func Merge(prev *model.Snapshot, obs *model.Observation, ladder Ladder) (*model.Snapshot, error) {
	if prev == nil && obs == nil {
		return nil, ErrNoInput
	}

	next := &model.Snapshot{}

	if prev != nil {
		next.PlayerName = prev.PlayerName
		next.Height = prev.Height
		next.College = prev.College
		next.Country = prev.Country
		next.DraftYear = prev.DraftYear
		next.DraftRound = prev.DraftRound
		next.DraftNumber = prev.DraftNumber

		next.History = slices.Clone(prev.History)
		next.ScoringClass = prev.ScoringClass
		next.SeasonsSinceActive = prev.SeasonsSinceActive + 1
		next.CurrentSeason = prev.CurrentSeason + 1
	}

	if obs != nil {
		coalesce(&next.PlayerName, obs.PlayerName)
		coalesce(&next.Height, obs.Height)
		coalesce(&next.College, obs.College)
		coalesce(&next.Country, obs.Country)
		coalesce(&next.DraftYear, obs.DraftYear)
		coalesce(&next.DraftRound, obs.DraftRound)
		coalesce(&next.DraftNumber, obs.DraftNumber)

		next.History = append(next.History, model.SeasonStat{
			Season:      obs.Season,
			GamesPlayed: obs.GamesPlayed,
			Points:      obs.Points,
			Rebounds:    obs.Rebounds,
			Assists:     obs.Assists,
		})
		next.ScoringClass = ladder.Classify(obs.Points)
		next.SeasonsSinceActive = 0
		next.CurrentSeason = obs.Season
	}

	return next, nil
}

// coalesce sets dst to val when val is non-empty, observation-first.
func coalesce(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}
