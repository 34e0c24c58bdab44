// Package model defines the cumulative snapshot data model: per-season raw
// observations, the snapshot row with its embedded history array, and the
// merge run log entry.
package model

import "time"

// ScoringClass is the derived category computed from a player's most recent
// points-per-game value.
type ScoringClass string

const (
	ClassStar    ScoringClass = "star"
	ClassGood    ScoringClass = "good"
	ClassAverage ScoringClass = "average"
	ClassBad     ScoringClass = "bad"
)

// RunStatus represents the state of a merge run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// SeasonStat is one element of a snapshot's history array: a single season's
// observed metrics. History is append-only and ordered by season.
type SeasonStat struct {
	Season      int     `json:"season"`
	GamesPlayed int     `json:"gp"`
	Points      float64 `json:"pts"`
	Rebounds    float64 `json:"reb"`
	Assists     float64 `json:"ast"`
}

// Observation is one season's raw input row for a player, as loaded into the
// player_seasons table.
type Observation struct {
	PlayerName  string  `json:"player_name"`
	Season      int     `json:"season"`
	GamesPlayed int     `json:"gp"`
	Points      float64 `json:"pts"`
	Rebounds    float64 `json:"reb"`
	Assists     float64 `json:"ast"`

	// Slowly-changing descriptive attributes, may be empty on any given row.
	Height      string `json:"height,omitempty"`
	College     string `json:"college,omitempty"`
	Country     string `json:"country,omitempty"`
	DraftYear   string `json:"draft_year,omitempty"`
	DraftRound  string `json:"draft_round,omitempty"`
	DraftNumber string `json:"draft_number,omitempty"`
}

// Snapshot is one cumulative snapshot row: the full state of a player as of
// CurrentSeason. Each merge step writes a new row keyed by
// (PlayerName, CurrentSeason); prior rows are never updated.
type Snapshot struct {
	PlayerName  string `json:"player_name"`
	Height      string `json:"height,omitempty"`
	College     string `json:"college,omitempty"`
	Country     string `json:"country,omitempty"`
	DraftYear   string `json:"draft_year,omitempty"`
	DraftRound  string `json:"draft_round,omitempty"`
	DraftNumber string `json:"draft_number,omitempty"`

	History            []SeasonStat `json:"season_stats"`
	ScoringClass       ScoringClass `json:"scoring_class"`
	SeasonsSinceActive int          `json:"seasons_since_active"`
	CurrentSeason      int          `json:"current_season"`
}

// Latest returns the most recent history element, or nil when the history is
// empty.
func (s *Snapshot) Latest() *SeasonStat {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}

// FlatStat is one row of a flattened history: the snapshot identity joined
// with a single history element.
type FlatStat struct {
	PlayerName  string  `json:"player_name"`
	Season      int     `json:"season"`
	GamesPlayed int     `json:"gp"`
	Points      float64 `json:"pts"`
	Rebounds    float64 `json:"reb"`
	Assists     float64 `json:"ast"`
}

// MergeRun is one row of the merge run log.
type MergeRun struct {
	ID            string     `json:"id"`
	Season        int        `json:"season"`
	Status        RunStatus  `json:"status"`
	PlayersMerged int64      `json:"players_merged"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}
