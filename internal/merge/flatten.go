package merge

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/cumulate/internal/model"
)

// Flatten expands a snapshot's history array into one row per element,
// preserving order. N history elements yield exactly N rows; nothing is
// deduplicated or dropped.
func Flatten(s *model.Snapshot) []model.FlatStat {
	rows := make([]model.FlatStat, 0, len(s.History))
	for _, h := range s.History {
		rows = append(rows, model.FlatStat{
			PlayerName:  s.PlayerName,
			Season:      h.Season,
			GamesPlayed: h.GamesPlayed,
			Points:      h.Points,
			Rebounds:    h.Rebounds,
			Assists:     h.Assists,
		})
	}
	return rows
}

// TrendRatio returns latest points divided by first points for a history.
// A zero denominator is substituted with 1 rather than failing. A
// single-element history compares the element against itself; an empty
// history is an error.
func TrendRatio(history []model.SeasonStat) (float64, error) {
	if len(history) == 0 {
		return 0, eris.New("merge: trend ratio of empty history")
	}

	first := history[0].Points
	latest := history[len(history)-1].Points

	if first == 0 {
		first = 1
	}
	return latest / first, nil
}
