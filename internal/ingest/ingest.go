// Package ingest loads raw per-season observations from CSV and XLSX files,
// local or remote, into the observation table.
package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cumulate/internal/fetcher"
	"github.com/sells-group/cumulate/internal/model"
	"github.com/sells-group/cumulate/internal/snapshot"
)

// Options configures an observation load.
type Options struct {
	Sheet   string // XLSX sheet name; empty = first sheet
	Season  int    // if set, overrides the file's season column
	Replace bool   // delete existing observations for affected seasons first
}

// columnAliases maps accepted header names to canonical field keys.
var columnAliases = map[string]string{
	"player_name":  "player_name",
	"player":       "player_name",
	"name":         "player_name",
	"season":       "season",
	"year":         "season",
	"gp":           "gp",
	"games_played": "gp",
	"pts":          "pts",
	"points":       "pts",
	"reb":          "reb",
	"rebounds":     "reb",
	"ast":          "ast",
	"assists":      "ast",
	"height":       "height",
	"college":      "college",
	"country":      "country",
	"draft_year":   "draft_year",
	"draft_round":  "draft_round",
	"draft_number": "draft_number",
}

// Load reads observations from ref (local path or http/ftp URL, .csv or
// .xlsx) and inserts them into the store. Returns the number of rows loaded.
func Load(ctx context.Context, store snapshot.Store, ref string, opts Options) (int64, error) {
	header, rows, err := readRows(ctx, ref, opts)
	if err != nil {
		return 0, err
	}

	obs, err := ParseRows(header, rows, opts.Season)
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}

	if opts.Replace {
		seasons := map[int]bool{}
		for _, o := range obs {
			seasons[o.Season] = true
		}
		for season := range seasons {
			deleted, err := store.DeleteObservations(ctx, season)
			if err != nil {
				return 0, err
			}
			if deleted > 0 {
				zap.L().Info("replaced observations",
					zap.Int("season", season),
					zap.Int64("deleted", deleted),
				)
			}
		}
	}

	return store.InsertObservations(ctx, obs)
}

// ParseRows maps header-addressed string rows to observations. A season
// override of 0 means the file must carry a season column.
func ParseRows(header []string, rows [][]string, seasonOverride int) ([]model.Observation, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		cols[key] = i
	}

	if _, ok := cols["player_name"]; !ok {
		return nil, eris.New("ingest: no player_name column in header")
	}
	if _, ok := cols["season"]; !ok && seasonOverride == 0 {
		return nil, eris.New("ingest: no season column in header and no --season override")
	}

	obs := make([]model.Observation, 0, len(rows))
	for i, row := range rows {
		get := func(key string) string {
			idx, ok := cols[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		name := get("player_name")
		if name == "" {
			continue
		}

		o := model.Observation{
			PlayerName:  name,
			Season:      seasonOverride,
			Height:      get("height"),
			College:     get("college"),
			Country:     get("country"),
			DraftYear:   get("draft_year"),
			DraftRound:  get("draft_round"),
			DraftNumber: get("draft_number"),
		}

		var err error
		if o.Season == 0 {
			if o.Season, err = strconv.Atoi(get("season")); err != nil {
				return nil, eris.Wrapf(err, "ingest: row %d: bad season %q", i+2, get("season"))
			}
		}
		if o.GamesPlayed, err = parseIntField(get("gp")); err != nil {
			return nil, eris.Wrapf(err, "ingest: row %d: bad gp", i+2)
		}
		if o.Points, err = parseFloatField(get("pts")); err != nil {
			return nil, eris.Wrapf(err, "ingest: row %d: bad pts", i+2)
		}
		if o.Rebounds, err = parseFloatField(get("reb")); err != nil {
			return nil, eris.Wrapf(err, "ingest: row %d: bad reb", i+2)
		}
		if o.Assists, err = parseFloatField(get("ast")); err != nil {
			return nil, eris.Wrapf(err, "ingest: row %d: bad ast", i+2)
		}

		obs = append(obs, o)
	}

	return obs, nil
}

func readRows(ctx context.Context, ref string, opts Options) ([]string, [][]string, error) {
	ext := strings.ToLower(filepath.Ext(strings.SplitN(ref, "?", 2)[0]))
	switch ext {
	case ".csv":
		rc, err := fetcher.Open(ctx, ref)
		if err != nil {
			return nil, nil, err
		}
		defer rc.Close()
		return fetcher.ReadCSV(rc, fetcher.CSVOptions{TrimSpace: true})
	case ".xlsx":
		path, cleanup, err := localPath(ctx, ref)
		if err != nil {
			return nil, nil, err
		}
		defer cleanup()
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: opts.Sheet})
	default:
		return nil, nil, eris.Errorf("ingest: unsupported file type %q", ext)
	}
}

// localPath returns a local file path for ref, downloading remote refs to a
// temp file. XLSX parsing needs random access.
func localPath(ctx context.Context, ref string) (string, func(), error) {
	if !strings.Contains(ref, "://") {
		return ref, func() {}, nil
	}

	rc, err := fetcher.Open(ctx, ref)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "cumulate-ingest-*.xlsx")
	if err != nil {
		return "", nil, eris.Wrap(err, "ingest: create temp file")
	}

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, eris.Wrap(err, "ingest: download to temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, eris.Wrap(err, "ingest: close temp file")
	}

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

func parseIntField(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseFloatField(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
