// Package export writes snapshot sets and flattened histories to CSV or
// XLSX files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cumulate/internal/model"
)

var snapshotHeader = []string{
	"player_name", "height", "college", "country",
	"draft_year", "draft_round", "draft_number",
	"season_stats", "scoring_class", "seasons_since_active", "current_season",
}

var flatHeader = []string{"player_name", "season", "gp", "pts", "reb", "ast"}

// Snapshots writes a snapshot set to path; the extension picks the format
// (.csv or .xlsx). History arrays are serialized as JSON in a single column.
func Snapshots(path string, snaps []model.Snapshot) error {
	rows := make([][]string, 0, len(snaps))
	for i := range snaps {
		s := &snaps[i]
		history, err := json.Marshal(s.History)
		if err != nil {
			return eris.Wrapf(err, "export: marshal history for %s", s.PlayerName)
		}
		rows = append(rows, []string{
			s.PlayerName, s.Height, s.College, s.Country,
			s.DraftYear, s.DraftRound, s.DraftNumber,
			string(history), string(s.ScoringClass),
			strconv.Itoa(s.SeasonsSinceActive), strconv.Itoa(s.CurrentSeason),
		})
	}
	return write(path, snapshotHeader, rows)
}

// Flat writes flattened history rows to path; the extension picks the format.
func Flat(path string, flats []model.FlatStat) error {
	rows := make([][]string, 0, len(flats))
	for _, f := range flats {
		rows = append(rows, []string{
			f.PlayerName, strconv.Itoa(f.Season), strconv.Itoa(f.GamesPlayed),
			formatFloat(f.Points), formatFloat(f.Rebounds), formatFloat(f.Assists),
		})
	}
	return write(path, flatHeader, rows)
}

func write(path string, header []string, rows [][]string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return writeCSV(path, header, rows)
	case ".xlsx":
		return writeXLSX(path, header, rows)
	default:
		return eris.Errorf("export: unsupported file type %q", filepath.Ext(path))
	}
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush csv")
}

func writeXLSX(path string, header []string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("snapshots")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	addRow := func(cells []string) {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}

	addRow(header)
	for _, row := range rows {
		addRow(row)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
