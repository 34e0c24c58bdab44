package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cumulate/internal/fetcher"
	"github.com/sells-group/cumulate/internal/model"
)

func sampleSnapshots() []model.Snapshot {
	return []model.Snapshot{
		{
			PlayerName: "Alpha",
			College:    "Duke",
			History: []model.SeasonStat{
				{Season: 2000, GamesPlayed: 80, Points: 21.5, Rebounds: 6, Assists: 4},
			},
			ScoringClass:  model.ClassStar,
			CurrentSeason: 2000,
		},
	}
}

func TestSnapshots_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps.csv")
	require.NoError(t, Snapshots(path, sampleSnapshots()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "player_name,height,college")
	assert.Contains(t, content, "Alpha")
	assert.Contains(t, content, `""season"":2000`)
	assert.Contains(t, content, "star")
}

func TestSnapshots_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps.xlsx")
	require.NoError(t, Snapshots(path, sampleSnapshots()))

	header, rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, "player_name", header[0])
	require.Len(t, rows, 1)
	assert.Equal(t, "Alpha", rows[0][0])
	assert.Equal(t, "star", rows[0][8])
}

func TestFlat_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	flats := []model.FlatStat{
		{PlayerName: "Alpha", Season: 2000, GamesPlayed: 80, Points: 21.5},
		{PlayerName: "Alpha", Season: 2001, GamesPlayed: 75, Points: 18},
	}
	require.NoError(t, Flat(path, flats))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "player_name,season,gp,pts,reb,ast")
	assert.Contains(t, content, "Alpha,2000,80,21.5,0,0")
}

func TestWrite_UnsupportedExtension(t *testing.T) {
	err := Snapshots(filepath.Join(t.TempDir(), "snaps.pdf"), sampleSnapshots())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
