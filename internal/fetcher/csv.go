package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter rune // default ','
	TrimSpace bool
}

// ReadCSV parses CSV content into a header row and data rows. The first row
// is always treated as the header.
func ReadCSV(r io.Reader, opts CSVOptions) (header []string, rows [][]string, err error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1 // allow variable fields

	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "fetcher: read csv")
		}

		if opts.TrimSpace {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}

		if first {
			header = record
			first = false
			continue
		}
		rows = append(rows, record)
	}

	if first {
		return nil, nil, eris.New("fetcher: csv has no header row")
	}
	return header, rows, nil
}
