package etl

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/quantfolio/pulse/internal/domain"
)

// ReadCSVTable reads a CSV file with a header row into an untyped raw
// table. All cells come back as strings; typing is the normalizer's job.
func ReadCSVTable(path string) (domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to open csv %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return domain.RawTable{}, &domain.SchemaError{Source: path, Reason: "csv file has no header row"}
	}

	header := records[0]
	table := domain.RawTable{
		Columns: header,
		Rows:    make([]domain.RawRecord, 0, len(records)-1),
	}
	for _, record := range records[1:] {
		row := make(domain.RawRecord, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
