package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	csvFullTableRows = 10
	csvPreviewRows   = 5
)

func summarizeCSV(data []byte) (string, string, error) {
	decoded, enc, err := Decode(data)
	if err != nil {
		return "", "", err
	}

	r := csv.NewReader(strings.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", "", invalid("Could not read CSV: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return "", "", invalid("CSV file has no rows.")
	}

	header, rows := records[0], records[1:]

	var b strings.Builder
	fmt.Fprintf(&b, "CSV summary: %d rows, %d columns\n", len(rows), len(header))
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(header, ", "))
	b.WriteString(strings.Join(header, " | "))
	b.WriteByte('\n')

	writeRows := func(rs [][]string) {
		for _, row := range rs {
			b.WriteString(strings.Join(row, " | "))
			b.WriteByte('\n')
		}
	}
	if len(rows) <= csvFullTableRows {
		writeRows(rows)
	} else {
		writeRows(rows[:csvPreviewRows])
		b.WriteString("...\n")
		writeRows(rows[len(rows)-csvPreviewRows:])
	}
	return strings.TrimRight(b.String(), "\n"), enc, nil
}
