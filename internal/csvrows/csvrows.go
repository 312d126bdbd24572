// Package csvrows parses CSV exports into typed destination records.
package csvrows

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dvloznov/inventory-refresher/internal/record"
)

// Parse reads CSV text whose first row holds the field names and returns one
// record per non-blank data row. Cell values are coerced with Coerce; header
// names are only trimmed. Rows shorter or longer than the header are accepted.
func Parse(content string) ([]record.Fields, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvrows: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []record.Fields
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvrows: read row: %w", err)
		}
		if isBlank(cells) {
			continue
		}

		row := make(record.Fields, len(header))
		for i, cell := range cells {
			if i >= len(header) {
				break
			}
			row[header[i]] = Coerce(cell)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Coerce converts a raw cell into a number, boolean or string.
//
// A trimmed cell becomes a number only when formatting the parsed number
// yields the identical text, so "42" and "4.5" are numbers while "007",
// "4.50" and "1e3" stay strings. "true" and "false" match case-insensitively.
func Coerce(raw string) record.Value {
	v := strings.TrimSpace(raw)
	if v == "" {
		return record.String("")
	}
	if n, ok := parseCanonicalNumber(v); ok {
		return record.Number(n)
	}
	switch strings.ToLower(v) {
	case "true":
		return record.Bool(true)
	case "false":
		return record.Bool(false)
	}
	return record.String(v)
}

func parseCanonicalNumber(v string) (float64, bool) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	if n == 0 && v != "0" {
		// rejects "-0", which formats as "0"
		return 0, false
	}
	return n, formatNumber(n) == v
}

// formatNumber renders n in the shortest canonical form, switching to
// exponent notation (1e+21, 1e-7) outside [1e-6, 1e21).
func formatNumber(n float64) string {
	abs := math.Abs(n)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(n, 'e', -1, 64), "e")
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + exp[:1] + digits
}

// isBlank reports a whitespace-only line. encoding/csv already drops empty ones.
func isBlank(cells []string) bool {
	return len(cells) == 1 && strings.TrimSpace(cells[0]) == ""
}
