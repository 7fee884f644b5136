/*
Package roster converts CSV roster uploads into the raw record maps the
integrity pipeline consumes.

PURPOSE:
  Real-world roster exports are messy: variable column counts, lazy
  quoting, legacy encodings, bilingual headers. This package parses them
  leniently - padding or truncating mismatched rows with a per-row
  warning, never silently dropping data - and maps known columns onto
  the employee-record contract. Every column that is not a recognized
  metadata column is treated as a competency column.

DELIBERATELY DUMB MAPPING:
  Column mapping is a fixed alias table, nothing fuzzier. Guessing
  column meanings is out of scope; unknown headers simply become
  competency names and the integrity pipeline judges the values.

USAGE:
  result, err := roster.Parse(uploadBytes)
  if err != nil { ... }
  outcome := pipeline.RunRecords(result.Records(), policy)

SEE ALSO:
  - encoding.go: Encoding detection for the raw bytes
*/
package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RowWarning is a non-fatal issue tied to one input row (1-indexed, the
// header is row 1).
type RowWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result holds the parsed rows plus parse-level observations.
type Result struct {
	Headers  []string
	Rows     []map[string]string
	Warnings []RowWarning
	Encoding string
}

// metadataAliases maps normalized header names onto record fields. Headers
// appear in both English and Indonesian in the wild.
var metadataAliases = map[string]string{
	"name":                 "name",
	"nama":                 "name",
	"employee":             "name",
	"employee name":        "name",
	"id":                   "id",
	"nip":                  "nip",
	"gol":                  "gol",
	"golongan":             "gol",
	"pangkat":              "pangkat",
	"position":             "position",
	"jabatan":              "position",
	"sub position":         "sub_position",
	"sub_position":         "sub_position",
	"sub jabatan":          "sub_position",
	"organizational level": "organizational_level",
	"organizational_level": "organizational_level",
	"level organisasi":     "organizational_level",
}

// Parse decodes and parses a roster CSV leniently.
func Parse(data []byte) (*Result, error) {
	decoded, encName, err := DetectAndDecode(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	// Mismatched column counts are handled below, not rejected.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row")
		}
		return nil, fmt.Errorf("header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	result := &Result{Headers: headers, Encoding: encName}
	rowNum := 1

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++

		if err != nil {
			result.Warnings = append(result.Warnings, RowWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("parse error, row skipped: %v", err),
			})
			continue
		}

		switch {
		case len(row) < len(headers):
			result.Warnings = append(result.Warnings, RowWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; padded with empty values", len(row), len(headers)),
			})
			padded := make([]string, len(headers))
			copy(padded, row)
			row = padded
		case len(row) > len(headers):
			result.Warnings = append(result.Warnings, RowWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; extra columns dropped", len(row), len(headers)),
			})
			row = row[:len(headers)]
		}

		m := make(map[string]string, len(headers))
		for i, h := range headers {
			m[h] = strings.TrimSpace(row[i])
		}
		result.Rows = append(result.Rows, m)
	}

	return result, nil
}

// Records converts the parsed rows into the raw record maps the integrity
// pipeline validates. Metadata columns map to record fields; every other
// column becomes a performance entry named after its header.
func (r *Result) Records() []any {
	records := make([]any, 0, len(r.Rows))

	for _, row := range r.Rows {
		rec := map[string]any{}
		var perf []any

		for _, h := range r.Headers {
			value := row[h]
			field, known := metadataAliases[strings.ToLower(strings.TrimSpace(h))]
			switch {
			case known && field == "name":
				rec["name"] = value
			case known:
				if value != "" {
					rec[field] = value
				}
			default:
				if value == "" {
					continue // absent score, not a zero
				}
				perf = append(perf, map[string]any{"name": h, "score": value})
			}
		}

		rec["performance"] = perf
		records = append(records, rec)
	}

	return records
}
