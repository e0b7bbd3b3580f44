// Package ingest loads link export CSVs into records.
//
// Crawler exports come in many shapes: tab, semicolon or comma separated,
// UTF-8 or Windows-1252, with French or English column headers. This
// package absorbs that variety at the boundary so every later stage works
// on one clean record type.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/orneryd/linkaudit/pkg/records"
)

// maxRows caps ingestion to keep memory bounded on runaway exports.
const maxRows = 500000

// maxRowDiagnostics bounds the per-row skip messages kept in the summary.
const maxRowDiagnostics = 5

var (
	// ErrMissingColumns means no source or destination column was found.
	ErrMissingColumns = errors.New("ingest: source and destination columns are required")

	// ErrNoRecords means the file parsed but produced zero usable rows.
	ErrNoRecords = errors.New("ingest: no usable records in file")
)

// Summary describes how a file was interpreted.
type Summary struct {
	Encoding  string   `json:"encoding"`
	Delimiter string   `json:"delimiter"`
	Rows      int      `json:"rows"`
	Skipped   int      `json:"skipped"`
	Truncated bool     `json:"truncated"`
	Warnings  []string `json:"warnings,omitempty"`
}

// columnMapping holds the resolved header index per record field, -1 when
// the column is absent.
type columnMapping struct {
	source   int
	dest     int
	anchor   int
	origin   int
	linkType int
	domPath  int
}

// LoadFile reads and parses the CSV at path.
func LoadFile(path string) ([]records.LinkRecord, *Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse interprets raw CSV bytes: encoding detection, delimiter sniffing,
// fuzzy header mapping, then row conversion. Rows missing a source or
// destination are skipped with a bounded diagnostic, never a failure.
func Parse(data []byte) ([]records.LinkRecord, *Summary, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, ErrNoRecords
	}

	summary := &Summary{Encoding: "utf-8"}

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			decoded, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to decode file: %w", err)
			}
			summary.Encoding = "iso-8859-1"
		} else {
			summary.Encoding = "windows-1252"
		}
		data = decoded
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	delimiter := sniffDelimiter(data)
	summary.Delimiter = string(delimiter)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	mapping := identifyColumns(header)
	if mapping.source < 0 || mapping.dest < 0 {
		return nil, nil, fmt.Errorf("%w: headers %v", ErrMissingColumns, cleanFields(header))
	}

	var recs []records.LinkRecord
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			summary.Skipped++
			if len(summary.Warnings) < maxRowDiagnostics {
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("row %d: %v", rowNum, err))
			}
			continue
		}
		if len(recs) >= maxRows {
			summary.Truncated = true
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("truncated at %d rows", maxRows))
			break
		}

		rec := records.LinkRecord{
			Source:      field(row, mapping.source),
			Destination: field(row, mapping.dest),
			Anchor:      field(row, mapping.anchor),
			Origin:      field(row, mapping.origin),
			LinkType:    field(row, mapping.linkType),
			DOMPath:     field(row, mapping.domPath),
		}
		if rec.Source == "" || rec.Destination == "" {
			summary.Skipped++
			if len(summary.Warnings) < maxRowDiagnostics {
				summary.Warnings = append(summary.Warnings,
					fmt.Sprintf("row %d: missing source or destination", rowNum))
			}
			continue
		}
		recs = append(recs, rec)
	}

	summary.Rows = len(recs)
	if len(recs) == 0 {
		return nil, summary, ErrNoRecords
	}
	return recs, summary, nil
}

// sniffDelimiter picks the separator from a sample of the file: tabs win
// outright, semicolons beat commas, comma is the fallback.
func sniffDelimiter(data []byte) rune {
	sample := data
	if len(sample) > 2048 {
		sample = sample[:2048]
	}
	tabs := bytes.Count(sample, []byte{'\t'})
	commas := bytes.Count(sample, []byte{','})
	semicolons := bytes.Count(sample, []byte{';'})

	switch {
	case tabs > commas && tabs > semicolons:
		return '\t'
	case semicolons > commas:
		return ';'
	default:
		return ','
	}
}

// cleanFields strips BOM residue, quotes and whitespace from header names.
func cleanFields(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.Trim(strings.TrimSpace(h), "\ufeff\"'")
	}
	return out
}

// identifyColumns maps header names to record fields by fuzzy matching,
// first match per field wins. French and English crawler exports are both
// covered.
func identifyColumns(header []string) columnMapping {
	m := columnMapping{source: -1, dest: -1, anchor: -1, origin: -1, linkType: -1, domPath: -1}

	for i, name := range cleanFields(header) {
		lower := strings.ToLower(name)
		switch {
		case m.source < 0 && strings.Contains(lower, "source"):
			m.source = i
		case m.dest < 0 && containsAny(lower, "destination", "target", "dest"):
			m.dest = i
		case m.anchor < 0 && containsAny(lower, "anchor", "ancrage", "link text", "text"):
			m.anchor = i
		case m.origin < 0 && containsAny(lower, "origin", "origine"):
			m.origin = i
		case m.linkType < 0 && strings.Contains(lower, "type"):
			m.linkType = i
		case m.domPath < 0 && containsAny(lower, "xpath", "chemin", "path"):
			m.domPath = i
		}
	}
	return m
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
