// Package tabular turns raw uploaded bytes into a normalized header/row table.
//
// It accepts delimited text (CSV) and binary spreadsheets (XLSX, legacy XLS
// containers). Format detection is signature-based, not extension-based, so a
// mislabeled file still parses. A binary decode failure always falls back to
// the text path: corrupted or renamed files are recoverable as long as their
// content is delimited text.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMalformedInput marks files that cannot yield a header row: empty input,
// an empty worksheet, or a header row with no non-empty cells. Callers reject
// these at upload time; no import job is created.
var ErrMalformedInput = errors.New("malformed input")

// Row is a single data row keyed by header name. Values are trimmed; columns
// missing from the source row are backfilled as empty strings, so every row
// carries every header key.
type Row map[string]string

// Table is the parsed form of an uploaded file.
type Table struct {
	Headers []string
	Rows    []Row
}

// Binary container signatures: ZIP (XLSX et al.) and OLE2 (legacy XLS).
var (
	zipSignature  = []byte{0x50, 0x4B, 0x03, 0x04}
	ole2Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Parse decodes raw file bytes into a Table. Row 1 is the header row; data
// rows with zero non-empty cells are dropped.
func Parse(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrMalformedInput)
	}

	if isBinarySpreadsheet(data) {
		t, err := parseSpreadsheet(data)
		if err == nil {
			return t, nil
		}
		// The one binary-path error worth surfacing: the workbook decoded
		// fine but its header row is empty, so the file is semantically
		// invalid rather than misdetected.
		if errors.Is(err, ErrMalformedInput) {
			return nil, err
		}
		// Anything else falls through to the text path.
	}

	return parseDelimited(data)
}

// isBinarySpreadsheet reports whether the first bytes carry a ZIP or OLE2
// container signature.
func isBinarySpreadsheet(data []byte) bool {
	return bytes.HasPrefix(data, zipSignature) || bytes.HasPrefix(data, ole2Signature)
}

// parseSpreadsheet decodes a binary workbook via excelize and extracts the
// first sheet. Rows whose cells do not align to the header still produce a
// record; missing trailing columns are backfilled during normalization.
func parseSpreadsheet(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no worksheets", ErrMalformedInput)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return buildTable(records)
}

// parseDelimited decodes BOM/UTF-16 variants to UTF-8, normalizes line
// endings, drops blank lines, and tokenizes as RFC 4180 CSV. LazyQuotes
// keeps sloppy real-world quoting recoverable.
func parseDelimited(data []byte) (*Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		records = append(records, rec)
	}

	return buildTable(records)
}

// buildTable converts raw records into a normalized Table: row 1 becomes the
// headers (trimmed), subsequent rows become Row maps with every header key
// present and fully blank rows dropped.
func buildTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrMalformedInput)
	}

	headers := make([]string, len(records[0]))
	nonEmpty := 0
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, fmt.Errorf("%w: header row is empty", ErrMalformedInput)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			val := ""
			if i < len(rec) {
				val = strings.TrimSpace(rec[i])
			}
			if val != "" {
				blank = false
			}
			row[h] = val
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}
