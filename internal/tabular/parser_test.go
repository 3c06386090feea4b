package tabular

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"
)

func TestParse_CSV(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantHeaders []string
		wantRows    []Row
	}{
		{
			name:        "simple rectangular",
			input:       "Email,First,Last\na@x.com,Ann,Lee\nb@x.com,Bo,Ray\n",
			wantHeaders: []string{"Email", "First", "Last"},
			wantRows: []Row{
				{"Email": "a@x.com", "First": "Ann", "Last": "Lee"},
				{"Email": "b@x.com", "First": "Bo", "Last": "Ray"},
			},
		},
		{
			name:        "blank rows dropped",
			input:       "Email,First,Last\na@x.com,Ann,Lee\n,,\nb@x.com,Bo,\n",
			wantHeaders: []string{"Email", "First", "Last"},
			wantRows: []Row{
				{"Email": "a@x.com", "First": "Ann", "Last": "Lee"},
				{"Email": "b@x.com", "First": "Bo", "Last": ""},
			},
		},
		{
			name:        "quoted comma is literal",
			input:       "Name,Title\n\"Lee, Ann\",Engineer\n",
			wantHeaders: []string{"Name", "Title"},
			wantRows: []Row{
				{"Name": "Lee, Ann", "Title": "Engineer"},
			},
		},
		{
			name:        "short rows backfilled with empty strings",
			input:       "A,B,C\n1,2\n",
			wantHeaders: []string{"A", "B", "C"},
			wantRows: []Row{
				{"A": "1", "B": "2", "C": ""},
			},
		},
		{
			name:        "CRLF and CR line endings",
			input:       "A,B\r\n1,2\r3,4\r\n",
			wantHeaders: []string{"A", "B"},
			wantRows: []Row{
				{"A": "1", "B": "2"},
				{"A": "3", "B": "4"},
			},
		},
		{
			name:        "headers trimmed",
			input:       " Email , First \nx@y.com,Jo\n",
			wantHeaders: []string{"Email", "First"},
			wantRows: []Row{
				{"Email": "x@y.com", "First": "Jo"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			assertTable(t, got, tt.wantHeaders, tt.wantRows)
		})
	}
}

func TestParse_BOMIdempotence(t *testing.T) {
	plain := []byte("Email,First\na@x.com,Ann\n")
	bommed := append([]byte{0xEF, 0xBB, 0xBF}, plain...)

	got1, err := Parse(plain)
	if err != nil {
		t.Fatalf("Parse(plain) error = %v", err)
	}
	got2, err := Parse(bommed)
	if err != nil {
		t.Fatalf("Parse(bommed) error = %v", err)
	}

	assertTable(t, got2, got1.Headers, got1.Rows)
}

func TestParse_UTF16(t *testing.T) {
	text := "Email,First\na@x.com,Ann\n"

	encoded := utf16.Encode([]rune(text))
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE}) // UTF-16LE BOM
	for _, u := range encoded {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], u)
		buf.Write(b[:])
	}

	got, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	assertTable(t, got, []string{"Email", "First"}, []Row{
		{"Email": "a@x.com", "First": "Ann"},
	})
}

func TestParse_MalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty file", input: ""},
		{name: "whitespace only", input: "   \n\t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("Parse() error = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestParse_XLSX(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Email", "First", "Last"},
		{"a@x.com", "Ann", "Lee"},
		{"b@x.com", "Bo"}, // sparse row: Last missing entirely
	})

	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	assertTable(t, got, []string{"Email", "First", "Last"}, []Row{
		{"Email": "a@x.com", "First": "Ann", "Last": "Lee"},
		{"Email": "b@x.com", "First": "Bo", "Last": ""},
	})
}

func TestParse_XLSXEmptyHeader(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"", "", ""},
		{"a@x.com", "Ann", "Lee"},
	})

	_, err := Parse(data)
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("Parse() error = %v, want ErrMalformedInput", err)
	}
}

func TestParse_CorruptBinaryFallsBackToText(t *testing.T) {
	// ZIP signature but not a real archive: binary decode fails, and the
	// content after the first line is still recoverable as CSV.
	data := []byte("PK\x03\x04junk\nEmail,First\na@x.com,Ann\n")

	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	// The signature line becomes the header row on the text path; the point
	// is that parsing recovers instead of failing outright.
	if len(got.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(got.Rows))
	}
}

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func assertTable(t *testing.T, got *Table, wantHeaders []string, wantRows []Row) {
	t.Helper()

	if len(got.Headers) != len(wantHeaders) {
		t.Fatalf("Headers = %v, want %v", got.Headers, wantHeaders)
	}
	for i, h := range wantHeaders {
		if got.Headers[i] != h {
			t.Fatalf("Headers[%d] = %q, want %q", i, got.Headers[i], h)
		}
	}

	if len(got.Rows) != len(wantRows) {
		t.Fatalf("len(Rows) = %d, want %d", len(got.Rows), len(wantRows))
	}
	for i, want := range wantRows {
		for k, v := range want {
			if got.Rows[i][k] != v {
				t.Errorf("Rows[%d][%q] = %q, want %q", i, k, got.Rows[i][k], v)
			}
		}
	}
}
