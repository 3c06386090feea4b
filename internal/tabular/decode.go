package tabular

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Byte-order marks recognized on the text path.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText converts raw text bytes to clean UTF-8: byte-order marks are
// stripped, UTF-16 input is transcoded, line endings collapse to LF, and
// blank lines are removed before tokenizing.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE):
		decoded, err := transcodeUTF16(data, unicode.LittleEndian)
		if err != nil {
			return "", err
		}
		data = decoded
	case bytes.HasPrefix(data, bomUTF16BE):
		decoded, err := transcodeUTF16(data, unicode.BigEndian)
		if err != nil {
			return "", err
		}
		data = decoded
	}

	data = replaceInvalidUTF8(data)

	text := string(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return dropBlankLines(text), nil
}

// transcodeUTF16 converts UTF-16 bytes (BOM included) to UTF-8.
func transcodeUTF16(data []byte, endianness unicode.Endianness) ([]byte, error) {
	dec := unicode.UTF16(endianness, unicode.ExpectBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// replaceInvalidUTF8 substitutes the replacement rune for invalid byte
// sequences so the CSV reader never chokes on stray binary garbage.
func replaceInvalidUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
			continue
		}
		buf.WriteRune(r)
		data = data[size:]
	}
	return buf.Bytes()
}

// dropBlankLines removes lines that are empty or whitespace-only. This runs
// before tokenizing, so an entirely blank line inside a quoted multi-line
// field is also removed.
func dropBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
