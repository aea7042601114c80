package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// readText decodes an uploaded text file. Files with a byte order mark are
// decoded accordingly, valid UTF-8 is kept as is, and anything else is read as
// Windows-1252, the usual export encoding of spreadsheet tools.
func readText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read dataset: %w", err)
	}

	switch {
	case bytes.HasPrefix(raw, utf8BOM), bytes.HasPrefix(raw, utf16LEBOM), bytes.HasPrefix(raw, utf16BEBOM):
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		if err != nil {
			return "", fmt.Errorf("decode dataset: %w", err)
		}
		return string(decoded), nil
	case utf8.Valid(raw):
		return string(raw), nil
	default:
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("decode dataset: %w", err)
		}
		return string(decoded), nil
	}
}

func parseCSV(ctx context.Context, text string) ([][]string, error) {
	lines := strings.Split(text, "\n")
	rows := make([][]string, 0, len(lines))
	for i, line := range lines {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, SplitCSVLine(line))
	}
	return rows, nil
}

// SplitCSVLine splits one line on commas outside double quotes. Quote
// characters are dropped and every field is trimmed. Quoted fields cannot span
// lines.
func SplitCSVLine(line string) []string {
	fields := make([]string, 0, 8)
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

func firstLines(text string, limit int) []string {
	out := make([]string, 0, limit)
	for _, line := range strings.Split(text, "\n") {
		if len(out) == limit {
			break
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func renderCSVLines(rows [][]string, limit int) ([]string, error) {
	out := make([]string, 0, min(limit, len(rows)))
	var buf bytes.Buffer
	for _, row := range rows {
		if len(out) == limit {
			break
		}
		buf.Reset()
		w := csv.NewWriter(&buf)
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("render preview row: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("render preview row: %w", err)
		}
		line := strings.TrimRight(buf.String(), "\r\n")
		if strings.Trim(line, ", ") == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
