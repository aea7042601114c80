package tabular

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

func TestSplitCSVLineKeepsQuotedCommas(t *testing.T) {
	got := SplitCSVLine(`a, "b,c" ,d`)
	assert.Equal(t, []string{"a", "b,c", "d"}, got)
}

func TestSplitCSVLineKeepsEmptyTrailingField(t *testing.T) {
	got := SplitCSVLine("a,b,")
	assert.Equal(t, []string{"a", "b", ""}, got)
}

func TestReadRowsCSVSkipsBlankLinesAndCarriageReturns(t *testing.T) {
	input := "name,title\r\n\r\nAlice,\"CEO, Founder\"\r\n  \nBob,CTO\n"

	rows, err := NewParser().ReadRows(context.Background(), strings.NewReader(input), FileTypeCSV)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "title"},
		{"Alice", "CEO, Founder"},
		{"Bob", "CTO"},
	}, rows)
}

func TestReadRowsDecodesWindows1252(t *testing.T) {
	input := []byte("name,city\nJos\xe9,Montr\xe9al\n")

	rows, err := NewParser().ReadRows(context.Background(), bytes.NewReader(input), FileTypeCSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"José", "Montréal"}, rows[1])
}

func TestReadRowsDecodesUTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	input, err := enc.String("name,score\nAlice,42\n")
	require.NoError(t, err)

	rows, err := NewParser().ReadRows(context.Background(), strings.NewReader(input), FileTypeCSV)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "score"}, {"Alice", "42"}}, rows)
}

func TestReadRowsStripsUTF8BOM(t *testing.T) {
	input := "\xEF\xBB\xBFname\nAlice\n"

	rows, err := NewParser().ReadRows(context.Background(), strings.NewReader(input), FileTypeCSV)
	require.NoError(t, err)
	assert.Equal(t, "name", rows[0][0])
}

func TestReadRowsXLSXPadsShortRows(t *testing.T) {
	data := workbook(t, [][]any{
		{"name", "title", "company"},
		{"Alice", "CEO", "Acme"},
		{"Bob", "CTO"},
	})

	rows, err := NewParser().ReadRows(context.Background(), bytes.NewReader(data), FileTypeXLSX)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Bob", "CTO", ""}, rows[2])
}

func TestReadRowsRejectsCorruptWorkbook(t *testing.T) {
	_, err := NewParser().ReadRows(context.Background(), strings.NewReader("not a zip"), FileTypeXLSX)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidFormat))
}

func TestReadRowsRejectsUnknownType(t *testing.T) {
	_, err := NewParser().ReadRows(context.Background(), strings.NewReader("a"), "json")
	assert.True(t, domain.IsKind(err, domain.ErrInvalidFormat))
}

func TestReadRowsHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ReadRows(ctx, strings.NewReader("a\n1\n"), FileTypeCSV)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreviewCSVReturnsFirstNonEmptyLines(t *testing.T) {
	input := "h1,h2\n\n1,2\r\n3,4\n5,6\n"

	lines, err := NewParser().Preview(context.Background(), strings.NewReader(input), FileTypeCSV, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1,h2", "1,2", "3,4"}, lines)
}

func TestPreviewXLSXRendersCSV(t *testing.T) {
	data := workbook(t, [][]any{
		{"name", "title"},
		{"Alice", "CEO, Founder"},
	})

	lines, err := NewParser().Preview(context.Background(), bytes.NewReader(data), FileTypeXLSX, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"name,title", `Alice,"CEO, Founder"`}, lines)
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}
