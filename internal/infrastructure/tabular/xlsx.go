package tabular

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

// readWorkbook reads the first sheet. excelize trims trailing empty cells, so
// data rows are padded to the header width to keep column positions aligned.
func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidFormat, "open workbook", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, domain.WrapError(domain.ErrInvalidFormat, "open workbook", errors.New("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidFormat, "read workbook rows", fmt.Errorf("sheet %q: %w", sheet, err))
	}

	out := make([][]string, 0, len(rows))
	width := 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if width == 0 {
			width = len(row)
			out = append(out, row)
			continue
		}
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		out = append(out, row)
	}
	return out, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
