package tabular

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

// Parser turns stored CSV and XLSX uploads into string rows. The first row is
// always the header row as found in the file.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) ReadRows(ctx context.Context, r io.Reader, fileType string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch fileType {
	case FileTypeCSV:
		text, err := readText(r)
		if err != nil {
			return nil, err
		}
		return parseCSV(ctx, text)
	case FileTypeXLSX:
		return readWorkbook(r)
	default:
		return nil, domain.WrapError(domain.ErrInvalidFormat, "read rows", fmt.Errorf("unsupported file type %q", fileType))
	}
}

// Preview returns up to maxLines non-empty lines of the file as CSV text.
// Workbooks are rendered sheet-to-CSV first.
func (p *Parser) Preview(ctx context.Context, r io.Reader, fileType string, maxLines int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxLines <= 0 {
		return []string{}, nil
	}

	switch fileType {
	case FileTypeCSV:
		text, err := readText(r)
		if err != nil {
			return nil, err
		}
		return firstLines(text, maxLines), nil
	case FileTypeXLSX:
		rows, err := readWorkbook(r)
		if err != nil {
			return nil, err
		}
		return renderCSVLines(rows, maxLines)
	default:
		return nil, domain.WrapError(domain.ErrInvalidFormat, "preview", fmt.Errorf("unsupported file type %q", fileType))
	}
}
