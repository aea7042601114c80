package usecase

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

const (
	maxSampleValues = 5
	maxSampleRows   = 3

	numberThreshold  = 0.8
	booleanThreshold = 0.8
	dateThreshold    = 0.6
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006-01",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2006",
	"January 2006",
	"Mon Jan 2 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
}

// AnalyzeSchema infers a column-typed schema from parsed rows. The first row is
// the header; data rows with a different column count are dropped.
func AnalyzeSchema(rows [][]string) (domain.DatasetSchema, error) {
	if len(rows) < 2 {
		return domain.DatasetSchema{}, domain.WrapError(
			domain.ErrInvalidFormat,
			"analyze schema",
			errors.New("dataset must have at least a header row and one data row"),
		)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	kept := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == len(headers) {
			kept = append(kept, row)
		}
	}

	fields := make([]domain.DatasetField, 0, len(headers))
	for col, name := range headers {
		values := columnValues(kept, col)
		fields = append(fields, domain.DatasetField{
			Name:         name,
			Type:         InferColumnType(values),
			SampleValues: distinctPrefix(values, maxSampleValues),
		})
	}

	sampleCount := min(len(kept), maxSampleRows)
	sample := make([]map[string]any, 0, sampleCount)
	for _, row := range kept[:sampleCount] {
		sample = append(sample, rowRecord(headers, row))
	}

	return domain.DatasetSchema{
		Fields:     fields,
		TotalRows:  len(kept),
		SampleData: sample,
	}, nil
}

// InferColumnType applies the majority vote in fixed priority order:
// number, boolean, date, then string.
func InferColumnType(values []string) domain.FieldType {
	if len(values) == 0 {
		return domain.FieldString
	}
	total := float64(len(values))

	var numbers, booleans, dates int
	for _, v := range values {
		if isNumeric(v) {
			numbers++
		}
		if isBooleanLike(v) {
			booleans++
		}
		if isDateLike(v) {
			dates++
		}
	}

	switch {
	case float64(numbers) >= total*numberThreshold:
		return domain.FieldNumber
	case float64(booleans) >= total*booleanThreshold:
		return domain.FieldBoolean
	case float64(dates) >= total*dateThreshold:
		return domain.FieldDate
	default:
		return domain.FieldString
	}
}

func columnValues(rows [][]string, col int) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		v := row[col]
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func distinctPrefix(values []string, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, v := range values {
		if len(out) == limit {
			break
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func rowRecord(headers, row []string) map[string]any {
	record := make(map[string]any, len(headers))
	for i, h := range headers {
		record[h] = row[i]
	}
	return record
}

// isNumeric accepts a whole value in plain float syntax. ISO dates such as
// 2023-01-01 are not numbers.
func isNumeric(v string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return false
	}
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func isBooleanLike(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "1", "0":
		return true
	default:
		return false
	}
}

// isDateLike requires more than four characters so bare years and short
// numbers are not taken for dates.
func isDateLike(v string) bool {
	if len(v) <= 4 {
		return false
	}
	_, ok := parseCalendarDate(strings.TrimSpace(v))
	return ok
}

func parseCalendarDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
