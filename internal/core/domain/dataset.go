package domain

import "time"

type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
)

type DatasetField struct {
	Name         string    `json:"name"`
	Type         FieldType `json:"type"`
	SampleValues []string  `json:"sampleValues"`
}

// DatasetSchema is derived from one uploaded file version and is never mutated;
// re-analysis produces a new value.
type DatasetSchema struct {
	Fields     []DatasetField   `json:"fields"`
	TotalRows  int              `json:"totalRows"`
	SampleData []map[string]any `json:"sampleData"`
}

// Summary reduces the schema to what question generation needs.
func (s DatasetSchema) Summary() SchemaSummary {
	out := SchemaSummary{Fields: make([]SummaryField, 0, len(s.Fields))}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, SummaryField{Name: f.Name, Type: string(f.Type)})
	}
	return out
}

type SummaryField struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

type SchemaSummary struct {
	Fields []SummaryField `json:"fields"`
}

func (s SchemaSummary) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

type DatasetStatus string

const (
	DatasetUploaded   DatasetStatus = "uploaded"
	DatasetProcessing DatasetStatus = "processing"
	DatasetProcessed  DatasetStatus = "processed"
	DatasetError      DatasetStatus = "error"
)

type Dataset struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Name         string         `json:"name"`
	OriginalName string         `json:"original_name"`
	StoragePath  string         `json:"storage_path"`
	FileType     string         `json:"file_type"`
	FileSize     int64          `json:"file_size"`
	Status       DatasetStatus  `json:"status"`
	Schema       *DatasetSchema `json:"schema,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type DatasetPreview struct {
	Lines    []string `json:"preview"`
	RowCount int      `json:"rowCount"`
}
