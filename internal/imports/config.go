package imports

import (
	"encoding/json"
)

// Known normalized lead fields. Any other mapping target lands in the
// custom-fields map.
const (
	FieldEmail    = "email"
	FieldName     = "name"
	FieldPhone    = "phone"
	FieldCompany  = "company"
	FieldPosition = "position"
)

const (
	TypeEmail  = "email"
	TypePhone  = "phone"
	TypeString = "string"
)

const (
	DuplicateSkip      = "skip"
	DuplicateOverwrite = "overwrite"
)

// ColumnRule maps one CSV column onto a lead field with its validation type.
type ColumnRule struct {
	Column   string `json:"column"`
	Index    int    `json:"index"`
	Field    string `json:"field"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// FieldMapping is the per-job validation rule set.
type FieldMapping struct {
	Columns []ColumnRule `json:"columns"`
}

// ImportConfig is the per-job processing configuration.
type ImportConfig struct {
	DuplicateHandling string `json:"duplicate_handling"`
	Delimiter         string `json:"delimiter"`
	SkipHeader        bool   `json:"skip_header"`
	BatchSize         int    `json:"batch_size"`
}

// DefaultFieldMapping assumes the columns of a standard leads CSV export:
// email, name, phone, company, position.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{Columns: []ColumnRule{
		{Column: "email", Index: 0, Field: FieldEmail, Type: TypeEmail, Required: true},
		{Column: "name", Index: 1, Field: FieldName, Type: TypeString},
		{Column: "phone", Index: 2, Field: FieldPhone, Type: TypePhone},
		{Column: "company", Index: 3, Field: FieldCompany, Type: TypeString},
		{Column: "position", Index: 4, Field: FieldPosition, Type: TypeString},
	}}
}

// ParseFieldMapping decodes the job's stored validation rules, falling back
// to the default mapping when none were supplied.
func ParseFieldMapping(raw []byte) (FieldMapping, error) {
	if len(raw) == 0 {
		return DefaultFieldMapping(), nil
	}
	var m FieldMapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return FieldMapping{}, err
	}
	if len(m.Columns) == 0 {
		return DefaultFieldMapping(), nil
	}
	return m, nil
}

// ParseImportConfig decodes the job's stored processing configuration.
func ParseImportConfig(raw []byte) (ImportConfig, error) {
	cfg := ImportConfig{
		DuplicateHandling: DuplicateSkip,
		Delimiter:         ",",
		SkipHeader:        true,
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ImportConfig{}, err
	}
	if cfg.DuplicateHandling == "" {
		cfg.DuplicateHandling = DuplicateSkip
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = ","
	}
	return cfg, nil
}
