package imports

import (
	"encoding/json"
	"regexp"
	"strings"

	"leadflow/internal/domain/importjob"

	"github.com/google/uuid"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// ValidateRow applies the field mapping to one raw CSV row. It is pure: the
// same row and mapping always produce the same result. Errors accumulate per
// column; validation never short-circuits on the first failure.
func ValidateRow(raw []string, mapping FieldMapping, recordIndex int) (importjob.ValidatedRow, map[string]string) {
	row := importjob.ValidatedRow{
		ID:          uuid.New(),
		RecordIndex: recordIndex,
		Status:      importjob.RowStatusPending,
	}
	columnErrors := make(map[string]string)
	customFields := make(map[string]string)

	for _, rule := range mapping.Columns {
		value := ""
		if rule.Index >= 0 && rule.Index < len(raw) {
			value = strings.TrimSpace(raw[rule.Index])
		}

		if value == "" {
			if rule.Required {
				columnErrors[rule.Column] = "required value is missing"
			}
			continue
		}

		switch rule.Type {
		case TypeEmail:
			normalized := strings.ToLower(value)
			if !emailPattern.MatchString(normalized) {
				columnErrors[rule.Column] = "invalid email format"
				continue
			}
			value = normalized
		case TypePhone:
			normalized := phoneStrip.Replace(value)
			if !phonePattern.MatchString(normalized) {
				columnErrors[rule.Column] = "invalid phone format"
				continue
			}
			value = normalized
		}

		switch rule.Field {
		case FieldEmail:
			row.Email = value
		case FieldName:
			row.Name = value
		case FieldPhone:
			row.Phone = value
		case FieldCompany:
			row.Company = value
		case FieldPosition:
			row.Position = value
		default:
			customFields[rule.Field] = value
		}
	}

	row.IsValid = len(columnErrors) == 0

	row.RawRow, _ = json.Marshal(raw)
	if len(customFields) > 0 {
		row.CustomFields, _ = json.Marshal(customFields)
	}
	if len(columnErrors) > 0 {
		row.ColumnErrors, _ = json.Marshal(columnErrors)
	}

	return row, columnErrors
}
