package importjob

// RowError is one column-level validation failure, attributed to its row.
type RowError struct {
	RecordIndex int    `json:"record_index"`
	Column      string `json:"column"`
	Message     string `json:"message"`
}

// ImportResult aggregates the counters of one batch or job run. It is derived
// by summing child batch and row state, never independently mutated.
type ImportResult struct {
	Total           int        `json:"total"`
	Created         int        `json:"created"`
	Updated         int        `json:"updated"`
	Skipped         int        `json:"skipped"`
	Failed          int        `json:"failed"`
	ValidationErrs  []RowError `json:"validation_errors,omitempty"`
	DuplicateEmails []string   `json:"duplicate_emails,omitempty"`
	InvalidEmails   []string   `json:"invalid_emails,omitempty"`
}

// Merge folds another result into r. Aggregate counts are order-insensitive
// sums, so concurrent batches may complete in any order.
func (r *ImportResult) Merge(other ImportResult) {
	r.Total += other.Total
	r.Created += other.Created
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.ValidationErrs = append(r.ValidationErrs, other.ValidationErrs...)
	r.DuplicateEmails = append(r.DuplicateEmails, other.DuplicateEmails...)
	r.InvalidEmails = append(r.InvalidEmails, other.InvalidEmails...)
}
