package models

import "time"

// ChangeLogEntry records one field-level correction made during a review.
// Entries are immutable once written.
type ChangeLogEntry struct {
	ID            string    `json:"id"`
	ReviewID      string    `json:"review_id"`
	FieldName     string    `json:"field_name"`
	PreviousValue string    `json:"previous_value"`
	NewValue      string    `json:"new_value"`
	Annotation    string    `json:"annotation"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChangeLogRequest is the payload for recording a field correction.
type ChangeLogRequest struct {
	FieldName     string `json:"field_name"`
	PreviousValue string `json:"previous_value"`
	NewValue      string `json:"new_value"`
	Annotation    string `json:"annotation"`
}

// Validate checks required fields and limits on ChangeLogRequest.
func (r *ChangeLogRequest) Validate() error {
	if r.FieldName == "" {
		return ErrMissingField("field_name")
	}

	if len(r.FieldName) > 255 {
		return ErrFieldTooLong("field_name", 255)
	}

	if len(r.PreviousValue) > 100000 {
		return ErrFieldTooLong("previous_value", 100000)
	}

	if len(r.NewValue) > 100000 {
		return ErrFieldTooLong("new_value", 100000)
	}

	if len(r.Annotation) > 10000 {
		return ErrFieldTooLong("annotation", 10000)
	}

	return nil
}

// ChangeLogListOpts holds query parameters for change log listings.
type ChangeLogListOpts struct {
	ReviewID  string
	FieldName string // optional filter
	AuthorID  string // optional filter
	Limit     int
	Offset    int
}
