package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// CodeDuplicate tags SaveErrors caused by a uniqueness violation.
const CodeDuplicate = "duplicate"

// uniqueViolation is the postgres error class for unique constraint
// violations.
const uniqueViolation = pq.ErrorCode("23505")

// SaveError is a caller-meaningful save failure. Structured errors carry a
// code and the colliding submission field; plain failures carry only the
// message.
type SaveError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e SaveError) Error() string {
	return e.Message
}

// RegisterResult is the outcome of a resident registration write.
type RegisterResult struct {
	OK     bool        `json:"ok"`
	Errors []SaveError `json:"errors,omitempty"`
	UserID string      `json:"user_id,omitempty"`
}

// JoinedErrors renders the result's error messages for callers that show a
// single error string.
func (r RegisterResult) JoinedErrors() string {
	messages := make([]string, 0, len(r.Errors))
	for _, saveErr := range r.Errors {
		messages = append(messages, saveErr.Message)
	}
	return strings.Join(messages, ",\n")
}

// columnFields maps colliding users columns back to the submission field
// names the caller knows them by.
var columnFields = map[string]string{
	"email":        "primaryEmailAddress",
	"phone_number": "phone",
	"external_id":  "externalId",
}

// columnLabels holds the human wording used in duplicate messages.
var columnLabels = map[string]string{
	"email":        "email",
	"phone_number": "phone number",
	"external_id":  "external id",
}

// translateSave converts a storage-layer error into SaveErrors. Uniqueness
// violations are recognized by postgres error code, the constraint name is
// parsed back to the colliding column, and the column is mapped to the
// submission field. Anything else surfaces its message verbatim.
func translateSave(err error) []SaveError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		column := constraintColumn(pqErr.Constraint)
		if field, ok := columnFields[column]; ok {
			return []SaveError{{
				Code:    CodeDuplicate,
				Message: fmt.Sprintf("A user with this %s already exists.", columnLabels[column]),
				Field:   field,
			}}
		}
		detail := pqErr.Detail
		if detail == "" {
			detail = pqErr.Message
		}
		return []SaveError{{Code: CodeDuplicate, Message: detail}}
	}
	return []SaveError{{Message: err.Error()}}
}

// constraintColumn recovers the colliding column from a constraint name
// like "users_email_key".
func constraintColumn(constraint string) string {
	name := strings.TrimPrefix(constraint, "users_")
	return strings.TrimSuffix(name, "_key")
}

func saveFailed(err error) RegisterResult {
	return RegisterResult{OK: false, Errors: translateSave(err)}
}
