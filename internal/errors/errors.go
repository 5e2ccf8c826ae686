// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ValidationError is returned when a request is missing or has malformed fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a referenced entity does not exist. The ID is
// kept for logging and left out of the message.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func NewCampaignNotFound(id string) error {
	return &NotFoundError{Resource: "Campaign", ID: id}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
