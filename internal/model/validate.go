package model

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
// Field is a dotted path for nested values (e.g. "createdAt.from").
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Add appends a field error.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns e when it holds errors, nil otherwise.
func (e *ValidationError) Err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

var priceRe = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// ValidateUser checks a User for constraint violations.
func ValidateUser(u *User) error {
	var ve ValidationError

	if strings.TrimSpace(u.Name) == "" {
		ve.Add("name", "Name is required")
	}
	validateEmail(&ve, u.Email)

	return ve.Err()
}

func validateEmail(ve *ValidationError, email string) {
	if strings.TrimSpace(email) == "" {
		ve.Add("email", "Email is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		ve.Add("email", "Invalid email address")
	}
}

// ValidateProduct checks a Product for constraint violations.
func ValidateProduct(p *Product) error {
	var ve ValidationError

	if strings.TrimSpace(p.Name) == "" {
		ve.Add("name", "Name is required")
	}
	if !priceRe.MatchString(p.Price) {
		ve.Add("price", "Price must be a valid number")
	}
	if strings.TrimSpace(p.SKU) == "" {
		ve.Add("sku", "SKU is required")
	}

	return ve.Err()
}
