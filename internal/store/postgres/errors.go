package postgres

import (
	"errors"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// conflicts maps unique constraints to the field they guard.
var conflicts = map[string]model.ConflictError{
	"users_email_key":  {Field: "email", Message: "Email already exists"},
	"products_sku_key": {Field: "sku", Message: "SKU already exists"},
}

// conflictFrom turns a unique-constraint violation into a *model.ConflictError.
// Other errors pass through unchanged.
func conflictFrom(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	if c, ok := conflicts[pqErr.Constraint]; ok {
		return &c
	}
	return &model.ConflictError{Message: "Record already exists"}
}
