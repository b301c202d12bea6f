package model

// ConflictError reports a uniqueness violation on a field (product SKU,
// user email). It is distinct from ValidationError so transports can map it
// to 409.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
