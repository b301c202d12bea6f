package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// APIError is a 4xx or 5xx answer from the server. Validation failures list
// the offending fields in Details.
type APIError struct {
	StatusCode int
	Message    string
	Details    []model.FieldError
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP %d: %s", e.StatusCode, e.Message)
	for i, d := range e.Details {
		if i == 0 {
			b.WriteString(" (")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(d.Field + ": " + d.Message)
	}
	if len(e.Details) > 0 {
		b.WriteString(")")
	}
	return b.String()
}

// newAPIError reads the server's {error, details} body. Anything else, such
// as a proxy's plain-text page, becomes the message as is.
func newAPIError(status int, body []byte) *APIError {
	var wire struct {
		Error   string             `json:"error"`
		Details []model.FieldError `json:"details"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error != "" {
		return &APIError{StatusCode: status, Message: wire.Error, Details: wire.Details}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}
