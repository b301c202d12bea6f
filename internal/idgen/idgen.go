// Package idgen generates record IDs of the form <entity>_<millis>_<suffix>
// and opaque session tokens, backed by nanoid.
package idgen

import (
	"fmt"
	"strconv"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the character set of the random ID suffix.
var Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters in the ID suffix.
var Length = 9

// TokenAlphabet and TokenLength shape session tokens.
var (
	TokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	TokenLength   = 32
)

// New returns a new ID for entity stamped with the current time.
func New(entity string) (string, error) {
	return NewAt(entity, time.Now())
}

// NewAt returns a new ID for entity stamped with t.
func NewAt(entity string, t time.Time) (string, error) {
	suffix, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return entity + "_" + strconv.FormatInt(t.UnixMilli(), 10) + "_" + suffix, nil
}

// Token returns a new random session token.
func Token() (string, error) {
	tok, err := nanoid.Generate(TokenAlphabet, TokenLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return tok, nil
}
