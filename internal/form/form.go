// Package form is the flat key/value submission shared by record mutations.
// A Form binds each field name to its value and validation message, and is
// handed to whatever renders or fills the controls.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// MaxMemory bounds the in-memory part of a multipart submission.
const MaxMemory = 8 << 20

// Field is one bound control: its name, current value and validation message.
type Field struct {
	Name  string
	Value string
	Error string
}

// Set replaces the value and clears any stale validation message.
func (f *Field) Set(v string) {
	f.Value = v
	f.Error = ""
}

// Form is an ordered set of fields.
type Form struct {
	order  []string
	fields map[string]*Field
}

// New returns an empty form with the named fields declared in order.
func New(names ...string) *Form {
	f := &Form{fields: make(map[string]*Field, len(names))}
	for _, n := range names {
		f.Field(n)
	}
	return f
}

// FromValues builds a form from URL values, taking the first value per key.
func FromValues(v url.Values) *Form {
	f := New()
	for k, vals := range v {
		if len(vals) > 0 {
			f.Field(k).Value = vals[0]
		}
	}
	return f
}

// Parse reads a form from a request body. URL-encoded, multipart and JSON
// object bodies are accepted; JSON scalars are stringified.
func Parse(r *http.Request) (*Form, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		return parseJSON(r.Body)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(MaxMemory); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		return FromValues(r.MultipartForm.Value), nil
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		return FromValues(r.PostForm), nil
	}
}

func parseJSON(body io.Reader) (*Form, error) {
	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, fmt.Errorf("decode JSON form: %w", err)
	}
	f := New()
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			f.Field(k)
		case string:
			f.Field(k).Value = t
		case bool:
			f.Field(k).Value = strconv.FormatBool(t)
		case float64:
			f.Field(k).Value = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("decode JSON form: field %q must be a scalar", k)
		}
	}
	return f, nil
}

// Field returns the binding for name, declaring it if needed.
func (f *Form) Field(name string) *Field {
	if fd, ok := f.fields[name]; ok {
		return fd
	}
	fd := &Field{Name: name}
	f.fields[name] = fd
	f.order = append(f.order, name)
	return fd
}

// Fields returns every binding in declaration order.
func (f *Form) Fields() []*Field {
	out := make([]*Field, len(f.order))
	for i, n := range f.order {
		out[i] = f.fields[n]
	}
	return out
}

// Has reports whether the submission carried name.
func (f *Form) Has(name string) bool {
	_, ok := f.fields[name]
	return ok
}

// Get returns the trimmed value of name, or "".
func (f *Form) Get(name string) string {
	if fd, ok := f.fields[name]; ok {
		return strings.TrimSpace(fd.Value)
	}
	return ""
}

// Set assigns a value.
func (f *Form) Set(name, value string) {
	f.Field(name).Set(value)
}

// Bool reads a checkbox-style field: "true", "on" and "1" are true.
func (f *Form) Bool(name string) bool {
	switch strings.ToLower(f.Get(name)) {
	case "true", "on", "1":
		return true
	}
	return false
}

// Apply copies the messages of a *model.ValidationError or
// *model.ConflictError onto the matching fields. It reports whether err was
// one of those.
func (f *Form) Apply(err error) bool {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		for _, fe := range ve.Errors {
			if fd := f.Field(fe.Field); fd.Error == "" {
				fd.Error = fe.Message
			}
		}
		return true
	}
	var ce *model.ConflictError
	if errors.As(err, &ce) && ce.Field != "" {
		f.Field(ce.Field).Error = ce.Message
		return true
	}
	return false
}

// Errors returns field name to message for every field with an error.
func (f *Form) Errors() map[string]string {
	out := map[string]string{}
	for _, fd := range f.fields {
		if fd.Error != "" {
			out[fd.Name] = fd.Error
		}
	}
	return out
}

// Values encodes the form for submission.
func (f *Form) Values() url.Values {
	v := url.Values{}
	for _, n := range f.order {
		v.Set(n, f.fields[n].Value)
	}
	return v
}
