package model

import (
	"strings"
	"testing"
)

func validUser() User {
	return User{Name: "Ada Lovelace", Email: "ada@example.com"}
}

func validProduct() Product {
	return Product{Name: "Widget", Price: "19.99", SKU: "WID-001", Active: true}
}

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidateUser_Valid(t *testing.T) {
	u := validUser()
	if err := ValidateUser(&u); err != nil {
		t.Fatalf("expected valid user, got: %v", err)
	}
}

func TestValidateUser_Fields(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*User)
		field  string
	}{
		{"NameEmpty", func(u *User) { u.Name = "" }, "name"},
		{"NameWhitespace", func(u *User) { u.Name = "  \t" }, "name"},
		{"EmailEmpty", func(u *User) { u.Email = "" }, "email"},
		{"EmailMalformed", func(u *User) { u.Email = "not-an-email" }, "email"},
		{"EmailWithDisplayName", func(u *User) { u.Email = "Ada <ada@example.com>" }, "email"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			u := validUser()
			tc.mutate(&u)
			errs := fieldErrors(t, ValidateUser(&u))
			if !hasFieldError(errs, tc.field) {
				t.Errorf("expected error on field %q, got %v", tc.field, errs)
			}
		})
	}
}

func TestValidateProduct_Valid(t *testing.T) {
	for _, price := range []string{"0", "10", "10.5", "10.50", "1234567.89"} {
		p := validProduct()
		p.Price = price
		if err := ValidateProduct(&p); err != nil {
			t.Errorf("price %q should be valid, got: %v", price, err)
		}
	}
}

func TestValidateProduct_Fields(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Product)
		field  string
	}{
		{"NameEmpty", func(p *Product) { p.Name = "" }, "name"},
		{"PriceEmpty", func(p *Product) { p.Price = "" }, "price"},
		{"PriceThreeDecimals", func(p *Product) { p.Price = "1.999" }, "price"},
		{"PriceNegative", func(p *Product) { p.Price = "-1" }, "price"},
		{"PriceText", func(p *Product) { p.Price = "cheap" }, "price"},
		{"SKUEmpty", func(p *Product) { p.SKU = " " }, "sku"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := validProduct()
			tc.mutate(&p)
			errs := fieldErrors(t, ValidateProduct(&p))
			if !hasFieldError(errs, tc.field) {
				t.Errorf("expected error on field %q, got %v", tc.field, errs)
			}
		})
	}
}

func TestValidateProduct_MultipleErrors(t *testing.T) {
	p := Product{}
	errs := fieldErrors(t, ValidateProduct(&p))
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{}
	ve.Add("name", "Name is required")
	ve.Add("price", "must be at least %d", 0)
	msg := ve.Error()
	if !strings.HasPrefix(msg, "validation failed: ") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if !strings.Contains(msg, "name: Name is required; price: must be at least 0") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestValidationError_ErrNilWhenEmpty(t *testing.T) {
	var ve ValidationError
	if err := ve.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}
