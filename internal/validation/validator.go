// Package validation wires go-playground/validator into echo and turns
// failures into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError is one entry of the "details" array in a 400 response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned by Validate when at least one rule fails.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator implements echo.Validator.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New builds a Validator with the custom rules registered.
func New() *Validator {
	cv := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: time.Now}

	// Report fields by their wire name: json for bodies, query or param for
	// URL values.
	cv.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	must(cv.v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := ParseTime(fl.Field().String())
		return err == nil
	}))
	must(cv.v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
		t, err := ParseTime(fl.Field().String())
		if err != nil {
			// iso8601 reports the format problem.
			return true
		}
		return !t.Before(cv.now())
	}))
	must(cv.v.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.TrimSpace(s) != ""
	}))
	must(cv.v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	}))
	return cv
}

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// WithClock replaces the time source used by notpast.
func (cv *Validator) WithClock(now func() time.Time) *Validator {
	cv.now = now
	return cv
}

// Validate runs the struct tags on i.  It returns Errors on rule failures.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe.Field(), fe.Tag(), fe.Param())})
	}
	return out
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// isoLayouts are the ISO 8601 shapes accepted for dates.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses an ISO 8601 date or date-time.  Values without a zone are
// taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO 8601 date %q", s)
}
