package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bbernstein/metobs/internal/search"
)

var validate = newValidator()

// newValidator reports fields by their query or form name rather than the Go field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "form"} {
			if name, _, _ := strings.Cut(f.Tag.Get(tag), ","); name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// SearchRequest holds the query parameters of a JSON search.
type SearchRequest struct {
	Site      string `query:"site" validate:"required"`
	Parameter string `query:"parameter" validate:"required"`
	Period    string `query:"period" validate:"required,oneof=latest-hour latest-day latest-months"`
}

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// Validate checks v against its validate tags.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		if fe.Tag() == "oneof" {
			fields[i] = fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
			continue
		}
		fields[i] = fmt.Sprintf("%s is %s", fe.Field(), fe.Tag())
	}
	return &ValidationError{Fields: fields, err: err}
}

// ParseSearchRequest reads site, parameter and period from query parameters.
func ParseSearchRequest(params map[string]string) (search.Query, error) {
	req := SearchRequest{
		Site:      strings.TrimSpace(params["site"]),
		Parameter: strings.TrimSpace(params["parameter"]),
		Period:    strings.TrimSpace(params["period"]),
	}
	if err := Validate(req); err != nil {
		return search.Query{}, err
	}
	return req.Query(), nil
}

func (r SearchRequest) Query() search.Query {
	return search.Query{SiteID: r.Site, Parameter: r.Parameter, Period: r.Period}
}
