// Package validators decodes request input and turns validator/v10 failures
// into VALIDATION_ERROR responses keyed by JSON field name.
package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/medok/medok-backend/pkg/errors"
)

// MaxBodyBytes caps JSON request bodies; chat messages are the largest input.
const MaxBodyBytes = 1 << 20

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}()

// DecodeJSONBody reads exactly one JSON object into dest and validates it.
// Unknown fields, trailing data and oversized bodies are rejected.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	defer io.Copy(io.Discard, body)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return badBody(err)
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must hold a single JSON object")
	}
	return ValidateStruct(dest)
}

func badBody(err error) error {
	var (
		tooBig *http.MaxBytesError
		syntax *json.SyntaxError
	)
	msg := "invalid request body"
	switch {
	case errors.As(err, &tooBig):
		msg = fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit)
	case errors.Is(err, io.EOF):
		msg = "request body is empty"
	case errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &syntax):
		msg = "request body is not valid JSON"
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg).WithDetails(map[string]any{"error": err.Error()})
}

// ValidateStruct runs the struct tags without decoding.
func ValidateStruct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fields))
	for _, fe := range fields {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	p := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid url"
	case "uuid":
		return "must be a valid uuid"
	case "datetime":
		return "must match " + p
	case "oneof":
		return "must be one of " + p
	case "min", "max":
		bound := map[string]string{"min": "at least", "max": "at most"}[fe.Tag()]
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be %s %s characters", bound, p)
		}
		return fmt.Sprintf("must be %s %s", bound, p)
	default:
		return "is invalid"
	}
}
