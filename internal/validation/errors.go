// Package validation checks request input before it reaches the store and
// describes every problem as a located field error.
package validation

import (
	"strings"
)

// Error types reported to clients.
const (
	TypeMissing          = "missing"
	TypeStringType       = "string_type"
	TypeIntParsing       = "int_parsing"
	TypeGreaterThanEqual = "greater_than_equal"
	TypeLessThanEqual    = "less_than_equal"
	TypeValueError       = "value_error"
	TypeURLParsing       = "url_parsing"
	TypeJSONInvalid      = "json_invalid"
	TypeModelType        = "model_attributes_type"
)

// Messages reported to clients.
const (
	MsgFieldRequired = "Field required"
	MsgStringType    = "Input should be a valid string"
	MsgIntParsing    = "Input should be a valid integer, unable to parse string as an integer"
	MsgInvalidEmail  = "value is not a valid email address"
	MsgInvalidURL    = "Input should be a valid URL"
	MsgJSONInvalid   = "JSON decode error"
	MsgModelType     = "Input should be a valid dictionary or object to extract fields from"
)

// FieldError locates a single validation failure.
type FieldError struct {
	Type  string   `json:"type"`
	Loc   []string `json:"loc"`
	Msg   string   `json:"msg"`
	Input any      `json:"input"`
}

// Errors is a non-empty list of field errors.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, strings.Join(fe.Loc, ".")+": "+fe.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OrNil returns nil for an empty list so callers can return it as an error.
func (e Errors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Body returns the location of a request body member.
func Body(field string) []string {
	return []string{"body", field}
}

// Query returns the location of a query parameter.
func Query(name string) []string {
	return []string{"query", name}
}

// Path returns the location of a path parameter.
func Path(name string) []string {
	return []string{"path", name}
}

// InvalidJSON reports a request body that could not be decoded.
func InvalidJSON(detail string) Errors {
	return Errors{{
		Type:  TypeJSONInvalid,
		Loc:   []string{"body"},
		Msg:   MsgJSONInvalid,
		Input: detail,
	}}
}

// NotAnObject reports a request body that decoded to something other than an object.
func NotAnObject(input any) Errors {
	return Errors{{
		Type:  TypeModelType,
		Loc:   []string{"body"},
		Msg:   MsgModelType,
		Input: input,
	}}
}
