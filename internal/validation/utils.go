package validation

import "github.com/w3cp/w3cp/model"

// Struct validates v with the shared validator. Field names in errors are
// the JSON names.
func Struct(v any) error {
	return model.Validator().Struct(v)
}

// EmptyRequest is the request type of endpoints without input.
type EmptyRequest struct{}

func (EmptyRequest) Validate() error { return nil }
