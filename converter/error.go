package converter

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupported        = errors.New("unsupported type")
	ErrValueReference     = errors.New("pointer or reference to a value type")
	ErrStringByValue      = errors.New("string parameter passed by value")
	ErrNumberArrayPointer = errors.New("pointer to a number-array class")
	ErrTemplateDepth      = errors.New("template nesting too deep")
)

// TypeError is a parameter or return type that cannot be bound.
type TypeError struct {
	Type     string // native type expression
	IsReturn bool
	Err      error
}

func (e *TypeError) Error() string {
	what := "parameter"
	if e.IsReturn {
		what = "return"
	}
	return fmt.Sprintf("convert %v type %v: %v", what, e.Type, e.Err)
}

func (e *TypeError) Unwrap() error {
	return e.Err
}
