package answer

import (
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when the model produced no text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// SynthesisError is returned when an answer could not be generated.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("answer synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
