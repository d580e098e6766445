package model

import "fmt"

// ValidationError marks an error caused by bad client input. Handlers map it
// to HTTP 400; everything else falls through to the storage sentinel mapping.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// Invalidf builds a ValidationError from a format string.
func Invalidf(format string, args ...any) error {
	return ValidationError{Msg: fmt.Sprintf(format, args...)}
}
