package paths

import (
	"errors"
	"fmt"
)

// ErrInvalidURL is returned when an input is neither an absolute path nor
// a parseable absolute URL.
var ErrInvalidURL = errors.New("invalid url")

// ErrNotFileURL is returned when a file path is requested for a URL whose
// scheme is not "file".
var ErrNotFileURL = errors.New("not a file url")

// URLError records the input that failed conversion and why.
type URLError struct {
	Input string
	Err   error
}

func (e *URLError) Error() string {
	if e.Err == nil || e.Err == ErrInvalidURL {
		return fmt.Sprintf("invalid url %q", e.Input)
	}
	return fmt.Sprintf("invalid url %q: %v", e.Input, e.Err)
}

func (e *URLError) Unwrap() error {
	return e.Err
}

// Is reports a URLError as ErrInvalidURL regardless of the underlying cause.
func (e *URLError) Is(target error) bool {
	return target == ErrInvalidURL
}

func invalidURL(input string, err error) error {
	if err == nil {
		err = ErrInvalidURL
	}
	return &URLError{Input: input, Err: err}
}
