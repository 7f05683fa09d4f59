package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrEmptyResponse     = errors.New("empty llm response")
	ErrMalformedResponse = errors.New("malformed llm response")
)
