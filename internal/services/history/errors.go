package history

import "errors"

var (
	// ErrRenderNotFound is returned when no render has the request ID
	ErrRenderNotFound = errors.New("render not found")

	// ErrInvalidRequestID is returned for an empty request ID
	ErrInvalidRequestID = errors.New("invalid request ID")
)
