package core

import "errors"

var (
	// ErrValidation marks malformed or missing request fields. Mapped to
	// 400 at the HTTP surface and never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent collection or corpus page.
	ErrNotFound = errors.New("not found")

	// ErrProvider marks a failed embedding, vector-store or corpus call.
	ErrProvider = errors.New("provider failed")
)
