// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrBusy is returned when a publish pass is already in flight; the
	// rejected call performed no writes.
	ErrBusy            = errors.New("regeneration already in progress")
	ErrUnknownArtifact = errors.New("unknown artifact")
	ErrInvalidInput    = errors.New("invalid input")
)
