package domain

import "errors"

var (
	ErrMissingField = errors.New("missing field")
	ErrEmptyPayload = errors.New("empty payload")
	ErrOutOfRange   = errors.New("value out of range")
	ErrNotFound     = errors.New("not found")
	ErrStore        = errors.New("store failure")
)
