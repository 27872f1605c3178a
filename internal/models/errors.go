package models

import "errors"

var (
	// ErrInvalidConfig marks a configuration rejected before any job was created.
	ErrInvalidConfig = errors.New("invalid email configuration")
)
