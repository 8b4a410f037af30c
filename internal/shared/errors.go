package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus indicates an illegal document status transition.
	ErrInvalidStatus = errors.New("invalid status transition")
	// ErrSettingsIncomplete occurs when financed sales settings are missing a
	// required account or default.
	ErrSettingsIncomplete = errors.New("financed sales settings incomplete")
)
