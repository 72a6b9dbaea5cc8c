package utils

import "github.com/google/uuid"

// NewID returns a time-ordered UUID (v7), falling back to v4 when the
// system's entropy source misbehaves.
func NewID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
