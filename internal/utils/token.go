package utils

import (
	"strings" // Hyphen stripping

	"github.com/google/uuid" // Random token source
)

// NewResetToken generates an opaque single-use password reset token
func NewResetToken() string {
	// Two UUIDs give 256 bits of randomness in a URL-safe string
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
