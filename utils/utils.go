// Package utils provides utility functions for the application.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ParseUUID parses a UUID string, trimming surrounding whitespace.
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// NormalizeAdAccountID prefixes an ad account id with "act_" when missing.
// Meta's Graph API addresses ad accounts as act_<numeric id>, while the
// UI and OAuth payloads carry the bare numeric form.
func NormalizeAdAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return id
	}
	if strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}

// StripAdAccountPrefix removes the "act_" prefix when present.
func StripAdAccountPrefix(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "act_")
}
