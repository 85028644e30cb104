package logging

import (
	"log/slog"
	"slices"
	"strings"
)

// RedactedValue replaces any MaskField value whose key is not cleared.
const RedactedValue = "[REDACTED]"

// clearedKeys are the request and run identifiers safe to log verbatim.
// Kept sorted. Client addresses and anything else routed through MaskField
// are masked.
var clearedKeys = []string{"method", "path", "route", "run_id", "scenario"}

// IsAllowlisted reports whether MaskField emits key unmasked.
func IsAllowlisted(key string) bool {
	_, found := slices.BinarySearch(clearedKeys, strings.ToLower(strings.TrimSpace(key)))
	return found
}

// RedactionAllowlist returns the keys MaskField emits unmasked.
func RedactionAllowlist() []string {
	return slices.Clone(clearedKeys)
}

// MaskField returns key=value when key is cleared and key=[REDACTED]
// otherwise. Empty values are never replaced.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) != "" && !IsAllowlisted(key) {
		value = RedactedValue
	}
	return slog.String(key, value)
}
