// Package lifecycle holds the pure status-mapping functions every connector
// calls into. All mappers are total: unknown processor codes resolve to the
// declared fallback, never to an error.
package lifecycle

import "strings"

// FallbackPolicy decides where unrecognised processor codes land.
type FallbackPolicy string

const (
	// FallbackPending keeps the object open so the caller re-polls.
	FallbackPending FallbackPolicy = "pending"
	// FallbackFailure closes the object out. Connectors must opt in explicitly.
	FallbackFailure FallbackPolicy = "failure"
)

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeTable[V any](table map[string]V) map[string]V {
	out := make(map[string]V, len(table))
	for k, v := range table {
		out[normalize(k)] = v
	}
	return out
}
