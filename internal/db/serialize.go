package db

import (
	"time"

	"github.com/google/uuid"
)

// NormalizeDocument recursively converts store-native identifier and
// timestamp values inside a loosely-typed document (JSONB payloads,
// integration configs, branding blobs) into plain strings suitable for JSON
// transport. UUID values become their canonical string form and timestamps
// become RFC 3339 strings. Maps and slices are walked recursively; scalar
// values already in plain form pass through unchanged, so applying the
// function twice yields the same result as applying it once.
func NormalizeDocument(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return val.String()
	case [16]byte:
		return uuid.UUID(val).String()
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeDocument(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeDocument(item)
		}
		return out
	default:
		return val
	}
}
