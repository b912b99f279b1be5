package db

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LookupFilter is a normalized lookup predicate for fetching an entity by a
// caller-supplied reference string. When the string is a syntactically valid
// object identifier the filter matches by primary key only; otherwise it
// falls back to matching the slug or the normalized display name.
//
// Construction never fails: any input yields a usable predicate.
type LookupFilter struct {
	value string
	byID  bool
}

// NewLookupFilter builds a LookupFilter from a raw reference string.
// Accepted identifier formats are prefixed UUIDs (e.g., "pan_<uuid>"),
// bare UUIDs, and 24-character hex identifiers from the legacy document
// store era.
func NewLookupFilter(ref string) LookupFilter {
	ref = strings.TrimSpace(ref)
	return LookupFilter{
		value: ref,
		byID:  isObjectID(ref),
	}
}

// ByID reports whether the filter matches by primary key only.
func (f LookupFilter) ByID() bool {
	return f.byID
}

// Clause returns the SQL predicate fragment with placeholders numbered from
// argPos, suitable for appending to a WHERE clause.
func (f LookupFilter) Clause(argPos int) string {
	if f.byID {
		return fmt.Sprintf("id = $%d", argPos)
	}
	return fmt.Sprintf("(slug = $%d OR lower(nome) = lower($%d))", argPos, argPos+1)
}

// Args returns the arguments matching the placeholders emitted by Clause.
func (f LookupFilter) Args() []any {
	if f.byID {
		return []any{f.value}
	}
	return []any{f.value, f.value}
}

// isObjectID reports whether ref is a syntactically valid object identifier.
func isObjectID(ref string) bool {
	if ref == "" {
		return false
	}

	// Prefixed UUID: short lowercase prefix, underscore, then a UUID.
	if idx := strings.IndexByte(ref, '_'); idx > 0 && idx <= 6 {
		prefix, rest := ref[:idx], ref[idx+1:]
		if isLowerAlpha(prefix) {
			if _, err := uuid.Parse(rest); err == nil {
				return true
			}
		}
		return false
	}

	// Bare UUID.
	if _, err := uuid.Parse(ref); err == nil {
		return true
	}

	// Legacy 24-hex document identifier.
	return isLegacyHexID(ref)
}

func isLowerAlpha(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return len(s) > 0
}

func isLegacyHexID(s string) bool {
	if len(s) != 24 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
