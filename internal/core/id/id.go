// Package id provides UUIDv7 identifiers for every entity.
// UUIDv7 is time-ordered, so primary keys sort by creation time.
package id

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// ParseOptional parses s, returning nil for the empty string.
func ParseOptional(s string) (*ID, error) {
	if s == "" {
		return nil, nil
	}
	v, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Ptr returns a pointer to a copy of v.
func Ptr(v ID) *ID {
	return &v
}

// Equal compares two optional ids.
func Equal(a, b *ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Value dereferences an optional id, returning Nil when absent.
func Value(v *ID) ID {
	if v == nil {
		return uuid.Nil
	}
	return *v
}

// Unique returns ids without duplicates, in ascending byte order.
// Sorted order is what lock acquisition relies on to avoid deadlocks.
func Unique(ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, v := range ids {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
