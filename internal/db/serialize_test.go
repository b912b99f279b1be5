package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDocument_ConvertsUUIDsAndTimestamps(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ts := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	doc := map[string]any{
		"id":         id,
		"created_at": ts,
		"nome":       "Padaria do João",
		"preco":      int64(1290),
		"tags":       []any{id, "promocao"},
	}

	out, ok := NormalizeDocument(doc).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", out["id"])
	assert.Equal(t, "2026-03-15T10:30:00Z", out["created_at"])
	assert.Equal(t, "Padaria do João", out["nome"])
	assert.Equal(t, int64(1290), out["preco"])

	tags, ok := out["tags"].([]any)
	require.True(t, ok)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", tags[0])
	assert.Equal(t, "promocao", tags[1])
}

func TestNormalizeDocument_NilTimestampPointer(t *testing.T) {
	var ts *time.Time
	doc := map[string]any{"deleted_at": ts}

	out := NormalizeDocument(doc).(map[string]any)
	assert.Nil(t, out["deleted_at"])
}

func TestNormalizeDocument_Idempotent(t *testing.T) {
	doc := map[string]any{
		"id":     uuid.New(),
		"quando": time.Now(),
		"nested": map[string]any{"outro": uuid.New()},
	}

	once := NormalizeDocument(doc)
	twice := NormalizeDocument(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeDocument_NilInput(t *testing.T) {
	assert.Nil(t, NormalizeDocument(nil))
}
