package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUUIDToPgtype(t *testing.T) {
	id := uuid.New()
	got := UUIDToPgtype(id)

	assert.True(t, got.Valid)
	assert.Equal(t, [16]byte(id), got.Bytes)
}
