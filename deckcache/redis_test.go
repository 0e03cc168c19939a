package deckcache

import (
	"testing"

	"github.com/andrewpaige1/tarjetas-api/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidationPayload(t *testing.T) {
	raw, err := encodeInvalidation("u1", "instance-a")
	require.NoError(t, err)

	user, ok := decodeInvalidation(string(raw), "instance-b")
	assert.True(t, ok)
	assert.Equal(t, "u1", user)

	_, ok = decodeInvalidation(string(raw), "instance-a")
	assert.False(t, ok, "own messages are skipped")

	_, ok = decodeInvalidation("not json", "instance-b")
	assert.False(t, ok)

	_, ok = decodeInvalidation(`{"origin":"x"}`, "instance-b")
	assert.False(t, ok)
}

func TestNewRedisNotifierRequiresAddr(t *testing.T) {
	_, err := NewRedisNotifier("  ", "", logger.Nop())
	assert.Error(t, err)
}
