package nats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	data := []byte(`{"user_id":"u1","busy":true,"occurred_at":"` + at.Format(time.RFC3339Nano) + `"}`)

	ev, err := decode("events.chat.BUSY_CHANGED", data)
	require.NoError(t, err)

	assert.Equal(t, "chat.BUSY_CHANGED", ev.EventType())
	assert.Equal(t, "u1", ev.Payload()["user_id"])
	assert.Equal(t, true, ev.Payload()["busy"])
	assert.True(t, at.Equal(ev.Timestamp()))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := decode("events.chat.BUSY_CHANGED", []byte("not json"))
	assert.Error(t, err)
}
