package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broker, err := NewRedisBroker(ctx, Config{URL: url}, zerolog.Nop())
	require.NoError(t, err)
	defer broker.Close()

	msgs, err := broker.Subscribe(ctx, "carelink:test")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "carelink:test", map[string]string{"event": "ping"}))

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `{"event":"ping"}`, string(msg))
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "not-a-url"}, zerolog.Nop())
	assert.Error(t, err)
}
