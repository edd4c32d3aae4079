package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scribe-api/internal/config"
	"github.com/jwalitptl/scribe-api/pkg/logger"
	"github.com/jwalitptl/scribe-api/pkg/messaging"
	"github.com/jwalitptl/scribe-api/pkg/messaging/redis"
	"github.com/jwalitptl/scribe-api/pkg/metrics"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBrokerConfig(t *testing.T) {
	cfg := brokerConfig(config.RedisConfig{
		URL:             "redis://localhost:6379/1",
		PoolSize:        4,
		BreakerFailures: 3,
		BreakerTimeout:  time.Minute,
	})
	assert.Equal(t, "redis://localhost:6379/1", cfg.URL)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, uint32(3), cfg.BreakerFailures)
	assert.Equal(t, time.Minute, cfg.BreakerTimeout)
}

func TestListenLogsEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, err := redis.NewRedisBroker(ctx, redis.Config{URL: "redis://" + mr.Addr()},
		logger.Nop(), metrics.NewMetrics("test", "", prometheus.NewRegistry()))
	require.NoError(t, err)
	defer broker.Close()

	out := &syncBuffer{}
	log := logger.NewLogger(&logger.Config{Level: logger.InfoLevel, Format: "json", Output: out})

	done := make(chan error, 1)
	go func() { done <- listen(ctx, broker, "scribe.events", log) }()

	msg := messaging.Message{
		ID:         "evt-9",
		Type:       "LETTER_APPROVED",
		OccurredAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"letter_id":1}`),
	}
	// The subscription is set up asynchronously; keep publishing until it
	// shows up in the log.
	require.Eventually(t, func() bool {
		_ = broker.Publish(ctx, "scribe.events", msg)
		return strings.Contains(out.String(), "evt-9")
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "LETTER_APPROVED")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not stop after cancel")
	}
}
