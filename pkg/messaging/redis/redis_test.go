package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scribe-api/pkg/logger"
	"github.com/jwalitptl/scribe-api/pkg/messaging"
	"github.com/jwalitptl/scribe-api/pkg/metrics"
)

func newTestBroker(t *testing.T) (*miniredis.Miniredis, *RedisBroker) {
	t.Helper()
	mr := miniredis.RunT(t)

	broker, err := NewRedisBroker(context.Background(), Config{
		URL:             "redis://" + mr.Addr(),
		MaxRetries:      -1,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, logger.Nop(), metrics.NewMetrics("test", "", prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	return mr, broker
}

func TestPublishSubscribe(t *testing.T) {
	_, broker := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := broker.Subscribe(ctx, "scribe.events")
	require.NoError(t, err)

	sent := messaging.Message{
		ID:      "evt-1",
		Type:    "RESULTS_INGESTED",
		Payload: json.RawMessage(`{"patient_id":1}`),
	}
	require.NoError(t, broker.Publish(ctx, "scribe.events", sent))

	select {
	case raw := <-msgs:
		var got messaging.Message
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "evt-1", got.ID)
		assert.Equal(t, "RESULTS_INGESTED", got.Type)
		assert.JSONEq(t, `{"patient_id":1}`, string(got.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	cancel()
	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestPublishOpensBreaker(t *testing.T) {
	mr, broker := newTestBroker(t)
	mr.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		require.Error(t, broker.Publish(ctx, "scribe.events", messaging.Message{Type: "X"}))
	}

	err := broker.Publish(ctx, "scribe.events", messaging.Message{Type: "X"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNewRedisBrokerBadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "not-a-url"},
		logger.Nop(), metrics.NewMetrics("test", "", prometheus.NewRegistry()))
	assert.Error(t, err)
}
