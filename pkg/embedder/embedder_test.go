package embedder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/stratum/pkg/config"
)

// stubClient is a scriptable Client for breaker tests.
type stubClient struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (s *stubClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubClient) Dimensions() int { return 3 }
func (s *stubClient) Close() error    { return nil }

type recordingAlerter struct {
	subjects []string
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          30,
		ReadyToTripRatio: 0.6,
	}
}

func TestWithCircuitBreakerDisabledPassesThrough(t *testing.T) {
	stub := &stubClient{}
	client := WithCircuitBreaker(stub, config.CircuitBreakerConfig{Enabled: false}, nil, "embedder")
	assert.Same(t, Client(stub), client)
}

func TestCircuitBreakerPassesSuccesses(t *testing.T) {
	ctx := context.Background()
	stub := &stubClient{}
	client := WithCircuitBreaker(stub, breakerConfig(), nil, "embedder")

	vec, err := client.EmbedSingle(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)

	vecs, err := client.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 3, client.Dimensions())
}

func TestCircuitBreakerTripsAndAlerts(t *testing.T) {
	ctx := context.Background()
	stub := &stubClient{}
	stub.fail.Store(true)
	alerter := &recordingAlerter{}
	client := WithCircuitBreaker(stub, breakerConfig(), alerter, "embedder")

	// Drive enough failures to trip the breaker.
	for i := 0; i < 5; i++ {
		_, err := client.EmbedSingle(ctx, "x")
		require.Error(t, err)
	}

	calls := stub.calls.Load()
	_, err := client.EmbedSingle(ctx, "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, calls, stub.calls.Load(), "open breaker never reaches the provider")
	assert.NotEmpty(t, alerter.subjects, "tripping sends an alert")
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Provider: "quantum"})
	assert.Error(t, err)
}
