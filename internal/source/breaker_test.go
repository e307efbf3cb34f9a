package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideagraph/semnet/internal/network"
)

type flakySource struct {
	calls atomic.Int32
	err   error
}

func (f *flakySource) Query(ctx context.Context, q network.Query) ([]network.Candidate, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []network.Candidate{{Ref: network.ObjectRef{Type: "idea", ID: "x"}, Score: 0.9}}, nil
}

func testBreakerConfig() BreakerConfig {
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	return cfg
}

func TestBreaker_PassesThrough(t *testing.T) {
	next := &flakySource{}
	b := WithBreaker(next, testBreakerConfig(), nil)

	got, err := b.Query(context.Background(), network.Query{Text: "x", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Ref.ID)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_TripsAndFailsFast(t *testing.T) {
	next := &flakySource{err: errors.New("connection refused")}
	b := WithBreaker(next, testBreakerConfig(), nil)

	for i := 0; i < 3; i++ {
		_, err := b.Query(context.Background(), network.Query{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrBreakerOpen)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Query(context.Background(), network.Query{})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, int32(3), next.calls.Load(), "open breaker must not reach the store")
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	next := &flakySource{err: context.Canceled}
	b := WithBreaker(next, testBreakerConfig(), nil)

	for i := 0; i < 5; i++ {
		_, err := b.Query(context.Background(), network.Query{})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", b.State())
}

func TestTrimResults(t *testing.T) {
	self := network.ObjectRef{Type: "idea", ID: "a"}
	in := []network.Candidate{
		{Ref: self},
		{Ref: network.ObjectRef{Type: "idea", ID: "b"}},
		{Ref: network.ObjectRef{Type: "idea"}},
		{Ref: network.ObjectRef{Type: "task", ID: "a"}},
		{Ref: network.ObjectRef{Type: "idea", ID: "c"}},
	}
	got := TrimResults(in, self, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Ref.ID)
	assert.Equal(t, network.ObjectRef{Type: "task", ID: "a"}, got[1].Ref)
}

func TestCosineRaw(t *testing.T) {
	raw := CosineRaw(0.6)
	assert.InDelta(t, 0.4, *raw.Distance, 1e-9)
	assert.InDelta(t, 0.8, *raw.Certainty, 1e-9)
	assert.InDelta(t, 0.8, network.ScoreDistance.Normalize(raw), 1e-9)
	assert.InDelta(t, 0.8, network.ScoreCertainty.Normalize(raw), 1e-9)
}

func TestValidateBackend(t *testing.T) {
	assert.NoError(t, ValidateBackend("local"))
	assert.NoError(t, ValidateBackend("Weaviate"))
	assert.ErrorIs(t, ValidateBackend("chroma"), network.ErrConfiguration)
}
