package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	dets  []Detection
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Try(_ context.Context, _ ImageRef) ([]Detection, error) {
	s.calls++
	return s.dets, s.err
}

// blockingProvider never answers before the attempt deadline.
type blockingProvider struct{}

func (blockingProvider) Name() string { return "slow" }

func (blockingProvider) Try(ctx context.Context, _ ImageRef) ([]Detection, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestChainFirstSuccessWins(t *testing.T) {
	primary := &stubProvider{name: "primary", dets: []Detection{{Label: "grilled chicken", Confidence: 0.9}}}
	secondary := &stubProvider{name: "secondary", dets: []Detection{{Label: "pizza", Confidence: 0.7}}}
	chain := NewChain(time.Second, primary, secondary)

	dets, used := chain.Analyze(context.Background(), ImageRef{URL: "http://img"})

	require.Len(t, dets, 1)
	assert.Equal(t, "grilled chicken", dets[0].Label)
	assert.Equal(t, "primary", used)
	assert.Equal(t, 0, secondary.calls, "secondary must not be tried after a success")
}

func TestChainFallsThroughOnError(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("rate limited")}
	secondary := &stubProvider{name: "secondary", dets: []Detection{{Label: "rice", Confidence: 0.8}}}
	chain := NewChain(time.Second, primary, secondary)

	dets, used := chain.Analyze(context.Background(), ImageRef{})

	require.Len(t, dets, 1)
	assert.Equal(t, "secondary", used)
	assert.Equal(t, 1, primary.calls)
}

func TestChainTreatsEmptyResultAsFailure(t *testing.T) {
	primary := &stubProvider{name: "primary"} // nil detections, nil error
	secondary := &stubProvider{name: "secondary", dets: []Detection{{Label: "salad", Confidence: 0.6}}}
	chain := NewChain(time.Second, primary, secondary)

	_, used := chain.Analyze(context.Background(), ImageRef{})
	assert.Equal(t, "secondary", used)
}

func TestChainExhaustedDegradesToHeuristic(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("unconfigured")}
	secondary := &stubProvider{name: "secondary", err: errors.New("boom")}
	chain := NewChain(time.Second, primary, secondary)

	dets, used := chain.Analyze(context.Background(), ImageRef{})

	require.Len(t, dets, 1)
	assert.Equal(t, HeuristicProvider, used)
	assert.Equal(t, "Mixed meal", dets[0].Label)
	assert.Equal(t, 0.5, dets[0].Confidence)
	require.NotNil(t, dets[0].Macros)
	assert.Equal(t, models.Macros{Calories: 500, Protein: 25, Carbs: 50, Fats: 15}, *dets[0].Macros)
}

func TestChainTimeoutTriggersFallback(t *testing.T) {
	secondary := &stubProvider{name: "secondary", dets: []Detection{{Label: "pasta", Confidence: 0.8}}}
	chain := NewChain(20*time.Millisecond, blockingProvider{}, secondary)

	start := time.Now()
	dets, used := chain.Analyze(context.Background(), ImageRef{})

	require.Len(t, dets, 1)
	assert.Equal(t, "secondary", used)
	assert.Less(t, time.Since(start), time.Second, "stalled provider must not block the pipeline")
}

func TestChainEmptyConfiguration(t *testing.T) {
	chain := NewChain(time.Second)
	dets, used := chain.Analyze(context.Background(), ImageRef{})
	require.Len(t, dets, 1)
	assert.Equal(t, HeuristicProvider, used)
}
