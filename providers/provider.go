package providers

import (
	"context"
	"time"

	"backend/logger"
	"backend/models"

	"go.uber.org/zap"
)

// ImageRef locates a captured photo for a recognition provider. Providers that
// call out by URL use URL; providers with native S3 integration use Bucket/Key.
type ImageRef struct {
	Bucket string
	Key    string
	URL    string
}

// Detection is one food candidate reported by a recognition provider.
// Macros is nil when the provider reports labels only; the nutrition resolver
// fills those in afterwards.
type Detection struct {
	Label      string
	Confidence float64
	Macros     *models.Macros
}

// RecognitionProvider is one member of the photo fallback chain.
type RecognitionProvider interface {
	Name() string
	Try(ctx context.Context, img ImageRef) ([]Detection, error)
}

// HeuristicProvider identifies the deterministic default used when every
// provider in the chain has failed.
const HeuristicProvider = "heuristic"

const defaultAttemptTimeout = 15 * time.Second

// Chain tries providers in fixed priority order. Order never changes at
// runtime.
type Chain struct {
	providers []RecognitionProvider
	timeout   time.Duration
}

func NewChain(attemptTimeout time.Duration, provs ...RecognitionProvider) *Chain {
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	return &Chain{providers: provs, timeout: attemptTimeout}
}

// Analyze never fails. The first provider returning a non-empty detection list
// wins; an error, a timeout or an empty result falls through to the next
// provider, and an exhausted chain degrades to the heuristic default.
func (c *Chain) Analyze(ctx context.Context, img ImageRef) ([]Detection, string) {
	for _, p := range c.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		dets, err := p.Try(attemptCtx, img)
		cancel()
		if err != nil {
			logger.Warn("recognition provider failed, trying next",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if len(dets) == 0 {
			logger.Warn("recognition provider returned no detections, trying next",
				zap.String("provider", p.Name()))
			continue
		}
		return dets, p.Name()
	}
	logger.Warn("all recognition providers exhausted, using heuristic estimate")
	return []Detection{HeuristicDetection()}, HeuristicProvider
}

// HeuristicDetection is the deterministic low-confidence default: a single
// generic meal with a fixed macro profile.
func HeuristicDetection() Detection {
	return Detection{
		Label:      "Mixed meal",
		Confidence: 0.5,
		Macros:     &models.Macros{Calories: 500, Protein: 25, Carbs: 50, Fats: 15},
	}
}
