package dqm

import (
	"sync"

	"github.com/narumiruna/go-iforest/iforest"
)

// AnomalyScorer produces a diagnostic anomaly score over recent event
// feature vectors. It is advisory only: spec §4.7's anomaly-frequency
// dimension is driven entirely by the fixed risk-flag-fraction rule; this
// score is carried on DataQualityEvent purely for operator/Alerter context
// and never feeds back into the nominal/non-nominal classification.
type AnomalyScorer interface {
	Observe(features []float64)
	Score() float64
}

// NoopAnomalyScorer always reports zero. New falls back to it when given a
// nil scorer.
type NoopAnomalyScorer struct{}

func (NoopAnomalyScorer) Observe(features []float64) {}
func (NoopAnomalyScorer) Score() float64              { return 0 }

// IForestAnomalyScorer wraps narumiruna/go-iforest: it buffers recent
// per-event feature vectors (sentiment confidence plus the overheat, panic
// and fomo flags as 0/1, see Monitor.ObserveAccepted) and periodically refits an isolation forest, then scores the
// most recent vector against it. A thin buffer-and-refit wrapper, since
// go-iforest itself is a batch fit/score model rather than an online one.
type IForestAnomalyScorer struct {
	mu         sync.Mutex
	buffer     [][]float64
	maxBuffer  int
	refitEvery int
	sinceFit   int
	forest     *iforest.IForest
	lastScore  float64
}

// NewIForestAnomalyScorer builds a scorer that refits every refitEvery
// observations once maxBuffer samples have accumulated.
func NewIForestAnomalyScorer(maxBuffer, refitEvery int) *IForestAnomalyScorer {
	if maxBuffer <= 0 {
		maxBuffer = 256
	}
	if refitEvery <= 0 {
		refitEvery = 32
	}
	return &IForestAnomalyScorer{maxBuffer: maxBuffer, refitEvery: refitEvery}
}

// Observe appends a feature vector (e.g. [sentiment_confidence, overheat,
// panic, fomo]) and refits the forest periodically.
func (s *IForestAnomalyScorer) Observe(features []float64) {
	if len(features) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, features)
	if len(s.buffer) > s.maxBuffer {
		s.buffer = s.buffer[len(s.buffer)-s.maxBuffer:]
	}
	s.sinceFit++

	if len(s.buffer) < 16 {
		return
	}
	if s.forest != nil && s.sinceFit < s.refitEvery {
		s.lastScore = s.forest.Score(features)
		return
	}

	forest := iforest.New(iforest.WithNumTrees(64), iforest.WithSubsampleSize(min(len(s.buffer), 128)))
	forest.Fit(s.buffer)
	s.forest = forest
	s.sinceFit = 0
	s.lastScore = forest.Score(features)
}

// Score returns the most recently computed anomaly score (higher = more
// anomalous under isolation-forest convention), or 0 before enough data
// has accumulated to fit.
func (s *IForestAnomalyScorer) Score() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScore
}
