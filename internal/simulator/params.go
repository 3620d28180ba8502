package simulator

import (
	"math"
	"time"
)

// Bounded job limits.
const (
	DefaultBoundedDurationMS = 3000
	MaxBoundedDurationMS     = 30000
	DefaultIterations        = 1_000_000
	MinIterations            = 100_000
	MaxIterations            = 10_000_000
)

// Unstable job limits.
const (
	DefaultUnstableDurationMS = 2000
	MaxUnstableDurationMS     = 10000
	DefaultFailRate           = 0.3
)

// Batch job limits.
const (
	DefaultProcessingDelayMS = 100
	MinProcessingDelayMS     = 10
	MaxProcessingDelayMS     = 1000
)

// BoundedParams configures a bounded CPU job.
type BoundedParams struct {
	Duration   time.Duration
	Iterations int
}

// UnstableParams configures an unstable job.
type UnstableParams struct {
	Duration time.Duration
	FailRate float64
}

// BatchParams configures a batch job.
type BatchParams struct {
	Items           []string
	ProcessingDelay time.Duration
}

// NewBoundedParams resolves raw inputs into bounded job parameters. A nil
// pointer means the input was missing or could not be parsed.
func NewBoundedParams(durationMS, iterations *float64) BoundedParams {
	return BoundedParams{
		Duration:   millis(resolveInt(durationMS, DefaultBoundedDurationMS, 0, MaxBoundedDurationMS)),
		Iterations: resolveInt(iterations, DefaultIterations, MinIterations, MaxIterations),
	}
}

// NewUnstableParams resolves raw inputs into unstable job parameters.
func NewUnstableParams(durationMS, failRate *float64) UnstableParams {
	return UnstableParams{
		Duration: millis(resolveInt(durationMS, DefaultUnstableDurationMS, 0, MaxUnstableDurationMS)),
		FailRate: resolveRate(failRate, DefaultFailRate),
	}
}

// NewBatchParams resolves raw inputs into batch job parameters. A nil items
// slice is treated as empty.
func NewBatchParams(items []string, processingDelayMS *float64) BatchParams {
	if items == nil {
		items = []string{}
	}
	return BatchParams{
		Items:           items,
		ProcessingDelay: millis(resolveInt(processingDelayMS, DefaultProcessingDelayMS, MinProcessingDelayMS, MaxProcessingDelayMS)),
	}
}

// resolveInt returns def for missing, NaN or negative input and otherwise
// clamps the truncated value into [lo, hi].
func resolveInt(v *float64, def, lo, hi int) int {
	if v == nil || math.IsNaN(*v) || *v < 0 {
		return def
	}
	if *v > float64(hi) {
		return hi
	}
	n := int(*v)
	if n < lo {
		return lo
	}
	return n
}

// resolveRate returns def for missing or NaN input and clamps into [0, 1].
func resolveRate(v *float64, def float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return def
	}
	return math.Min(1, math.Max(0, *v))
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
