package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Default cadences.
const (
	DefaultYieldEvery    = 100_000
	DefaultProgressEvery = 10
)

// Outcome messages.
const (
	BoundedMessage  = "Heavy process completed"
	UnstableMessage = "Process completed successfully"
	UnstableError   = "Process failed unexpectedly"
	BatchMessage    = "Batch processing completed"

	ItemStatusProcessed = "processed"
)

// Rand is the random source used by the unstable job. Implementations must
// be safe for concurrent use when the Simulator serves concurrent requests.
type Rand interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

// ProgressFunc observes batch progress. It is called on the job goroutine.
type ProgressFunc func(processed, total int)

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the random source for unstable jobs.
func WithRand(r Rand) Option {
	return func(s *Simulator) { s.rand = r }
}

// WithSeed seeds the default random source, making unstable outcomes
// reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.rand = newLockedRand(seed) }
}

// WithYield replaces the scheduler yield used by the bounded job.
func WithYield(fn func()) Option {
	return func(s *Simulator) { s.yield = fn }
}

// WithYieldEvery sets how many bounded iterations run between yields.
func WithYieldEvery(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.yieldEvery = n
		}
	}
}

// WithProgressEvery sets how many batch items are processed between progress
// observations.
func WithProgressEvery(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.progressEvery = n
		}
	}
}

// WithClock replaces the wall clock used for timestamps and elapsed time.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// Simulator runs simulated jobs. It holds no per-job state and is safe for
// concurrent use.
type Simulator struct {
	logger        *slog.Logger
	rand          Rand
	yield         func()
	yieldEvery    int
	progressEvery int
	now           func() time.Time
}

// New creates a simulator. Without options it uses a time-seeded random
// source, runtime.Gosched as the yield and the default cadences.
func New(logger *slog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		logger:        logger,
		yield:         runtime.Gosched,
		yieldEvery:    DefaultYieldEvery,
		progressEvery: DefaultProgressEvery,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rand == nil {
		s.rand = newLockedRand(uint64(time.Now().UnixNano()))
	}
	return s
}

// BoundedResult is the outcome of a bounded job.
type BoundedResult struct {
	Message        string        `json:"message"`
	ProcessingTime string        `json:"processingTime"`
	Iterations     int           `json:"iterations"`
	Result         string        `json:"result"`
	Timestamp      time.Time     `json:"timestamp"`
	Elapsed        time.Duration `json:"-"`
}

// UnstableResult is the outcome of an unstable job. Exactly one of Message
// and Error is set.
type UnstableResult struct {
	Message        string        `json:"message,omitempty"`
	Error          string        `json:"error,omitempty"`
	ProcessingTime string        `json:"processingTime"`
	Timestamp      time.Time     `json:"timestamp"`
	Failed         bool          `json:"-"`
	Elapsed        time.Duration `json:"-"`
}

// BatchItemResult records one processed batch item.
type BatchItemResult struct {
	Index       int       `json:"index"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processedAt"`
}

// BatchResult is the outcome of a batch job.
type BatchResult struct {
	Message        string            `json:"message"`
	ProcessingTime string            `json:"processingTime"`
	ItemsProcessed int               `json:"itemsProcessed"`
	Results        []BatchItemResult `json:"results"`
	Timestamp      time.Time         `json:"timestamp"`
	Elapsed        time.Duration     `json:"-"`
}

// RunBounded performs p.Iterations steps of numeric accumulation, yielding to
// the scheduler every yieldEvery steps, then waits p.Duration. It never fails
// on its own; the only error is the context's. On error the returned result
// carries the elapsed time so far.
func (s *Simulator) RunBounded(ctx context.Context, p BoundedParams) (BoundedResult, error) {
	start := s.now()
	s.logger.Debug("bounded job started", "iterations", p.Iterations, "duration_ms", p.Duration.Milliseconds())

	var acc float64
	for i := 0; i < p.Iterations; i++ {
		x := float64(i)
		acc += math.Sqrt(x) * math.Sin(x)

		if (i+1)%s.yieldEvery == 0 {
			s.yield()
			if err := ctx.Err(); err != nil {
				return BoundedResult{Elapsed: s.since(start)}, fmt.Errorf("bounded job compute: %w", err)
			}
		}
	}

	if err := sleep(ctx, p.Duration); err != nil {
		return BoundedResult{Elapsed: s.since(start)}, fmt.Errorf("bounded job wait: %w", err)
	}

	elapsed := s.since(start)
	return BoundedResult{
		Message:        BoundedMessage,
		ProcessingTime: FormatElapsed(elapsed),
		Iterations:     p.Iterations,
		Result:         strconv.FormatFloat(acc, 'f', 2, 64),
		Timestamp:      s.now().UTC(),
		Elapsed:        elapsed,
	}, nil
}

// RunUnstable waits p.Duration and then draws once from the random source.
// A draw below p.FailRate yields a failed result. The failure is part of the
// result, not an error.
func (s *Simulator) RunUnstable(ctx context.Context, p UnstableParams) (UnstableResult, error) {
	start := s.now()

	if err := sleep(ctx, p.Duration); err != nil {
		return UnstableResult{Elapsed: s.since(start)}, fmt.Errorf("unstable job wait: %w", err)
	}

	failed := s.rand.Float64() < p.FailRate
	elapsed := s.since(start)
	res := UnstableResult{
		ProcessingTime: FormatElapsed(elapsed),
		Timestamp:      s.now().UTC(),
		Failed:         failed,
		Elapsed:        elapsed,
	}
	if failed {
		res.Error = UnstableError
		s.logger.Debug("unstable job failed", "fail_rate", p.FailRate, "elapsed_ms", elapsed.Milliseconds())
	} else {
		res.Message = UnstableMessage
	}
	return res, nil
}

// RunBatch processes p.Items strictly in order, waiting p.ProcessingDelay
// before recording each item. progress, when non-nil, is called after every
// progressEvery items. On error the returned result holds the items
// processed so far.
func (s *Simulator) RunBatch(ctx context.Context, p BatchParams, progress ProgressFunc) (BatchResult, error) {
	start := s.now()
	total := len(p.Items)
	results := make([]BatchItemResult, 0, total)

	for i := range p.Items {
		if err := sleep(ctx, p.ProcessingDelay); err != nil {
			return BatchResult{
				ItemsProcessed: len(results),
				Results:        results,
				Elapsed:        s.since(start),
			}, fmt.Errorf("batch item %d: %w", i, err)
		}

		results = append(results, BatchItemResult{
			Index:       i,
			Status:      ItemStatusProcessed,
			ProcessedAt: s.now().UTC(),
		})

		if done := len(results); progress != nil && done%s.progressEvery == 0 {
			progress(done, total)
		}
	}

	elapsed := s.since(start)
	return BatchResult{
		Message:        BatchMessage,
		ProcessingTime: FormatElapsed(elapsed),
		ItemsProcessed: len(results),
		Results:        results,
		Timestamp:      s.now().UTC(),
		Elapsed:        elapsed,
	}, nil
}

func (s *Simulator) since(start time.Time) time.Duration {
	return s.now().Sub(start)
}

// FormatElapsed renders a duration as whole milliseconds, e.g. "3012ms".
func FormatElapsed(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lockedRand serializes access to a PCG generator.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(seed uint64) *lockedRand {
	return &lockedRand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}
