package simulator

import (
	"math"
	"testing"
	"time"
)

func f(v float64) *float64 { return &v }

func TestNewBoundedParams(t *testing.T) {
	tests := []struct {
		name           string
		duration       *float64
		iterations     *float64
		wantDuration   time.Duration
		wantIterations int
	}{
		{"defaults", nil, nil, 3 * time.Second, 1_000_000},
		{"explicit", f(500), f(200_000), 500 * time.Millisecond, 200_000},
		{"zero duration", f(0), nil, 0, DefaultIterations},
		{"negative falls back", f(-1), f(-5), 3 * time.Second, 1_000_000},
		{"nan falls back", f(math.NaN()), f(math.NaN()), 3 * time.Second, 1_000_000},
		{"clamped high", f(99_999), f(1e12), 30 * time.Second, 10_000_000},
		{"clamped low iterations", nil, f(10), 3 * time.Second, 100_000},
		{"infinite clamps", f(math.Inf(1)), f(math.Inf(1)), 30 * time.Second, 10_000_000},
		{"fraction truncates", f(12.9), nil, 12 * time.Millisecond, 1_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBoundedParams(tt.duration, tt.iterations)
			if got.Duration != tt.wantDuration {
				t.Errorf("Duration = %v, want %v", got.Duration, tt.wantDuration)
			}
			if got.Iterations != tt.wantIterations {
				t.Errorf("Iterations = %d, want %d", got.Iterations, tt.wantIterations)
			}
		})
	}
}

func TestNewUnstableParams(t *testing.T) {
	tests := []struct {
		name         string
		duration     *float64
		failRate     *float64
		wantDuration time.Duration
		wantRate     float64
	}{
		{"defaults", nil, nil, 2 * time.Second, 0.3},
		{"explicit", f(100), f(0.75), 100 * time.Millisecond, 0.75},
		{"rate clamped high", nil, f(4), 2 * time.Second, 1},
		{"rate clamped low", nil, f(-0.5), 2 * time.Second, 0},
		{"rate nan", nil, f(math.NaN()), 2 * time.Second, 0.3},
		{"duration clamped", f(60_000), nil, 10 * time.Second, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewUnstableParams(tt.duration, tt.failRate)
			if got.Duration != tt.wantDuration {
				t.Errorf("Duration = %v, want %v", got.Duration, tt.wantDuration)
			}
			if got.FailRate != tt.wantRate {
				t.Errorf("FailRate = %v, want %v", got.FailRate, tt.wantRate)
			}
		})
	}
}

func TestNewBatchParams(t *testing.T) {
	tests := []struct {
		name      string
		items     []string
		delay     *float64
		wantDelay time.Duration
		wantLen   int
	}{
		{"defaults", []string{"a"}, nil, 100 * time.Millisecond, 1},
		{"nil items", nil, f(20), 20 * time.Millisecond, 0},
		{"delay clamped low", []string{"a", "b"}, f(1), 10 * time.Millisecond, 2},
		{"delay clamped high", nil, f(5000), time.Second, 0},
		{"negative delay", nil, f(-3), 100 * time.Millisecond, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBatchParams(tt.items, tt.delay)
			if got.ProcessingDelay != tt.wantDelay {
				t.Errorf("ProcessingDelay = %v, want %v", got.ProcessingDelay, tt.wantDelay)
			}
			if got.Items == nil {
				t.Fatal("Items is nil, want non-nil slice")
			}
			if len(got.Items) != tt.wantLen {
				t.Errorf("len(Items) = %d, want %d", len(got.Items), tt.wantLen)
			}
		})
	}
}
