package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFailed = errors.New("failed")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(settings Settings) (*Breaker, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("test", settings)
	b.now = c.now
	b.resetExpiry(c.now())
	return b, c
}

func run(b *Breaker, success bool) error {
	return b.Execute(context.Background(), func(context.Context) error {
		if success {
			return nil
		}
		return errFailed
	})
}

func tripAfter(n uint32) func(Counts) bool {
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name:          "opens after consecutive failures",
			settings:      Settings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, ReadyToTrip: tripAfter(3)},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name:          "a success resets the streak",
			settings:      Settings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, ReadyToTrip: tripAfter(3)},
			requests:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker, _ := newTestBreaker(tt.settings)
			for _, success := range tt.requests {
				_ = run(breaker, success)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerOpenRejectsUntilTimeout(t *testing.T) {
	breaker, clk := newTestBreaker(Settings{Timeout: 30 * time.Second, ReadyToTrip: tripAfter(2)})
	require.ErrorIs(t, run(breaker, false), errFailed)
	require.ErrorIs(t, run(breaker, false), errFailed)

	called := false
	err := breaker.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clk.advance(30 * time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())
}

func TestBreakerHalfOpen(t *testing.T) {
	settings := Settings{MaxRequests: 2, Timeout: time.Second, ReadyToTrip: tripAfter(1)}

	t.Run("closes after enough successes", func(t *testing.T) {
		breaker, clk := newTestBreaker(settings)
		_ = run(breaker, false)
		clk.advance(time.Second)

		require.NoError(t, run(breaker, true))
		assert.Equal(t, StateHalfOpen, breaker.State())
		require.NoError(t, run(breaker, true))
		assert.Equal(t, StateClosed, breaker.State())
	})

	t.Run("reopens on failure", func(t *testing.T) {
		breaker, clk := newTestBreaker(settings)
		_ = run(breaker, false)
		clk.advance(time.Second)

		_ = run(breaker, false)
		assert.Equal(t, StateOpen, breaker.State())
	})

	t.Run("limits trial calls", func(t *testing.T) {
		breaker, clk := newTestBreaker(Settings{MaxRequests: 1, Timeout: time.Second, ReadyToTrip: tripAfter(1)})
		_ = run(breaker, false)
		clk.advance(time.Second)

		err := breaker.Execute(context.Background(), func(context.Context) error {
			// a concurrent caller arrives while the trial is in flight
			assert.ErrorIs(t, run(breaker, true), ErrTooManyRequests)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, StateClosed, breaker.State())
	})
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	breaker, _ := newTestBreaker(Settings{ReadyToTrip: tripAfter(1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := breaker.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint32(0), breaker.Counts().TotalFailures)
}

func TestBreakerIntervalClearsCounts(t *testing.T) {
	breaker, clk := newTestBreaker(Settings{Interval: time.Minute, ReadyToTrip: tripAfter(3)})
	_ = run(breaker, false)
	_ = run(breaker, false)
	assert.Equal(t, uint32(2), breaker.Counts().ConsecutiveFailures)

	clk.advance(time.Minute)
	_ = run(breaker, false)
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint32(1), breaker.Counts().ConsecutiveFailures)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker, _ := newTestBreaker(Settings{ReadyToTrip: tripAfter(1)})

	assert.Panics(t, func() {
		_ = breaker.Execute(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string
	breaker, clk := newTestBreaker(Settings{
		Timeout:     time.Second,
		ReadyToTrip: tripAfter(1),
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = run(breaker, false)
	clk.advance(time.Second)
	_ = run(breaker, true)

	assert.Equal(t, []string{
		"test:closed->open",
		"test:open->half-open",
		"test:half-open->closed",
	}, transitions)
}

func TestSet(t *testing.T) {
	set := NewSet(Settings{Timeout: time.Minute, ReadyToTrip: tripAfter(1)})

	err := set.Execute(context.Background(), "classify", func(context.Context) error { return errFailed })
	require.ErrorIs(t, err, errFailed)
	assert.Same(t, set.Get("classify"), set.Get("classify"))

	err = set.Execute(context.Background(), "classify", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.NoError(t, set.Execute(context.Background(), "summarize", func(context.Context) error { return nil }))
	assert.Equal(t, map[string]string{"classify": "open"}, set.States())

	set.Forget("classify")
	assert.Equal(t, StateClosed, set.Get("classify").State())
	assert.Empty(t, set.States())
}
