package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFail = errors.New("engine down")

func run(b *Breaker, outcomes []bool) {
	for _, ok := range outcomes {
		_ = b.Do(func() error {
			if ok {
				return nil
			}
			return errFail
		})
	}
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		outcomes []bool // true = success, false = failure
		expected State
	}{
		{
			name:     "stays closed on successes",
			settings: Settings{Window: time.Minute, Cooldown: time.Minute},
			outcomes: []bool{true, true, true},
			expected: Closed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				Window:   time.Minute,
				Cooldown: time.Minute,
				Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
			},
			outcomes: []bool{false, false, false},
			expected: Open,
		},
		{
			name: "success resets consecutive failures",
			settings: Settings{
				Window:   time.Minute,
				Cooldown: time.Minute,
				Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
			},
			outcomes: []bool{false, false, true, false, false},
			expected: Closed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.settings)
			run(b, tt.outcomes)
			assert.Equal(t, tt.expected, b.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	b := New(Settings{
		Cooldown: time.Minute,
		Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	require.ErrorIs(t, b.Do(func() error { return errFail }), errFail)

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := New(Settings{
		Probes:   1,
		Cooldown: 10 * time.Millisecond,
		Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	_ = b.Do(func() error { return errFail })
	require.Equal(t, Open, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())

	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, Closed, b.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := New(Settings{
		Probes:   1,
		Cooldown: 10 * time.Millisecond,
		Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	_ = b.Do(func() error { return errFail })

	time.Sleep(20 * time.Millisecond)
	_ = b.Do(func() error { return errFail })
	assert.Equal(t, Open, b.State())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "open", Open.String())
}

func TestBreakerOnStateChange(t *testing.T) {
	var transitions []State
	b := New(Settings{
		Cooldown: time.Minute,
		Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: func(_, to State) {
			transitions = append(transitions, to)
		},
	})
	_ = b.Do(func() error { return errFail })
	require.Equal(t, []State{Open}, transitions)
}
