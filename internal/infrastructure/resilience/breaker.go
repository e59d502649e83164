package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call outright.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half-open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Counts tracks call outcomes within the current generation.
type Counts struct {
	Calls               uint32
	Failures            uint32
	ConsecutiveFailures uint32
}

// Settings configures a Breaker. Zero values get engine-tuned defaults.
type Settings struct {
	// Probes is how many calls are admitted while half-open.
	Probes uint32
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// Window is the closed-state period after which counts reset.
	Window time.Duration
	// Trip decides, after a failure while closed, whether to open.
	Trip func(Counts) bool
	// OnStateChange is invoked on every transition.
	OnStateChange func(from, to State)
}

// Breaker guards calls into the engine daemon. The engine's failures
// are not treated as transient, so the breaker never retries; it only
// sheds calls while the daemon is known to be down.
type Breaker struct {
	settings Settings

	mu        sync.Mutex
	state     State
	counts    Counts
	successes uint32
	expiry    time.Time
}

// New creates a breaker with the given settings.
func New(settings Settings) *Breaker {
	if settings.Probes == 0 {
		settings.Probes = 1
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 10 * time.Second
	}
	if settings.Window == 0 {
		settings.Window = 60 * time.Second
	}
	if settings.Trip == nil {
		settings.Trip = func(c Counts) bool {
			return c.ConsecutiveFailures >= 5
		}
	}
	return &Breaker{
		settings: settings,
		state:    Closed,
		expiry:   time.Now().Add(settings.Window),
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, _ := b.current(time.Now())
	return s
}

// Do runs fn if the breaker admits the call. When open, fn is not
// invoked and ErrOpen is returned.
func (b *Breaker) Do(fn func() error) error {
	gen, err := b.before()
	if err != nil {
		return err
	}
	err = fn()
	b.after(gen, err == nil)
	return err
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, gen := b.current(now)

	if state == Open {
		return gen, ErrOpen
	}
	if state == HalfOpen && b.counts.Calls >= b.settings.Probes {
		return gen, ErrOpen
	}
	b.counts.Calls++
	return gen, nil
}

func (b *Breaker) after(before uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, gen := b.current(now)
	if gen != before {
		// Outcome belongs to a previous generation.
		return
	}

	if ok {
		b.onSuccess(state, now)
	} else {
		b.onFailure(state, now)
	}
}

func (b *Breaker) onSuccess(state State, now time.Time) {
	switch state {
	case Closed:
		b.counts.ConsecutiveFailures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.settings.Probes {
			b.transition(Closed, now)
		}
	}
}

func (b *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case Closed:
		b.counts.Failures++
		b.counts.ConsecutiveFailures++
		if b.settings.Trip(b.counts) {
			b.transition(Open, now)
		}
	case HalfOpen:
		b.transition(Open, now)
	}
}

func (b *Breaker) current(now time.Time) (State, uint64) {
	switch b.state {
	case Closed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.counts = Counts{}
			b.expiry = now.Add(b.settings.Window)
		}
	case Open:
		if b.expiry.Before(now) {
			b.transition(HalfOpen, now)
		}
	}
	return b.state, uint64(b.expiry.UnixNano())
}

func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.counts = Counts{}
	b.successes = 0

	switch state {
	case Closed:
		b.expiry = now.Add(b.settings.Window)
	case Open:
		b.expiry = now.Add(b.settings.Cooldown)
	case HalfOpen:
		b.expiry = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(prev, state)
	}
}
