package source

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
)

// State is a position in the request retry state machine.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateBackoff
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RetryPolicy bounds how a single request is retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff; each further retry doubles it.
	BaseDelay time.Duration

	// MaxDelay caps exponential backoff.
	MaxDelay time.Duration

	// RateLimitDelay is used for throttling responses without Retry-After.
	RateLimitDelay time.Duration

	// Jitter spreads backoff by up to +/-20%.
	Jitter bool
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     defaults.SourceMaxRetries,
		BaseDelay:      defaults.SourceBackoffBase,
		MaxDelay:       defaults.SourceBackoffMax,
		RateLimitDelay: defaults.SourceRateLimitBackoff,
		Jitter:         true,
	}
}

// Backoff returns the delay before retry number n (1-based) following err.
func (p RetryPolicy) Backoff(n int, err error) time.Duration {
	if se, ok := errors.AsStructured(err); ok && se.Code == errors.ErrCodeRateLimitExceeded {
		if d, ok := se.RetryAfter(); ok {
			return d
		}
		return p.RateLimitDelay
	}

	d := p.BaseDelay
	for i := 1; i < n && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter && d > 0 {
		spread := int64(d) / 5
		if spread > 0 {
			d += time.Duration(rand.Int64N(2*spread+1) - spread)
		}
	}
	return d
}

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// machine drives one request through Idle, Attempting and Backoff to a
// terminal Succeeded or Failed state.
type machine struct {
	policy   RetryPolicy
	sleep    sleepFunc
	resource string

	state       State
	attempts    int
	transitions int
	lastErr     error
	history     []State
}

func newMachine(policy RetryPolicy, sleep sleepFunc, resource string) *machine {
	if sleep == nil {
		sleep = sleepContext
	}
	return &machine{policy: policy, sleep: sleep, resource: resource, state: StateIdle}
}

// maxTransitions is the longest legal path: Idle, then one Attempting per
// attempt, one Backoff per retry and a terminal state.
func (m *machine) maxTransitions() int {
	retries := max(m.policy.MaxRetries, 0)
	return 2*retries + 3
}

func (m *machine) to(s State) {
	m.state = s
	m.transitions++
	m.history = append(m.history, s)
}

// run executes fn until it succeeds, fails with a non-retryable error, the
// retry budget is spent or ctx is done.
func (m *machine) run(ctx context.Context, fn func(context.Context) error) error {
	m.history = append(m.history[:0], StateIdle)
	for {
		if m.transitions > m.maxTransitions() {
			return errors.NewWithContext(errors.ErrCodeInternal, "retry state machine exceeded its transition bound",
				map[string]any{"resource": m.resource, "transitions": m.transitions})
		}

		switch m.state {
		case StateIdle:
			m.to(StateAttempting)

		case StateAttempting:
			m.attempts++
			err := fn(ctx)
			if err == nil {
				m.to(StateSucceeded)
				continue
			}
			m.lastErr = err
			switch {
			case ctx.Err() != nil:
				m.lastErr = errors.Wrap(errors.ErrCodeTimeout, "fetch cancelled", ctx.Err())
				m.to(StateFailed)
			case !errors.IsRetryable(err):
				m.to(StateFailed)
			case m.attempts > m.policy.MaxRetries:
				m.to(StateFailed)
			default:
				m.to(StateBackoff)
			}

		case StateBackoff:
			d := m.policy.Backoff(m.attempts, m.lastErr)
			slog.Warn("source request failed, retrying",
				"resource", m.resource,
				"attempt", m.attempts,
				"code", errors.CodeOf(m.lastErr),
				"delay", d.String(),
				"error", m.lastErr)
			retriesTotal.WithLabelValues(m.resource, string(errors.CodeOf(m.lastErr))).Inc()
			if err := m.sleep(ctx, d); err != nil {
				m.lastErr = errors.Wrap(errors.ErrCodeTimeout, "fetch cancelled during backoff", err)
				m.to(StateFailed)
				continue
			}
			m.to(StateAttempting)

		case StateSucceeded:
			return nil

		case StateFailed:
			return m.lastErr
		}
	}
}
