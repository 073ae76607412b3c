package snapshot

import (
	"time"

	"github.com/netops-tools/invsync/pkg/errors"
)

// Status describes the published snapshot and the refresh history.
type Status struct {
	Ready    bool `json:"ready" yaml:"ready"`
	InFlight bool `json:"in_flight" yaml:"in_flight"`
	Restored bool `json:"restored" yaml:"restored"`

	Version   uint64     `json:"version" yaml:"version"`
	Digest    string     `json:"digest,omitempty" yaml:"digest,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Hosts     int        `json:"hosts" yaml:"hosts"`
	Groups    int        `json:"groups" yaml:"groups"`
	Warnings  int        `json:"warnings" yaml:"warnings"`

	LastTrigger         Trigger          `json:"last_trigger,omitempty" yaml:"last_trigger,omitempty"`
	LastAttempt         *time.Time       `json:"last_attempt,omitempty" yaml:"last_attempt,omitempty"`
	LastSuccess         *time.Time       `json:"last_success,omitempty" yaml:"last_success,omitempty"`
	LastError           string           `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastErrorCode       errors.ErrorCode `json:"last_error_code,omitempty" yaml:"last_error_code,omitempty"`
	ConsecutiveFailures int              `json:"consecutive_failures" yaml:"consecutive_failures"`
}

// Stale reports whether the served snapshot is older than the last attempt
// because that attempt failed.
func (s Status) Stale() bool {
	return s.Ready && s.ConsecutiveFailures > 0
}

// Status returns a copy of the current status.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	st := r.st
	r.mu.Unlock()

	st.InFlight = r.busy.Load()
	if s, err := r.cache.Get(); err == nil {
		created := s.CreatedAt
		st.Ready = true
		st.Restored = s.Restored
		st.Version = s.Version
		st.Digest = s.Digest.String()
		st.CreatedAt = &created
		st.Hosts = len(s.Hosts)
		st.Groups = len(s.Groups)
		st.Warnings = len(s.Warnings)
	}
	return st
}

func (r *Refresher) markAttempt(at time.Time, trigger Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.LastAttempt = &at
	r.st.LastTrigger = trigger
}

func (r *Refresher) markSuccess() {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.LastSuccess = &now
	r.st.LastError = ""
	r.st.LastErrorCode = ""
	r.st.ConsecutiveFailures = 0
}

func (r *Refresher) markFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.LastError = err.Error()
	r.st.LastErrorCode = errors.CodeOf(err)
	r.st.ConsecutiveFailures++
}
