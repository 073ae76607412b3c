package snapshot

import (
	"sync"
	"sync/atomic"

	"github.com/netops-tools/invsync/pkg/errors"
)

// Cache holds at most one published snapshot.
type Cache struct {
	current atomic.Pointer[Snapshot]

	// mu orders publishers so versions are assigned in swap order.
	mu      sync.Mutex
	version uint64
}

// NewCache returns an empty cache; Get fails with NOT_READY until the first
// Publish or Restore.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the published snapshot.
func (c *Cache) Get() (*Snapshot, error) {
	s := c.current.Load()
	if s == nil {
		return nil, errors.New(errors.ErrCodeNotReady, "no inventory snapshot has been published yet")
	}
	return s, nil
}

// Ready reports whether a snapshot is published.
func (c *Cache) Ready() bool {
	return c.current.Load() != nil
}

// Publish validates candidate and makes a copy of it, stamped with the
// next version, the published snapshot. The candidate itself is not
// modified. An invalid candidate leaves the cache untouched.
func (c *Cache) Publish(candidate *Snapshot) (*Snapshot, error) {
	if err := candidate.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "refusing to publish inconsistent snapshot", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	pub := *candidate
	pub.Version = c.version
	pub.Restored = false
	c.current.Store(&pub)
	return &pub, nil
}

// Restore installs a persisted snapshot when nothing has been published.
// The version counter continues from the restored version. It reports
// whether s was installed.
func (c *Cache) Restore(s *Snapshot) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, "refusing to restore inconsistent snapshot", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current.Load() != nil {
		return false, nil
	}
	restored := *s
	restored.Restored = true
	c.version = max(c.version, restored.Version)
	c.current.Store(&restored)
	return true, nil
}
