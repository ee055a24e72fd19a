package service

import "sync"

// SampleLocks serialises lifecycle mutations per sample id, so concurrent
// measurement recordings, status changes and report transitions against the
// same sample cannot interleave their read-modify-write cycles. One registry
// is shared by every service that mutates samples; locks for distinct
// samples do not contend.
type SampleLocks struct {
	mu    sync.Mutex
	locks map[string]*sampleLockEntry
}

type sampleLockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewSampleLocks builds an empty lock registry.
func NewSampleLocks() *SampleLocks {
	return &SampleLocks{locks: make(map[string]*sampleLockEntry)}
}

// Lock acquires the per-sample mutex and returns its release function.
func (l *SampleLocks) Lock(sampleID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[sampleID]
	if !ok {
		entry = &sampleLockEntry{}
		l.locks[sampleID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sampleID)
		}
		l.mu.Unlock()
	}
}
