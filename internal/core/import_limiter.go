package core

// import_limiter.go implements concurrency control for import runs.
//
// The limiter uses a semaphore to restrict parallel imports to a configured
// maximum. The default of one slot serializes every import in the process.
// Independently of the slot count, a given file is never imported by two
// runs at once: the importer keeps per-run read state and is not safe for
// concurrent use on the same source.
//
// The limiter also supports graceful shutdown via WaitForDrain, which blocks
// until all active imports complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when all import slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// ErrImportInProgress is returned when the requested file is already being
// imported by another run.
var ErrImportInProgress = errors.New("import already in progress for this file")

// DefaultMaxConcurrentImports is the default limit for parallel imports.
const DefaultMaxConcurrentImports = 1

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter controls concurrent import runs using a semaphore and a set
// of files currently being read.
type ImportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
	paths  map[string]struct{}
}

// NewImportLimiter creates a limiter that allows at most maxConcurrent
// simultaneous imports. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyImports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ImportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
		paths:     make(map[string]struct{}),
	}
}

// Acquire reserves path and waits for an import slot.
// It fails immediately with ErrImportInProgress if path is already reserved.
// The caller MUST call Release(path) when the import completes (use defer).
func (l *ImportLimiter) Acquire(ctx context.Context, path string) error {
	if !l.reserve(path) {
		return ErrImportInProgress
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		l.unreserve(path)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
}

// TryAcquire reserves path and a slot without blocking.
func (l *ImportLimiter) TryAcquire(path string) bool {
	if !l.reserve(path) {
		return false
	}

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		l.unreserve(path)
		return false
	}
}

// Release releases the slot and the reservation of path.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *ImportLimiter) Release(path string) {
	l.mu.Lock()
	l.active--
	delete(l.paths, path)
	l.mu.Unlock()

	<-l.semaphore
}

func (l *ImportLimiter) reserve(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.paths[path]; busy {
		return false
	}
	l.paths[path] = struct{}{}
	return true
}

func (l *ImportLimiter) unreserve(path string) {
	l.mu.Lock()
	delete(l.paths, path)
	l.mu.Unlock()
}

// ActiveCount returns the number of currently running imports.
func (l *ImportLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent imports.
func (l *ImportLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of available slots.
func (l *ImportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active imports complete or ctx is cancelled.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ImportLimiterStatus is a snapshot of the limiter's current state.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return ImportLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
