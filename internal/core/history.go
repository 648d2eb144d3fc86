package core

import (
	"errors"
	"sync"

	"github.com/JonMunkholm/OrderImport/internal/ingest"
)

// ErrRunNotFound is returned when an import id is not in the history.
var ErrRunNotFound = errors.New("import run not found")

// RunHistory keeps the most recent import results in memory.
type RunHistory struct {
	mu    sync.RWMutex
	limit int
	runs  []*ingest.Result // oldest first
}

// NewRunHistory keeps at most limit results.
func NewRunHistory(limit int) *RunHistory {
	if limit <= 0 {
		limit = 100
	}
	return &RunHistory{limit: limit}
}

// Add records a finished run, evicting the oldest when full.
func (h *RunHistory) Add(res *ingest.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.runs) == h.limit {
		copy(h.runs, h.runs[1:])
		h.runs = h.runs[:len(h.runs)-1]
	}
	h.runs = append(h.runs, res)
}

// Get returns the run with the given import id.
func (h *RunHistory) Get(importID string) (*ingest.Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.runs {
		if r.ImportID == importID {
			return r, nil
		}
	}
	return nil, ErrRunNotFound
}

// List returns recorded runs, newest first.
func (h *RunHistory) List() []*ingest.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*ingest.Result, len(h.runs))
	for i, r := range h.runs {
		out[len(h.runs)-1-i] = r
	}
	return out
}
