package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/OrderImport/internal/metrics"
	"github.com/JonMunkholm/OrderImport/internal/orders"
)

// Outcome is what an upsert did to the store.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	OutcomeUnchanged
)

// String returns the outcome label used in metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return metrics.OutcomeCreated
	case OutcomeUpdated:
		return metrics.OutcomeUpdated
	default:
		return metrics.OutcomeUnchanged
	}
}

// UpsertSink creates or updates orders by business key.
type UpsertSink struct {
	store orders.Store
	now   func() time.Time
}

// NewUpsertSink writes through store. now stamps UpdatedAt; nil means time.Now.
func NewUpsertSink(store orders.Store, now func() time.Time) *UpsertSink {
	if now == nil {
		now = time.Now
	}
	return &UpsertSink{store: store, now: now}
}

// Upsert stores o. A new key is created with all attributes and a fresh id.
// An existing key has only its mutable attributes updated; its id and
// ImportedAt stay as first written. Nothing is written when no attribute
// changed.
func (s *UpsertSink) Upsert(ctx context.Context, o orders.Order) (Outcome, error) {
	existing, err := s.store.FindByOrderID(ctx, o.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		o.ID = uuid.New()
		if o.ImportedAt.IsZero() {
			o.ImportedAt = s.now().UTC()
		}
		o.UpdatedAt = o.ImportedAt
		if err := s.store.Create(ctx, o); err != nil {
			return OutcomeCreated, fmt.Errorf("create order %q: %w", o.OrderID, err)
		}
		return OutcomeCreated, nil
	}
	if err != nil {
		return OutcomeUpdated, fmt.Errorf("lookup order %q: %w", o.OrderID, err)
	}

	if !existing.Apply(o) {
		return OutcomeUnchanged, nil
	}
	existing.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, existing); err != nil {
		return OutcomeUpdated, fmt.Errorf("update order %q: %w", o.OrderID, err)
	}
	return OutcomeUpdated, nil
}
