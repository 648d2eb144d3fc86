// Package orders holds the canonical Order entity and the keyed storage port
// the importer writes through.
//
// Every implementation of [Store] guarantees at most one stored order per
// business key (OrderID). Re-importing a key updates its mutable attributes
// and never creates a second row.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no order exists for a business key.
	ErrNotFound = errors.New("order not found")

	// ErrDuplicate is returned by Create when the business key already exists.
	ErrDuplicate = errors.New("duplicate order id")
)

// Order is the canonical, deduplicated entity built from a source record.
type Order struct {
	ID       uuid.UUID       `json:"id"`
	OrderID  string          `json:"orderId"`
	ShopID   string          `json:"shopId"`
	Status   string          `json:"status,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
	EventAt  *time.Time      `json:"eventAt,omitempty"`
	Source   string          `json:"source"`

	// ImportedAt is stamped when the order is first created and is never
	// changed by later imports. UpdatedAt moves on every applied update.
	ImportedAt time.Time `json:"importedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Apply copies the mutable attributes of incoming onto o and reports whether
// anything changed. OrderID, ID and ImportedAt are never touched.
//
// Status and Currency are only carried by some formats, so an empty incoming
// value leaves the stored one in place.
func (o *Order) Apply(incoming Order) bool {
	changed := false

	if o.ShopID != incoming.ShopID {
		o.ShopID = incoming.ShopID
		changed = true
	}
	if !o.Price.Equal(incoming.Price) {
		o.Price = incoming.Price
		changed = true
	}
	if !sameTime(o.EventAt, incoming.EventAt) {
		o.EventAt = incoming.EventAt
		changed = true
	}
	if incoming.Status != "" && o.Status != incoming.Status {
		o.Status = incoming.Status
		changed = true
	}
	if incoming.Currency != "" && o.Currency != incoming.Currency {
		o.Currency = incoming.Currency
		changed = true
	}
	if incoming.Source != "" && o.Source != incoming.Source {
		o.Source = incoming.Source
		changed = true
	}

	return changed
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Store is the keyed persistence port used by the upsert sink.
// Implementations must be safe for sequential use; the importer never calls
// a Store concurrently.
type Store interface {
	// FindByOrderID returns the stored order or ErrNotFound.
	FindByOrderID(ctx context.Context, orderID string) (Order, error)

	// Create persists a new order. Returns ErrDuplicate if the key exists.
	Create(ctx context.Context, o Order) error

	// Update overwrites the mutable attributes of an existing order.
	// Returns ErrNotFound if the key does not exist.
	Update(ctx context.Context, o Order) error

	// Count returns the number of distinct stored orders.
	Count(ctx context.Context) (int64, error)
}
