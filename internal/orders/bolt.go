package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ordersBucket = []byte("orders")

// BoltStore keeps orders in a single bbolt bucket keyed by order id.
type BoltStore struct {
	path string
	db   *bolt.DB
}

// OpenBoltStore opens (creating if needed) the bolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt store %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ordersBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing bolt store: %w", err)
	}

	return &BoltStore{path: path, db: db}, nil
}

// Path returns the path to the store's data file.
func (s *BoltStore) Path() string { return s.path }

// Close closes the underlying bolt file.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) FindByOrderID(_ context.Context, orderID string) (Order, error) {
	var o Order
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(ordersBucket).Get([]byte(orderID))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &o)
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *BoltStore) Create(_ context.Context, o Order) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ordersBucket)
		if b.Get([]byte(o.OrderID)) != nil {
			return ErrDuplicate
		}
		return putOrder(b, o)
	})
}

func (s *BoltStore) Update(_ context.Context, o Order) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ordersBucket)
		if b.Get([]byte(o.OrderID)) == nil {
			return ErrNotFound
		}
		return putOrder(b, o)
	})
}

func (s *BoltStore) Count(_ context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		n = int64(tx.Bucket(ordersBucket).Stats().KeyN)
		return nil
	})
	return n, err
}

func putOrder(b *bolt.Bucket, o Order) error {
	v, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encoding order %q: %w", o.OrderID, err)
	}
	return b.Put([]byte(o.OrderID), v)
}
