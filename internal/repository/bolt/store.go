// Package bolt provides a BoltDB-backed checkout store.
//
// Orders are stored as one JSON document per aggregate, so every SaveOrder is
// a single key write inside one bolt transaction. Every payment attempt is
// also appended to the transactions bucket, keyed by order id.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
)

var (
	productsBucket     = []byte("products")
	ordersBucket       = []byte("orders")
	transactionsBucket = []byte("transactions")
)

type Store struct {
	db *bolt.DB
}

var _ repository.Store = (*Store)(nil)

// Open opens (or creates) a BoltDB database at path and ensures the buckets
// exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{productsBucket, ordersBucket, transactionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(ordersBucket) == nil {
			return fmt.Errorf("orders bucket is missing")
		}
		return nil
	})
}

func itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(productsBucket).ForEach(func(k, v []byte) error {
			var p domain.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int) (domain.Product, error) {
	var p domain.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(productsBucket).Get(itob(id))
		if v == nil {
			return repository.ErrProductNotFound
		}
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// ReplaceProducts drops and refills the products bucket in one write
// transaction. Readers keep seeing the previous bucket until it commits.
func (s *Store) ReplaceProducts(ctx context.Context, products []domain.Product) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(productsBucket); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("drop products: %w", err)
		}
		b, err := tx.CreateBucket(productsBucket)
		if err != nil {
			return fmt.Errorf("create products bucket: %w", err)
		}
		for _, p := range products {
			if p.Weight != nil && *p.Weight <= 0 {
				return fmt.Errorf("insert product %d: weight must be positive", p.ID)
			}
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err := b.Put(itob(p.ID), data); err != nil {
				return fmt.Errorf("insert product %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ordersBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next order id: %w", err)
		}

		now := time.Now().UTC()
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		order.UpdatedAt = order.CreatedAt
		order.ID = int(seq)

		data, err := json.Marshal(order)
		if err != nil {
			return err
		}
		return b.Put(itob(order.ID), data)
	})
}

func (s *Store) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	var o domain.Order
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(ordersBucket).Get(itob(id))
		if v == nil {
			return repository.ErrOrderNotFound
		}
		return json.Unmarshal(v, &o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) SaveOrder(ctx context.Context, order *domain.Order) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ordersBucket)
		existing := b.Get(itob(order.ID))
		if existing == nil {
			return repository.ErrOrderNotFound
		}
		var stored domain.Order
		if err := json.Unmarshal(existing, &stored); err != nil {
			return err
		}
		if stored.Paid {
			return repository.ErrOrderPaid
		}

		order.UpdatedAt = time.Now().UTC()

		if t := order.Transaction; t != nil {
			history := tx.Bucket(transactionsBucket)
			if !hasTransaction(history, order.ID, t.ID) {
				data, err := json.Marshal(t)
				if err != nil {
					return err
				}
				if err := history.Put(transactionKey(order.ID, t.ID), data); err != nil {
					return fmt.Errorf("insert transaction: %w", err)
				}
			}
		}

		data, err := json.Marshal(order)
		if err != nil {
			return err
		}
		return b.Put(itob(order.ID), data)
	})
}

// DeleteOrder removes an order and its payment history. Deleting a missing
// order is a no-op.
func (s *Store) DeleteOrder(ctx context.Context, id int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(ordersBucket).Delete(itob(id)); err != nil {
			return err
		}
		c := tx.Bucket(transactionsBucket).Cursor()
		prefix := itob(id)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Seek(prefix) {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// TransactionHistory lists every payment attempt recorded for an order in
// insertion order.
func (s *Store) TransactionHistory(ctx context.Context, orderID int) ([]domain.Transaction, error) {
	var history []domain.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(transactionsBucket).Cursor()
		prefix := itob(orderID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var t domain.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			history = append(history, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return history, nil
}

// transactionKey is the order id, a per-write timestamp and the transaction
// id, so a prefix scan returns attempts oldest first.
func transactionKey(orderID int, txID string) []byte {
	key := itob(orderID)
	key = binary.BigEndian.AppendUint64(key, uint64(time.Now().UnixNano()))
	return append(key, txID...)
}

func hasTransaction(b *bolt.Bucket, orderID int, txID string) bool {
	c := b.Cursor()
	prefix := itob(orderID)
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		if string(k[16:]) == txID {
			return true
		}
	}
	return false
}
