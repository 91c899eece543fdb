// Package boltdb is the embedded single-file storage backend. Every write goes
// through one bbolt read-write transaction, and bbolt admits a single writer at
// a time, so a unit of work run by the Transactor is atomic and serialized.
package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketCycles        = []byte("savings_cycles")
	bucketMembers       = []byte("profiles")
	bucketContributions = []byte("contributions")
	bucketPayments      = []byte("payment_transactions")
	bucketAdjustments   = []byte("balance_adjustments")
	bucketWithdrawals   = []byte("withdrawal_requests")
)

const openTimeout = 5 * time.Second

var now = func() time.Time { return time.Now().UTC() }

// DB wraps an open bbolt file.
type DB struct {
	db *bolt.DB
}

// Open opens (or creates) the database file at path and ensures every bucket exists.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{
			bucketCycles, bucketMembers, bucketContributions, bucketPayments, bucketAdjustments, bucketWithdrawals,
		} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

type txKey struct{}

// Transactor runs units of work inside one read-write bbolt transaction.
type Transactor struct {
	db *DB
}

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx runs fn with a context carrying the transaction. A nested call reuses the outer one.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.update(ctx, func(tx *bolt.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (d *DB) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*bolt.Tx); ok && tx.Writable() {
		return fn(tx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

func (d *DB) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*bolt.Tx); ok {
		return fn(tx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

func put(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

// get decodes the value stored at key into v and reports whether it existed.
func get(b *bolt.Bucket, key string, v any) (bool, error) {
	data := b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

// each decodes every value in b into a fresh T and passes it to fn.
func each[T any](b *bolt.Bucket, fn func(*T) error) error {
	return b.ForEach(func(_, v []byte) error {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return err
		}
		return fn(&item)
	})
}
