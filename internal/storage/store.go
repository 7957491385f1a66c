package storage

//go:generate mockgen -package mocks -destination mocks/mock_storage.go github.com/BenjaminSRussell/scopecrawl/internal/storage Store,Session

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when a session or store is used after release.
var ErrClosed = errors.New("storage: closed")

// Store is a durable key-value store whose sessions are mutually exclusive.
// Open blocks until no other session is active, so every read-modify-write
// done inside a session is serialized against all others.
type Store interface {
	// Open acquires exclusive access and starts a session.
	Open() (Session, error)

	// Close releases the underlying resources.
	Close() error
}

// Session is one scoped acquisition of a Store. Values are JSON encoded.
type Session interface {
	// Get decodes the value stored under key into v and reports whether
	// the key existed.
	Get(key string, v any) (bool, error)

	// Set stores v under key, overwriting any previous value.
	Set(key string, v any) error

	// Has reports whether key exists.
	Has(key string) (bool, error)

	// Keys lists every stored key in ascending order.
	Keys() ([]string, error)

	// Close commits the session's writes and releases the store.
	Close() error

	// Rollback discards the session's writes and releases the store.
	Rollback() error
}

// Update runs fn inside one session of store. The session is committed when fn
// succeeds and rolled back otherwise.
func Update(store Store, fn func(Session) error) error {
	sess, err := store.Open()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	if err := fn(sess); err != nil {
		if rbErr := sess.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return sess.Close()
}

// View runs fn inside one session of store and discards any writes.
func View(store Store, fn func(Session) error) error {
	sess, err := store.Open()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	err = fn(sess)
	if rbErr := sess.Rollback(); rbErr != nil && err == nil {
		err = rbErr
	}

	return err
}
