// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrDenylistClosed is returned after Close.
var ErrDenylistClosed = errors.New("revocation denylist is closed")

const revokedPrefix = "revoked:"

// Denylist records revoked token ids until they would have expired anyway.
// Entries are stored with a badger TTL so the list never outgrows the set of
// live tokens.
type Denylist struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// OpenDenylist opens a persistent denylist at path, or an in-memory one when
// path is empty. In-memory lists forget revocations on restart.
func OpenDenylist(path string) (*Denylist, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for revocations: %w", err)
	}
	return &Denylist{db: db}, nil
}

func revokedKey(jti string) []byte {
	return []byte(revokedPrefix + jti)
}

// Revoke denies jti for ttl. A non-positive ttl is a no-op: the token has
// already expired.
func (d *Denylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDenylistClosed
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(revokedKey(jti), nil).WithTTL(ttl))
	})
}

// IsRevoked reports whether jti is on the list.
func (d *Denylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false, ErrDenylistClosed
	}
	var revoked bool
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(revokedKey(jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		revoked = true
		return nil
	})
	return revoked, err
}

// Close releases the underlying store. It is safe to call twice.
func (d *Denylist) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}
