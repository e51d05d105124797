// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package statestore keeps the last known leadership state of the migration
// on local disk, so that a restarted controller can tell how far it got
// before reading the legacy store again.
package statestore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"

	"github.com/zpllz/kafka/state"
)

const fileMode os.FileMode = 0o600

var (
	stateKey = []byte("leadership_state")
	// ErrClosed is returned when using a closed Store.
	ErrClosed = errors.New("statestore: store is closed")
)

// Store persists a state.LeadershipState in a bbolt database.
//
// bbolt gives single writer and multi reader semantics; the Store only
// guards its closed flag.
type Store struct {
	db     *bbolt.DB
	bucket []byte
	closed *atomic.Bool
}

// Open opens or creates the database named by config.
func Open(config *Config) (*Store, error) {
	if config == nil {
		return nil, errors.New("statestore: config is nil")
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(config.Path, fileMode, &bbolt.Options{Timeout: config.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("statestore: opening boltdb: %w", err)
	}

	bucket := []byte(config.Bucket)
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("statestore: initializing boltdb bucket: %w", err)
	}

	return &Store{db: db, bucket: bucket, closed: atomic.NewBool(false)}, nil
}

// Save replaces the persisted state with ls.
func (s *Store) Save(ctx context.Context, ls state.LeadershipState) error {
	if err := s.ensureUsable(ctx); err != nil {
		return err
	}

	data, err := cbor.Marshal(ls.Snapshot())
	if err != nil {
		return fmt.Errorf("statestore: encoding state: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("statestore: bucket %q missing", s.bucket)
		}
		return bucket.Put(stateKey, data)
	})
}

// Load returns the persisted state. The boolean is false when nothing was
// saved yet, in which case state.Empty is returned.
func (s *Store) Load(ctx context.Context) (state.LeadershipState, bool, error) {
	if err := s.ensureUsable(ctx); err != nil {
		return state.Empty, false, err
	}

	var (
		snapshot state.Snapshot
		found    bool
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("statestore: bucket %q missing", s.bucket)
		}

		raw := bucket.Get(stateKey)
		if raw == nil {
			return nil
		}

		// raw is only valid for the life of the transaction
		if err := cbor.Unmarshal(raw, &snapshot); err != nil {
			return fmt.Errorf("statestore: decoding state: %w", err)
		}
		found = true
		return nil
	})

	if err != nil || !found {
		return state.Empty, false, err
	}
	return state.FromSnapshot(snapshot), true, nil
}

// Clear removes the persisted state.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.ensureUsable(ctx); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("statestore: bucket %q missing", s.bucket)
		}
		return bucket.Delete(stateKey)
	})
}

// Close closes the database. Close is idempotent.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureUsable(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}
