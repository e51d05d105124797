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

// Package memory provides an in-process legacy.Store. It keeps ZooKeeper
// style per-node versions and can simulate session loss, which makes it the
// store of choice for exercising the migration components in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/zpllz/kafka/legacy"
)

type node struct {
	data    []byte
	version int64
}

// Store is an in-memory legacy.Store
type Store struct {
	mu       sync.Mutex
	nodes    map[string]node
	maxOps   int
	connCond chan struct{}

	connected    *atomic.Bool
	failNext     *atomic.Bool
	dropNext     *atomic.Bool
	commits      *atomic.Int64
	multiCalls   *atomic.Int64
	disconnects  *atomic.Int64
	reconnectHit func()
}

var _ legacy.Store = (*Store)(nil)

// Option configures the Store
type Option func(*Store)

// WithMaxOpsPerTxn limits the number of ops a single Multi accepts.
func WithMaxOpsPerTxn(max int) Option {
	return func(s *Store) { s.maxOps = max }
}

// WithReconnectHook registers a function called every time a caller starts
// waiting for the session to come back.
func WithReconnectHook(hook func()) Option {
	return func(s *Store) { s.reconnectHit = hook }
}

// New creates a connected, empty Store
func New(opts ...Option) *Store {
	s := &Store{
		nodes:       make(map[string]node),
		connCond:    make(chan struct{}),
		connected:   atomic.NewBool(true),
		failNext:    atomic.NewBool(false),
		dropNext:    atomic.NewBool(false),
		commits:     atomic.NewInt64(0),
		multiCalls:  atomic.NewInt64(0),
		disconnects: atomic.NewInt64(0),
	}
	close(s.connCond)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements legacy.Store.
func (s *Store) Get(ctx context.Context, path string) (legacy.Node, error) {
	if err := s.ready(ctx); err != nil {
		return legacy.Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[path]
	if !ok {
		return legacy.Node{}, legacy.ErrNodeNotFound
	}
	return legacy.Node{Path: path, Data: clone(n.data), Version: n.version}, nil
}

// Children implements legacy.Store.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	paths := make([]string, 0, len(s.nodes))
	for p := range s.nodes {
		paths = append(paths, p)
	}
	s.mu.Unlock()
	return legacy.ChildNames(path, paths), nil
}

// Multi implements legacy.Store. Ops are evaluated in order against the
// effects of the previous ops of the same transaction.
func (s *Store) Multi(ctx context.Context, ops []legacy.Op) (legacy.TxnResult, error) {
	s.multiCalls.Inc()
	if err := s.ready(ctx); err != nil {
		return legacy.TxnResult{}, err
	}

	if s.failNext.CompareAndSwap(true, false) {
		s.Disconnect()
		return legacy.TxnResult{}, legacy.ErrDisconnected
	}

	if s.maxOps > 0 && len(ops) > s.maxOps {
		return legacy.TxnResult{}, &TooManyOpsError{Count: len(ops), Max: s.maxOps}
	}

	s.mu.Lock()
	versions := make(map[string]int64, len(ops))
	for _, path := range legacy.Paths(ops) {
		if n, ok := s.nodes[path]; ok {
			versions[path] = n.version
		}
	}

	plan, result := legacy.Simulate(ops, versions)
	if !result.Succeeded {
		s.mu.Unlock()
		return result, nil
	}

	for _, effect := range plan.Effects {
		switch {
		case effect.Written:
			s.nodes[effect.Path] = node{data: clone(effect.Data), version: effect.After}
		case effect.Deleted:
			delete(s.nodes, effect.Path)
		}
	}
	s.mu.Unlock()
	s.commits.Inc()

	if s.dropNext.CompareAndSwap(true, false) {
		s.Disconnect()
		return legacy.TxnResult{}, legacy.ErrDisconnected
	}
	return result, nil
}

// AwaitConnected implements legacy.Store.
func (s *Store) AwaitConnected(ctx context.Context) error {
	if s.connected.Load() {
		return nil
	}

	if s.reconnectHit != nil {
		s.reconnectHit()
	}

	s.mu.Lock()
	ch := s.connCond
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MaxOpsPerTxn implements legacy.Store.
func (s *Store) MaxOpsPerTxn() int {
	return s.maxOps
}

// Disconnect drops the session. Every call fails with legacy.ErrDisconnected
// until Reconnect is called.
func (s *Store) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected.CompareAndSwap(true, false) {
		s.connCond = make(chan struct{})
		s.disconnects.Inc()
	}
}

// Reconnect restores the session and releases waiters.
func (s *Store) Reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected.CompareAndSwap(false, true) {
		close(s.connCond)
	}
}

// DisconnectFor drops the session and restores it once d has elapsed.
func (s *Store) DisconnectFor(d time.Duration) {
	s.Disconnect()
	time.AfterFunc(d, s.Reconnect)
}

// FailNextMulti makes the next Multi drop the session before applying.
func (s *Store) FailNextMulti() {
	s.failNext.Store(true)
}

// DropNextResponse makes the next Multi apply its ops and then drop the
// session before the caller learns the outcome.
func (s *Store) DropNextResponse() {
	s.dropNext.Store(true)
}

// Commits returns the number of transactions applied so far.
func (s *Store) Commits() int64 {
	return s.commits.Load()
}

// MultiCalls returns the number of Multi invocations so far.
func (s *Store) MultiCalls() int64 {
	return s.multiCalls.Load()
}

// Disconnects returns the number of session losses so far.
func (s *Store) Disconnects() int64 {
	return s.disconnects.Load()
}

// Paths returns every stored path in sorted order.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.nodes))
	for p := range s.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.connected.Load() {
		return legacy.ErrDisconnected
	}
	return nil
}

func clone(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
