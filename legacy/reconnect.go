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

package legacy

import (
	"context"
	"errors"
	"fmt"
)

// reconnectingStore waits out session losses on reads. Multi is passed
// through untouched: whether a lost transaction was applied can only be told
// by its submitter.
type reconnectingStore struct {
	Store
}

// WaitOnDisconnect returns a Store whose Get and Children block on
// AwaitConnected and retry when the session is lost, so that a transient
// disconnection never reaches the caller. Only ctx ends the wait.
func WaitOnDisconnect(store Store) Store {
	if _, ok := store.(*reconnectingStore); ok {
		return store
	}
	return &reconnectingStore{Store: store}
}

// Get implements Store.
func (s *reconnectingStore) Get(ctx context.Context, path string) (Node, error) {
	for {
		node, err := s.Store.Get(ctx, path)
		if !errors.Is(err, ErrDisconnected) {
			return node, err
		}

		if err := s.await(ctx); err != nil {
			return Node{}, err
		}
	}
}

// Children implements Store.
func (s *reconnectingStore) Children(ctx context.Context, path string) ([]string, error) {
	for {
		names, err := s.Store.Children(ctx, path)
		if !errors.Is(err, ErrDisconnected) {
			return names, err
		}

		if err := s.await(ctx); err != nil {
			return nil, err
		}
	}
}

func (s *reconnectingStore) await(ctx context.Context) error {
	if err := s.Store.AwaitConnected(ctx); err != nil {
		return fmt.Errorf("gave up waiting for the legacy store: %w", err)
	}
	return nil
}
