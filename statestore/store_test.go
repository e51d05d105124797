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

package statestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zpllz/kafka/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(&Config{Path: path, OpenTimeout: time.Second})
	require.NoError(t, err)
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Load before any Save", func(t *testing.T) {
		store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
		defer store.Close()

		loaded, found, err := store.Load(ctx)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, state.Empty, loaded)
	})
	t.Run("Survives a restart", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.db")
		saved := state.Empty.
			WithNewQuorumController(3000, 7).
			WithMigrationVersion(4, 2).
			WithLegacyController(11, 5).
			WithLastUpdatedTimeMs(1700000000000)

		store := openStore(t, path)
		require.NoError(t, store.Save(ctx, saved))
		require.NoError(t, store.Close())

		store = openStore(t, path)
		defer store.Close()

		loaded, found, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, saved, loaded)
	})
	t.Run("Clear", func(t *testing.T) {
		store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
		defer store.Close()

		require.NoError(t, store.Save(ctx, state.Empty.WithNewQuorumController(1, 1)))
		require.NoError(t, store.Clear(ctx))

		_, found, err := store.Load(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})
	t.Run("Closed store", func(t *testing.T) {
		store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())

		require.ErrorIs(t, store.Save(ctx, state.Empty), ErrClosed)
		_, _, err := store.Load(ctx)
		require.ErrorIs(t, err, ErrClosed)
	})
	t.Run("Cancelled context", func(t *testing.T) {
		store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
		defer store.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, store.Save(cancelled, state.Empty), context.Canceled)
	})
	t.Run("Locked file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.db")
		store := openStore(t, path)
		defer store.Close()

		_, err := Open(&Config{Path: path, OpenTimeout: 50 * time.Millisecond})
		require.Error(t, err)
	})
	t.Run("Invalid config", func(t *testing.T) {
		_, err := Open(nil)
		require.Error(t, err)
		_, err = Open(&Config{})
		require.Error(t, err)
	})
}
