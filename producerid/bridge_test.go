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

package producerid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy/memory"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/txn"
)

func newBridge(t *testing.T, store *memory.Store) (*Bridge, state.LeadershipState) {
	t.Helper()
	executor := txn.NewExecutor(store, txn.WithLogger(log.DiscardLogger))
	s, err := executor.GetOrCreateMigrationState(context.Background(), state.Empty)
	require.NoError(t, err)
	return NewBridge(executor, log.DiscardLogger), s
}

func collect(batches *[]record.Batch) record.BatchSink {
	return func(_ context.Context, batch record.Batch) error {
		*batches = append(*batches, batch)
		return nil
	}
}

func TestMigrateProducerID(t *testing.T) {
	ctx := context.Background()

	t.Run("Without a block", func(t *testing.T) {
		bridge, _ := newBridge(t, memory.New())
		var batches []record.Batch
		require.NoError(t, bridge.MigrateProducerID(ctx, collect(&batches)))
		require.Empty(t, batches)
	})
	t.Run("Emits the next block boundary", func(t *testing.T) {
		store := memory.New()
		bridge, _ := newBridge(t, store)
		allocator := NewLegacyAllocator(store, 1)
		_, err := allocator.AllocateBlock(ctx)
		require.NoError(t, err)
		block, err := allocator.AllocateBlock(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1000, block.FirstProducerID)

		var batches []record.Batch
		require.NoError(t, bridge.MigrateProducerID(ctx, collect(&batches)))
		require.Len(t, batches, 1)
		require.Len(t, batches[0], 1)
		require.Equal(t, record.ProducerIDKind, batches[0][0].Kind)
		require.EqualValues(t, 2000, batches[0][0].ProducerID.NextProducerID)
	})
}

func TestWriteProducerID(t *testing.T) {
	ctx := context.Background()

	t.Run("Legacy allocator continues above the boundary", func(t *testing.T) {
		store := memory.New()
		bridge, s := newBridge(t, store)
		allocator := NewLegacyAllocator(store, 1)
		_, err := allocator.AllocateBlock(ctx)
		require.NoError(t, err)

		s1, err := bridge.WriteProducerID(ctx, 5000, s)
		require.NoError(t, err)
		require.Equal(t, s.MigrationVersion()+1, s1.MigrationVersion())

		node, err := store.Get(ctx, layout.ProducerIDBlockPath)
		require.NoError(t, err)
		require.JSONEq(t, `{"version":1,"broker":-1,"block_start":"5000","block_end":"5999"}`, string(node.Data))

		block, err := allocator.AllocateBlock(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, block.FirstProducerID, int64(5000))
		require.EqualValues(t, 6000, block.FirstProducerID)
	})
	t.Run("On an empty store", func(t *testing.T) {
		store := memory.New()
		bridge, s := newBridge(t, store)
		_, err := bridge.WriteProducerID(ctx, 0, s)
		require.NoError(t, err)

		block, err := NewLegacyAllocator(store, 2).AllocateBlock(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1000, block.FirstProducerID)
	})
	t.Run("Same boundary is a no-op", func(t *testing.T) {
		bridge, s := newBridge(t, memory.New())
		s1, err := bridge.WriteProducerID(ctx, 5000, s)
		require.NoError(t, err)
		s2, err := bridge.WriteProducerID(ctx, 5000, s1)
		require.NoError(t, err)
		require.Equal(t, s1, s2)
	})
	t.Run("Regression", func(t *testing.T) {
		bridge, s := newBridge(t, memory.New())
		s1, err := bridge.WriteProducerID(ctx, 5000, s)
		require.NoError(t, err)
		_, err = bridge.WriteProducerID(ctx, 5500, s1)
		require.ErrorIs(t, err, gerrors.ErrProducerIDRegression)
		_, err = bridge.WriteProducerID(ctx, -1, s1)
		require.ErrorIs(t, err, gerrors.ErrProducerIDRegression)

		s2, err := bridge.WriteProducerID(ctx, 6000, s1)
		require.NoError(t, err)
		require.Equal(t, s1.MigrationVersion()+1, s2.MigrationVersion())
	})
	t.Run("Stale state is fenced", func(t *testing.T) {
		bridge, s := newBridge(t, memory.New())
		_, err := bridge.WriteProducerID(ctx, 5000, s)
		require.NoError(t, err)
		_, err = bridge.WriteProducerID(ctx, 7000, s)
		require.ErrorIs(t, err, gerrors.ErrFenced)
	})
}

func TestLegacyAllocator(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	allocator := NewLegacyAllocator(store, 3)

	first, err := allocator.AllocateBlock(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, first.FirstProducerID)
	require.EqualValues(t, 999, first.LastProducerID())
	require.EqualValues(t, 3, first.AssignedBroker)

	second, err := NewLegacyAllocator(store, 4).AllocateBlock(ctx)
	require.NoError(t, err)
	require.Equal(t, first.NextBlockFirstID(), second.FirstProducerID)
}

func TestLostSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bridge, s := newBridge(t, store)

	store.DisconnectFor(50 * time.Millisecond)
	next, err := bridge.WriteProducerID(ctx, 5000, s)
	require.NoError(t, err)
	require.Equal(t, s.MigrationVersion()+1, next.MigrationVersion())

	store.DisconnectFor(50 * time.Millisecond)
	var batches []record.Batch
	require.NoError(t, bridge.MigrateProducerID(ctx, collect(&batches)))
	require.Len(t, batches, 1)
	require.EqualValues(t, 6000, batches[0][0].ProducerID.NextProducerID)
	require.EqualValues(t, 2, store.Disconnects())
}
