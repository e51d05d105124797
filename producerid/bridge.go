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

// Package producerid hands the producer id allocation over between the
// legacy allocator and the quorum-log allocator.
package producerid

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/txn"
)

const (
	// BlockSize is the number of ids in a producer id block.
	BlockSize int64 = 1000
	// quorumOwner marks a block written on behalf of the quorum-log allocator.
	quorumOwner int32 = -1
)

// Bridge reads and writes the shared producer id block.
type Bridge struct {
	executor *txn.Executor
	logger   log.Logger
}

// NewBridge creates a Bridge
func NewBridge(executor *txn.Executor, logger log.Logger) *Bridge {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Bridge{executor: executor, logger: logger}
}

// MigrateProducerID emits a single batch holding the first id following the
// block last handed out by the legacy allocator. Nothing is emitted when no
// block was ever allocated.
func (b *Bridge) MigrateProducerID(ctx context.Context, sink record.BatchSink) error {
	block, _, err := ReadBlock(ctx, b.executor.Store())
	if err != nil {
		return err
	}

	if block == nil {
		b.logger.Info("no producer id block found in the legacy store")
		return nil
	}

	next := block.NextBlockFirstID()
	b.logger.Infof("migrating producer id boundary %d", next)
	return sink(ctx, record.Batch{record.NewProducerID(next)})
}

// WriteProducerID records next as the producer id boundary: the stored block
// becomes [next, next+BlockSize) so that the legacy allocator continues past
// it. Writing the boundary already stored is a no-op; a boundary below the
// end of the stored block yields errors.ErrProducerIDRegression.
func (b *Bridge) WriteProducerID(ctx context.Context, next int64, s state.LeadershipState) (state.LeadershipState, error) {
	if next < 0 {
		return s, fmt.Errorf("%w: negative producer id %d", gerrors.ErrProducerIDRegression, next)
	}

	current, version, err := ReadBlock(ctx, b.executor.Store())
	if err != nil {
		return s, err
	}

	block := QuorumBlock(next)
	if current != nil {
		if *current == block {
			return s, nil
		}

		if next < current.NextBlockFirstID() {
			return s, fmt.Errorf("%w: %d is within or before the stored block [%d, %d]",
				gerrors.ErrProducerIDRegression, next, current.FirstProducerID, current.LastProducerID())
		}
	}

	data, err := layout.EncodeProducerIDBlock(block)
	if err != nil {
		return s, err
	}

	op := legacy.Create(layout.ProducerIDBlockPath, data)
	if current != nil {
		op = legacy.Set(layout.ProducerIDBlockPath, data, version)
	}

	result, err := b.executor.Execute(ctx, []legacy.Op{op}, s)
	if err != nil {
		return s, err
	}

	b.logger.Debugf("wrote producer id block [%d, %d]", block.FirstProducerID, block.LastProducerID())
	return result.State, nil
}

// QuorumBlock returns the block written to hand the boundary next back to
// the legacy allocator.
func QuorumBlock(next int64) layout.ProducerIDBlock {
	return layout.ProducerIDBlock{AssignedBroker: quorumOwner, FirstProducerID: next, Size: BlockSize}
}

// ReadBlock reads the stored producer id block and its store version. A nil
// block means no block was ever allocated.
func ReadBlock(ctx context.Context, store legacy.Store) (*layout.ProducerIDBlock, int64, error) {
	node, err := store.Get(ctx, layout.ProducerIDBlockPath)
	if err != nil {
		if errors.Is(err, legacy.ErrNodeNotFound) {
			return nil, legacy.VersionAbsent, nil
		}
		return nil, 0, fmt.Errorf("failed to read the producer id block: %w", err)
	}

	block, err := layout.DecodeProducerIDBlock(node.Data)
	if err != nil {
		return nil, 0, err
	}
	return &block, node.Version, nil
}
