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
	"errors"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"

	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
)

// errBlockTaken signals that another broker claimed the block first.
var errBlockTaken = errors.New("producer id block claimed concurrently")

// LegacyAllocator is the allocator legacy brokers run: it claims the block
// following the stored one with a conditional write.
type LegacyAllocator struct {
	store       legacy.Store
	brokerID    int32
	blockSize   int64
	maxAttempts int
}

// NewLegacyAllocator creates a LegacyAllocator for a broker
func NewLegacyAllocator(store legacy.Store, brokerID int32) *LegacyAllocator {
	return &LegacyAllocator{store: store, brokerID: brokerID, blockSize: BlockSize, maxAttempts: 5}
}

// AllocateBlock claims the next block. Losing the race to another broker is
// retried with a fresh read.
func (a *LegacyAllocator) AllocateBlock(ctx context.Context) (layout.ProducerIDBlock, error) {
	var (
		allocated layout.ProducerIDBlock
		fatal     error
	)

	retrier := retry.NewRetrier(a.maxAttempts, 10*time.Millisecond, 200*time.Millisecond)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		current, version, err := ReadBlock(ctx, a.store)
		if err != nil {
			fatal = err
			return nil
		}

		block := layout.ProducerIDBlock{AssignedBroker: a.brokerID, Size: a.blockSize}
		op := legacy.Create(layout.ProducerIDBlockPath, nil)
		if current != nil {
			block.FirstProducerID = current.NextBlockFirstID()
		}

		data, err := layout.EncodeProducerIDBlock(block)
		if err != nil {
			fatal = err
			return nil
		}

		op.Data = data
		if current != nil {
			op = legacy.Set(layout.ProducerIDBlockPath, data, version)
		}

		result, err := a.store.Multi(ctx, []legacy.Op{op})
		if err != nil {
			return err
		}

		if !result.Succeeded {
			return errBlockTaken
		}

		allocated = block
		return nil
	})

	if fatal != nil {
		return layout.ProducerIDBlock{}, fatal
	}

	if err != nil {
		return layout.ProducerIDBlock{}, fmt.Errorf("failed to allocate a producer id block: %w", err)
	}
	return allocated, nil
}
