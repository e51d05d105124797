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

package record

import (
	"context"
	"fmt"

	"github.com/zpllz/kafka/internal/slice"
)

// DefaultMaxBatchSize is the default number of records per batch.
const DefaultMaxBatchSize = 1000

// Batch is an ordered list of records handed to the quorum-log side as one unit.
type Batch []Record

// BatchSink receives record batches.
type BatchSink func(ctx context.Context, batch Batch) error

// BrokerSink receives the ids of discovered brokers.
type BrokerSink func(brokerID int32)

// Batcher groups records into size-bounded batches. A group of records added
// in one call stays in a single batch whenever it fits, so a defining record
// and the records that reference it travel together.
type Batcher struct {
	sink    BatchSink
	maxSize int
	pending Batch
	emitted int
	records int
}

// NewBatcher creates a Batcher flushing into sink.
func NewBatcher(sink BatchSink, maxSize int) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxBatchSize
	}
	return &Batcher{sink: sink, maxSize: maxSize}
}

// Add appends a group of records. The pending batch is flushed first when the
// group would not fit; a group larger than a batch is split in order.
func (b *Batcher) Add(ctx context.Context, group ...Record) error {
	if len(group) == 0 {
		return nil
	}

	for _, r := range group {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	if len(b.pending)+len(group) > b.maxSize {
		if err := b.Flush(ctx); err != nil {
			return err
		}
	}

	if len(group) <= b.maxSize {
		b.pending = append(b.pending, group...)
		return nil
	}

	for _, chunk := range slice.Chunk(group, b.maxSize) {
		b.pending = append(b.pending, chunk...)
		if len(b.pending) == b.maxSize {
			if err := b.Flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush hands the pending records, if any, to the sink.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}

	batch := b.pending
	b.pending = nil
	if err := b.sink(ctx, batch); err != nil {
		return fmt.Errorf("failed to accept batch of %d records: %w", len(batch), err)
	}

	b.emitted++
	b.records += len(batch)
	return nil
}

// Batches returns the number of batches flushed so far.
func (b *Batcher) Batches() int {
	return b.emitted
}

// Records returns the number of records flushed so far.
func (b *Batcher) Records() int {
	return b.records
}
