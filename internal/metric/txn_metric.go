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

package metric

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// TxnMetric defines the legacy store transaction instrumentation
type TxnMetric struct {
	// Specifies the total number of transactions committed
	committed metric.Int64Counter
	// Specifies the total number of transactions rejected on a version guard
	conflicts metric.Int64Counter
	// Specifies the total number of resubmissions after a reconnect
	retries metric.Int64Counter
	// Specifies the number of operations per transaction
	batchSize metric.Int64Histogram
}

// NewTxnMetric creates an instance of TxnMetric
func NewTxnMetric(meter metric.Meter) (*TxnMetric, error) {
	txnMetric := new(TxnMetric)
	var err error
	if txnMetric.committed, err = meter.Int64Counter(
		"migration_txn_committed_count",
		metric.WithDescription("Total number of legacy store transactions committed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create committed instrument, %w", err)
	}

	if txnMetric.conflicts, err = meter.Int64Counter(
		"migration_txn_conflict_count",
		metric.WithDescription("Total number of legacy store transactions fenced by a version guard"),
	); err != nil {
		return nil, fmt.Errorf("failed to create conflicts instrument, %w", err)
	}

	if txnMetric.retries, err = meter.Int64Counter(
		"migration_txn_retry_count",
		metric.WithDescription("Total number of transactions resubmitted after a reconnect"),
	); err != nil {
		return nil, fmt.Errorf("failed to create retries instrument, %w", err)
	}

	if txnMetric.batchSize, err = meter.Int64Histogram(
		"migration_txn_batch_size",
		metric.WithDescription("Number of operations submitted per transaction"),
	); err != nil {
		return nil, fmt.Errorf("failed to create batchSize instrument, %w", err)
	}

	return txnMetric, nil
}

// Committed returns the committed transactions counter
func (x *TxnMetric) Committed() metric.Int64Counter {
	return x.committed
}

// Conflicts returns the fenced transactions counter
func (x *TxnMetric) Conflicts() metric.Int64Counter {
	return x.conflicts
}

// Retries returns the reconnect resubmission counter
func (x *TxnMetric) Retries() metric.Int64Counter {
	return x.retries
}

// BatchSize returns the operations-per-transaction histogram
func (x *TxnMetric) BatchSize() metric.Int64Histogram {
	return x.batchSize
}
