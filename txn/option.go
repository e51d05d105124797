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

package txn

import (
	"time"

	"github.com/zpllz/kafka/internal/metric"
	"github.com/zpllz/kafka/log"
)

// Option configures the Executor
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Executor)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Executor)

// Apply applies the options to Executor
func (f OptionFunc) Apply(e *Executor) {
	f(e)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(e *Executor) {
		e.logger = logger
	})
}

// WithMetric records transaction outcomes on the given instruments
func WithMetric(txnMetric *metric.TxnMetric) Option {
	return OptionFunc(func(e *Executor) {
		e.metric = txnMetric
	})
}

// WithClock sets the clock stamping the migration marker
func WithClock(clock func() time.Time) Option {
	return OptionFunc(func(e *Executor) {
		e.clock = clock
	})
}
