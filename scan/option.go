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

package scan

import (
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/secret"
)

// Option configures the Reader
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Reader)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Reader)

// Apply applies the options to Reader
func (f OptionFunc) Apply(r *Reader) {
	f(r)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(r *Reader) {
		r.logger = logger
	})
}

// WithEncoder sets the encoder decoding sensitive configs
func WithEncoder(encoder secret.Encoder) Option {
	return OptionFunc(func(r *Reader) {
		r.encoder = encoder
	})
}

// WithSensitivity sets the predicate flagging sensitive configs
func WithSensitivity(sensitivity secret.Sensitivity) Option {
	return OptionFunc(func(r *Reader) {
		r.sensitivity = sensitivity
	})
}

// WithBatchSize sets the maximum number of records per batch
func WithBatchSize(size int) Option {
	return OptionFunc(func(r *Reader) {
		r.batchSize = size
	})
}

// WithParallelism sets the number of topics read concurrently
func WithParallelism(parallelism int) Option {
	return OptionFunc(func(r *Reader) {
		r.parallelism = parallelism
	})
}
