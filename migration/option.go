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

package migration

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/secret"
)

// Option configures the Client
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Client)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Client)

// Apply applies the options to Client
func (f OptionFunc) Apply(c *Client) {
	f(c)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Client) {
		c.logger = logger
	})
}

// WithMeterProvider records the transaction metrics on the given provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(c *Client) {
		c.meterProvider = provider
	})
}

// WithEncoder sets the encoder protecting sensitive configs
func WithEncoder(encoder secret.Encoder) Option {
	return OptionFunc(func(c *Client) {
		c.encoder = encoder
	})
}

// WithSensitivity sets the predicate flagging sensitive config keys
func WithSensitivity(sensitivity secret.Sensitivity) Option {
	return OptionFunc(func(c *Client) {
		c.sensitivity = sensitivity
	})
}

// WithClock sets the clock stamping the migration marker
func WithClock(clock func() time.Time) Option {
	return OptionFunc(func(c *Client) {
		c.clock = clock
	})
}

// WithStateStore keeps a local copy of the leadership state after every
// marker or controller change
func WithStateStore(store StateStore) Option {
	return OptionFunc(func(c *Client) {
		c.stateStore = store
	})
}
