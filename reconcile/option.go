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

package reconcile

import (
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/secret"
)

// Option configures the Reconciler
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Reconciler)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Reconciler)

// Apply applies the options to Reconciler
func (f OptionFunc) Apply(r *Reconciler) {
	f(r)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(r *Reconciler) {
		r.logger = logger
	})
}

// WithEncoder sets the encoder protecting sensitive config values
func WithEncoder(encoder secret.Encoder) Option {
	return OptionFunc(func(r *Reconciler) {
		r.encoder = encoder
	})
}

// WithSensitivity sets the predicate flagging sensitive config keys
func WithSensitivity(sensitivity secret.Sensitivity) Option {
	return OptionFunc(func(r *Reconciler) {
		r.sensitivity = sensitivity
	})
}
