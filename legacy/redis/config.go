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

package redis

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/zpllz/kafka/internal/validation"
)

const (
	defaultPrefix    = "legacy"
	defaultMaxTxnOps = 128
)

// Config holds configuration for the redis backed legacy store.
type Config struct {
	// Context specifies the execution context for redis operations.
	// If nil, context.Background() will be used.
	Context context.Context
	// Addr is the host:port of the redis server.
	Addr string
	// Username and Password authenticate the connection (optional).
	Username string
	Password string
	// DB selects the redis database.
	DB int
	// TLS configures client TLS (optional).
	TLS *tls.Config
	// Prefix scopes the store keys. Defaults to legacy.
	Prefix string
	// Timeout bounds every redis round trip. Default: 5s
	Timeout time.Duration
	// MaxTxnOps bounds the operations of one transaction.
	MaxTxnOps int
}

var _ validation.Validator = (*Config)(nil)

// Sanitize sets defaults for empty fields.
func (c *Config) Sanitize() {
	if c.Context == nil {
		c.Context = context.Background()
	}

	c.Prefix = strings.Trim(c.Prefix, "/")
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}

	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}

	if c.MaxTxnOps == 0 {
		c.MaxTxnOps = defaultMaxTxnOps
	}
}

// Validate implements validation.Validator.
func (c *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewTCPAddressValidator(c.Addr)).
		AddAssertion(c.DB >= 0, "DB must not be negative").
		AddAssertion(c.Timeout > 0, "Timeout must be greater than 0").
		AddAssertion(c.MaxTxnOps > 0, "MaxTxnOps must be greater than 0").
		Validate()
}
