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

package consul

import (
	"context"
	"strings"
	"time"

	"github.com/zpllz/kafka/internal/validation"
)

const (
	defaultAddress = "127.0.0.1:8500"
	defaultPrefix  = "legacy"
	// operations consul accepts in one transaction
	defaultMaxTxnOps = 64
)

// Config holds configuration for the consul backed legacy store.
type Config struct {
	// Context specifies the execution context for consul operations.
	// If nil, context.Background() will be used.
	Context context.Context
	// Address is the host:port of the consul agent.
	// Default: "127.0.0.1:8500"
	Address string
	// Datacenter specifies the consul datacenter to use.
	// If empty, the agent's default datacenter is used.
	Datacenter string
	// Token is the consul ACL token used for authenticated requests.
	Token string
	// Prefix scopes the store keys. Defaults to legacy.
	Prefix string
	// Timeout specifies the maximum duration of a consul request.
	// Default: 10s
	Timeout time.Duration
	// MaxTxnOps is the largest number of operations consul accepts in one
	// transaction.
	MaxTxnOps int
}

var _ validation.Validator = (*Config)(nil)

// Sanitize sets the defaults of unset fields.
func (config *Config) Sanitize() {
	if config.Context == nil {
		config.Context = context.Background()
	}

	if config.Address == "" {
		config.Address = defaultAddress
	}

	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = defaultPrefix
	}

	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	if config.MaxTxnOps == 0 {
		config.MaxTxnOps = defaultMaxTxnOps
	}
}

// Validate implements validation.Validator.
func (config *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewTCPAddressValidator(config.Address)).
		AddAssertion(config.Timeout > 0, "Timeout must be greater than 0").
		AddAssertion(config.MaxTxnOps > 0, "MaxTxnOps must be greater than 0").
		Validate()
}
