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

package publish

import (
	"context"
	"strings"
	"time"

	"github.com/zpllz/kafka/internal/validation"
)

const (
	defaultStream  = "METADATA_MIGRATION"
	defaultSubject = "metadata.migration.records"
)

// Config holds configuration for the NATS JetStream batch publisher.
type Config struct {
	// Context specifies the execution context for NATS operations.
	// If nil, context.Background() will be used.
	Context context.Context
	// URL is the NATS server URL (e.g. nats://127.0.0.1:4222).
	URL string
	// Stream is the JetStream stream holding published batches. It is
	// created on first use. Defaults to METADATA_MIGRATION.
	Stream string
	// Subject is the subject batches are published on.
	Subject string
	// DuplicateWindow is how long JetStream remembers message ids to drop
	// republished batches. Defaults to 2m.
	DuplicateWindow time.Duration
	// Timeout sets the timeout of one publish attempt.
	Timeout time.Duration
	// ConnectTimeout sets the timeout for establishing the NATS connection.
	ConnectTimeout time.Duration
	// MaxRetries bounds the publish attempts of one batch.
	MaxRetries int
	// RetryDelay is the initial delay between publish attempts.
	RetryDelay time.Duration
	// Compression is applied to every payload. Defaults to Zstd.
	Compression Compression
}

var _ validation.Validator = (*Config)(nil)

// Validate implements validation.Validator.
func (c *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddAssertion(strings.TrimSpace(c.URL) != "", "URL must not be empty").
		AddAssertion(strings.TrimSpace(c.Subject) != "", "Subject must not be empty").
		AddAssertion(!strings.ContainsAny(c.Stream, ". *>"), "Stream name is invalid").
		AddAssertion(c.Timeout > 0, "Timeout must be greater than 0").
		AddAssertion(c.ConnectTimeout > 0, "ConnectTimeout must be greater than 0").
		AddAssertion(c.MaxRetries > 0, "MaxRetries must be greater than 0").
		Validate()
}

// Sanitize sets defaults for empty fields.
func (c *Config) Sanitize() {
	if c.Context == nil {
		c.Context = context.Background()
	}
	if strings.TrimSpace(c.Stream) == "" {
		c.Stream = defaultStream
	}
	if strings.TrimSpace(c.Subject) == "" {
		c.Subject = defaultSubject
	}
	if c.DuplicateWindow == 0 {
		c.DuplicateWindow = 2 * time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Compression == "" {
		c.Compression = Zstd
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
}
