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
	"github.com/zpllz/kafka/internal/validation"
	"github.com/zpllz/kafka/record"
)

const defaultScanParallelism = 8

// Config holds the settings of a migration Client.
type Config struct {
	// ControllerID is the id of the quorum controller driving the migration.
	ControllerID int32
	// BatchSize bounds the number of records per emitted batch.
	// Default: 1000
	BatchSize int
	// ScanParallelism is the number of topics read concurrently by a scan.
	// Default: 8
	ScanParallelism int
	// EncoderSecret, when set, derives the encoder protecting sensitive
	// configs. An encoder given through WithEncoder takes precedence.
	EncoderSecret string
}

var _ validation.Validator = (*Config)(nil)

// Sanitize sets the defaults of unset fields.
func (c *Config) Sanitize() {
	if c.BatchSize <= 0 {
		c.BatchSize = record.DefaultMaxBatchSize
	}

	if c.ScanParallelism <= 0 {
		c.ScanParallelism = defaultScanParallelism
	}
}

// Validate implements validation.Validator.
func (c *Config) Validate() error {
	return validation.New(validation.AllErrors()).
		AddAssertion(c.ControllerID >= 0, "ControllerID must not be negative").
		AddAssertion(c.BatchSize > 0, "BatchSize must be greater than 0").
		AddAssertion(c.ScanParallelism > 0, "ScanParallelism must be greater than 0").
		Validate()
}
