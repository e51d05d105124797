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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrFenced is matched by every FencedError. It signals that the caller no
	// longer holds migration authority and must resign instead of retrying.
	ErrFenced = errors.New("leadership fenced")

	// ErrTopicNotFound is returned when deleting or updating a topic that is not
	// present in the legacy store.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrTopicIDMismatch is returned when creating a topic whose name already
	// exists in the legacy store under a different topic id.
	ErrTopicIDMismatch = errors.New("topic already exists with a different topic id")

	// ErrPartitionNotFound is returned when updating a partition whose state
	// node is missing from the legacy store.
	ErrPartitionNotFound = errors.New("partition state not found")

	// ErrInvalidPartition is returned when a partition registration breaks its
	// invariants: leader outside the replica set, or a leader epoch going
	// backwards.
	ErrInvalidPartition = errors.New("invalid partition registration")

	// ErrProducerIDRegression is returned when a producer id boundary lower than
	// the one currently recorded is written.
	ErrProducerIDRegression = errors.New("producer id boundary moved backwards")

	// ErrMigrationStateNotFound is returned when the migration marker node does
	// not exist yet.
	ErrMigrationStateNotFound = errors.New("migration state not found")

	// ErrMalformedNode is returned when a legacy store node cannot be decoded.
	ErrMalformedNode = errors.New("malformed legacy node")

	// ErrEncoderRequired is returned when sensitive configuration must be written
	// but no secret encoder was configured.
	ErrEncoderRequired = errors.New("secret encoder is required for sensitive configs")

	// ErrUnknownQuorumController is returned when claiming leadership with a
	// state that carries no quorum-log controller id or epoch.
	ErrUnknownQuorumController = errors.New("quorum controller id and epoch are unknown")
)

// FencedError reports a rejected write: either a leadership claim whose epoch
// does not exceed the recorded one, or a conditional write whose expected
// version no longer matches.
type FencedError struct {
	// Resource names what was fenced (a store path or "controller").
	Resource string
	// Attempted is the epoch or version the caller tried to write with.
	Attempted int64
	// Current is the epoch or version recorded in the store, -1 when unknown.
	Current int64
	// Reason is a human readable explanation.
	Reason string
}

var _ error = (*FencedError)(nil)

// NewFencedError creates a FencedError.
func NewFencedError(resource string, attempted, current int64, reason string) *FencedError {
	return &FencedError{
		Resource:  resource,
		Attempted: attempted,
		Current:   current,
		Reason:    reason,
	}
}

func (e *FencedError) Error() string {
	return fmt.Sprintf("%s on %s: attempted=%d current=%d: %s", ErrFenced, e.Resource, e.Attempted, e.Current, e.Reason)
}

// Is makes errors.Is(err, ErrFenced) true.
func (e *FencedError) Is(target error) bool {
	return target == ErrFenced
}

// ScanError reports an entity found in an inconsistent shape while reading the
// legacy store. The scan carries on past it.
type ScanError struct {
	Entity string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("inconsistent legacy state for %s: %v", e.Entity, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ReconciliationGap reports an entity of the quorum-log image that cannot be
// mirrored into the legacy store as-is, e.g. a topic without any partition.
// The gap is reported and left for the caller to repair.
type ReconciliationGap struct {
	Entity string
	Reason string
}

func (e *ReconciliationGap) Error() string {
	return fmt.Sprintf("reconciliation gap for %s: %s", e.Entity, e.Reason)
}
