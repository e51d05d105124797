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

// Package txn submits fenced batches of conditional writes to the legacy
// store.
package txn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/internal/metric"
	"github.com/zpllz/kafka/internal/slice"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/state"
)

// Result is the outcome of a successful Execute.
type Result struct {
	// State is the state to use for the next write.
	State state.LeadershipState
	// Responses holds one entry per submitted op, in submission order.
	Responses []legacy.OpResponse
}

// Response returns the response recorded for path, if any.
func (r Result) Response(path string) (legacy.OpResponse, bool) {
	for i := len(r.Responses) - 1; i >= 0; i-- {
		if r.Responses[i].Path == path {
			return r.Responses[i], true
		}
	}
	return legacy.OpResponse{}, false
}

// Executor applies batches of ops guarded by the migration fencing counters.
//
// Every transaction carries a version check of the controller epoch node (when
// the state knows its version) and a conditional write of the migration
// marker. A batch bumps the migration version by exactly one.
type Executor struct {
	store  legacy.Store
	logger log.Logger
	metric *metric.TxnMetric
	clock  func() time.Time
}

// NewExecutor creates an Executor writing to store
func NewExecutor(store legacy.Store, opts ...Option) *Executor {
	executor := &Executor{
		store:  legacy.WaitOnDisconnect(store),
		logger: log.DefaultLogger,
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt.Apply(executor)
	}
	return executor
}

// Store returns the legacy store. Its reads wait out session losses.
func (e *Executor) Store() legacy.Store {
	return e.store
}

// Now returns the current time of the executor clock in milliseconds
func (e *Executor) Now() int64 {
	return e.clock().UnixMilli()
}

// Execute applies ops on behalf of the owner described by s.
//
// An empty batch returns s unchanged. A violated version guard returns a
// *errors.FencedError and is never retried. A lost session is waited out and
// the transaction resubmitted; a transaction found already applied after the
// reconnect is not applied again.
//
// Batches larger than the store transaction limit are split into
// consecutive transactions. Each one carries the guards and advances the
// marker, the last one bumps the migration version.
func (e *Executor) Execute(ctx context.Context, ops []legacy.Op, s state.LeadershipState) (Result, error) {
	if len(ops) == 0 {
		return Result{State: s}, nil
	}

	if !s.HasMarker() {
		return Result{}, fmt.Errorf("cannot write without a migration marker: %w", gerrors.ErrMigrationStateNotFound)
	}

	guards := 1
	if s.HasLegacyController() {
		guards++
	}

	chunkSize := 0
	if limit := e.store.MaxOpsPerTxn(); limit > 0 {
		if limit <= guards {
			return Result{}, fmt.Errorf("store accepts %d ops per transaction, %d are needed for fencing", limit, guards)
		}
		chunkSize = limit - guards
	}

	batchID := uuid.NewString()
	nowMs := e.Now()
	chunks := slice.Chunk(ops, chunkSize)
	markerVersion := s.MarkerVersion()
	nextMigrationVersion := s.MigrationVersion() + 1
	responses := make([]legacy.OpResponse, 0, len(ops))

	for index, chunk := range chunks {
		migrationVersion := s.MigrationVersion()
		if index == len(chunks)-1 {
			migrationVersion = nextMigrationVersion
		}

		payload, err := layout.EncodeMarker(s.WithLastUpdatedTimeMs(nowMs), migrationVersion, fmt.Sprintf("%s/%d", batchID, index))
		if err != nil {
			return Result{}, err
		}

		txnOps := make([]legacy.Op, 0, len(chunk)+guards)
		if s.HasLegacyController() {
			txnOps = append(txnOps, legacy.Check(layout.ControllerEpochPath, s.LegacyControllerEpochVersion()))
		}
		txnOps = append(txnOps, chunk...)
		txnOps = append(txnOps, legacy.Set(layout.MigrationPath, payload, markerVersion))

		chunkResponses, err := e.submit(ctx, txnOps, payload)
		if err != nil {
			return Result{}, err
		}

		markerResponse := chunkResponses[len(chunkResponses)-1]
		markerVersion = markerResponse.Version
		responses = append(responses, chunkResponses[guards-1:len(chunkResponses)-1]...)
	}

	next := s.WithMigrationVersion(nextMigrationVersion, markerVersion).WithLastUpdatedTimeMs(nowMs)
	return Result{State: next, Responses: responses}, nil
}

// submit runs one transaction until it is either applied or fenced. payload
// is the marker content written by the transaction.
func (e *Executor) submit(ctx context.Context, ops []legacy.Op, payload []byte) ([]legacy.OpResponse, error) {
	resubmitted := false
	for {
		result, err := e.store.Multi(ctx, ops)
		switch {
		case errors.Is(err, legacy.ErrDisconnected):
			e.logger.Warnf("legacy store session lost while applying %d ops, waiting to resubmit", len(ops))
			if err := e.store.AwaitConnected(ctx); err != nil {
				return nil, fmt.Errorf("gave up waiting for the legacy store: %w", err)
			}

			resubmitted = true
			if e.metric != nil {
				e.metric.Retries().Add(ctx, 1)
			}
			continue
		case err != nil:
			return nil, fmt.Errorf("failed to apply %d ops: %w", len(ops), err)
		}

		if result.Succeeded {
			if e.metric != nil {
				e.metric.Committed().Add(ctx, 1)
				e.metric.BatchSize().Record(ctx, int64(len(ops)))
			}
			return result.Responses, nil
		}

		if resubmitted {
			responses, applied, err := e.recover(ctx, ops, payload)
			if err != nil {
				return nil, err
			}

			if applied {
				e.logger.Infof("transaction of %d ops was applied before the session loss", len(ops))
				return responses, nil
			}
		}

		if e.metric != nil {
			e.metric.Conflicts().Add(ctx, 1)
		}
		e.logger.Warnf("legacy store write fenced: %s", result)
		return nil, gerrors.NewFencedError(result.FailedPath, result.Expected, result.Actual, "version mismatch")
	}
}

// recover tells whether a transaction rejected after a resubmission had in
// fact been applied by the first submission: the marker then holds exactly
// the payload that transaction wrote. The responses are rebuilt by reading
// the touched nodes back.
func (e *Executor) recover(ctx context.Context, ops []legacy.Op, payload []byte) ([]legacy.OpResponse, bool, error) {
	marker, err := e.read(ctx, layout.MigrationPath)
	if err != nil {
		return nil, false, err
	}

	if marker == nil || !bytes.Equal(marker.Data, payload) {
		return nil, false, nil
	}

	responses := make([]legacy.OpResponse, 0, len(ops))
	for _, op := range ops {
		node, err := e.read(ctx, op.Path)
		if err != nil {
			return nil, false, err
		}

		version := legacy.VersionAbsent
		if node != nil {
			version = node.Version
		}
		responses = append(responses, legacy.OpResponse{Path: op.Path, Version: version})
	}
	return responses, true, nil
}

// read gets a node. A missing node yields nil.
func (e *Executor) read(ctx context.Context, path string) (*legacy.Node, error) {
	node, err := e.store.Get(ctx, path)
	switch {
	case err == nil:
		return &node, nil
	case errors.Is(err, legacy.ErrNodeNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
}
