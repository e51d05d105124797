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
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/state"
)

// GetOrCreateMigrationState loads the state recorded by the migration marker,
// creating the marker out of initial when the migration never ran. The
// legacy controller half of the returned state is unknown.
func (e *Executor) GetOrCreateMigrationState(ctx context.Context, initial state.LeadershipState) (state.LeadershipState, error) {
	for {
		node, err := e.read(ctx, layout.MigrationPath)
		if err != nil {
			return state.Empty, err
		}

		if node != nil {
			return layout.DecodeMarker(node.Data, node.Version)
		}

		created := initial.WithLastUpdatedTimeMs(e.Now())
		payload, err := layout.EncodeMarker(created, 0, "")
		if err != nil {
			return state.Empty, err
		}

		result, err := e.store.Multi(ctx, []legacy.Op{legacy.Create(layout.MigrationPath, payload)})
		switch {
		case errors.Is(err, legacy.ErrDisconnected):
			if err := e.store.AwaitConnected(ctx); err != nil {
				return state.Empty, fmt.Errorf("gave up waiting for the legacy store: %w", err)
			}
			continue
		case err != nil:
			return state.Empty, fmt.Errorf("failed to create the migration marker: %w", err)
		}

		if !result.Succeeded {
			// created concurrently, load it
			continue
		}

		e.logger.Infof("created migration marker for controller %d epoch %d", created.QuorumControllerID(), created.QuorumControllerEpoch())
		return created.WithUnknownLegacyController().WithMigrationVersion(0, result.Responses[0].Version), nil
	}
}

// SetMigrationState overwrites the migration marker with s. The write is
// fenced like any other batch and bumps the migration version.
func (e *Executor) SetMigrationState(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
	nowMs := e.Now()
	next := s.WithLastUpdatedTimeMs(nowMs)
	payload, err := layout.EncodeMarker(next, s.MigrationVersion()+1, uuid.NewString())
	if err != nil {
		return state.Empty, err
	}

	ops := make([]legacy.Op, 0, 2)
	if s.HasLegacyController() {
		ops = append(ops, legacy.Check(layout.ControllerEpochPath, s.LegacyControllerEpochVersion()))
	}
	ops = append(ops, legacy.Set(layout.MigrationPath, payload, s.MarkerVersion()))

	responses, err := e.submit(ctx, ops, payload)
	if err != nil {
		return state.Empty, err
	}
	return next.WithMigrationVersion(s.MigrationVersion()+1, responses[len(responses)-1].Version), nil
}
