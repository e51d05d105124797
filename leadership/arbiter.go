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

// Package leadership fences the controller registration of the legacy store
// between quorum-log controllers and legacy controllers.
package leadership

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/txn"
)

const controllerResource = "controller"

// Controller is the controller registration currently held by the legacy store.
type Controller struct {
	// Registration is nil when no controller is registered.
	Registration *layout.ControllerRegistration
	// Epoch is the value of the controller epoch counter, zero when absent.
	Epoch int32
	// EpochVersion is the store version of the controller epoch counter.
	EpochVersion int64
}

// Arbiter claims and releases the legacy controller registration on behalf of
// a quorum-log controller. Exclusion rests solely on epoch comparison and
// conditional writes: no lock is ever held.
type Arbiter struct {
	executor *txn.Executor
	logger   log.Logger
}

// NewArbiter creates an Arbiter writing through executor
func NewArbiter(executor *txn.Executor, logger log.Logger) *Arbiter {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Arbiter{executor: executor, logger: logger}
}

// ReadController reads the controller registration and epoch counter.
func (a *Arbiter) ReadController(ctx context.Context) (Controller, error) {
	store := a.executor.Store()
	controller := Controller{EpochVersion: legacy.VersionAbsent}

	node, err := store.Get(ctx, layout.ControllerPath)
	switch {
	case err == nil:
		registration, err := layout.DecodeController(node.Data)
		if err != nil {
			return Controller{}, err
		}
		controller.Registration = &registration
	case !errors.Is(err, legacy.ErrNodeNotFound):
		return Controller{}, fmt.Errorf("failed to read the controller registration: %w", err)
	}

	node, err = store.Get(ctx, layout.ControllerEpochPath)
	switch {
	case err == nil:
		epoch, err := layout.DecodeControllerEpoch(node.Data)
		if err != nil {
			return Controller{}, err
		}
		controller.Epoch = epoch
		controller.EpochVersion = node.Version
	case !errors.Is(err, legacy.ErrNodeNotFound):
		return Controller{}, fmt.Errorf("failed to read the controller epoch: %w", err)
	}
	return controller, nil
}

// Claim registers the quorum-log controller of s as the active controller.
//
// The claim is rejected with a *errors.FencedError when the registration
// already belongs to a quorum-log controller whose epoch is not lower than
// the one of s. A registration held by a legacy controller is replaced
// whatever its age. Either way the controller epoch counter is bumped with a
// conditional write, which fences any controller racing on it.
//
// s must name a quorum-log controller: a negative id or epoch yields
// errors.ErrUnknownQuorumController before the store is read.
func (a *Arbiter) Claim(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
	if s.QuorumControllerID() < 0 || s.QuorumControllerEpoch() < 0 {
		return s, fmt.Errorf("%w: controller %d epoch %d", gerrors.ErrUnknownQuorumController, s.QuorumControllerID(), s.QuorumControllerEpoch())
	}

	current, err := a.ReadController(ctx)
	if err != nil {
		return s, err
	}

	if current.Registration != nil && current.Registration.IsQuorumController() {
		recorded := *current.Registration.QuorumControllerEpoch
		if recorded >= s.QuorumControllerEpoch() {
			a.logger.Warnf("controller %d epoch %d cannot claim over controller %d epoch %d",
				s.QuorumControllerID(), s.QuorumControllerEpoch(), current.Registration.BrokerID, recorded)
			return s, gerrors.NewFencedError(controllerResource, int64(s.QuorumControllerEpoch()), int64(recorded),
				"quorum controller epoch must be greater than the recorded one")
		}
	}

	newEpoch := current.Epoch + 1
	registration, err := layout.EncodeController(layout.NewQuorumControllerRegistration(s.QuorumControllerID(), s.QuorumControllerEpoch(), a.executor.Now()))
	if err != nil {
		return s, err
	}

	ops := make([]legacy.Op, 0, 3)
	if current.EpochVersion == legacy.VersionAbsent {
		ops = append(ops, legacy.Create(layout.ControllerEpochPath, layout.EncodeControllerEpoch(newEpoch)))
	} else {
		ops = append(ops, legacy.Set(layout.ControllerEpochPath, layout.EncodeControllerEpoch(newEpoch), current.EpochVersion))
	}

	if current.Registration != nil {
		ops = append(ops, legacy.Delete(layout.ControllerPath, legacy.MatchAnyVersion))
	}
	ops = append(ops, legacy.Create(layout.ControllerPath, registration))

	// the epoch counter write guards the claim
	result, err := a.executor.Execute(ctx, ops, s.WithUnknownLegacyController())
	if err != nil {
		return s, err
	}

	response, _ := result.Response(layout.ControllerEpochPath)
	a.logger.Infof("controller %d epoch %d claimed the legacy controller registration at controller epoch %d",
		s.QuorumControllerID(), s.QuorumControllerEpoch(), newEpoch)
	return result.State.WithLegacyController(newEpoch, response.Version), nil
}

// Release removes the registration claimed with s so that a legacy controller
// can register again. The removal is guarded by the controller epoch version
// of s; when another controller already moved the epoch there is nothing
// left to release and the release is complete.
func (a *Arbiter) Release(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
	if !s.HasLegacyController() {
		return s.WithUnknownLegacyController(), nil
	}

	result, err := a.executor.Execute(ctx, []legacy.Op{legacy.Delete(layout.ControllerPath, legacy.MatchAnyVersion)}, s)
	if err != nil {
		var fenced *gerrors.FencedError
		if errors.As(err, &fenced) && fenced.Resource == layout.ControllerEpochPath {
			a.logger.Infof("controller epoch moved since controller %d epoch %d claimed it, nothing to release",
				s.QuorumControllerID(), s.QuorumControllerEpoch())
			return s.WithUnknownLegacyController(), nil
		}
		return s, err
	}

	a.logger.Infof("controller %d epoch %d released the legacy controller registration", s.QuorumControllerID(), s.QuorumControllerEpoch())
	return result.State.WithUnknownLegacyController(), nil
}
