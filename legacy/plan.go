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

package legacy

// Effect is the net outcome of a transaction on one path.
type Effect struct {
	Path string
	// Before is the version the node had before the transaction.
	Before int64
	// After is the version the node ends up with, VersionAbsent when it ends
	// up removed.
	After int64
	// Data is the final content of a written node.
	Data []byte
	// Written reports that the node content changes.
	Written bool
	// Deleted reports that a node existing before the transaction is removed.
	Deleted bool
}

// Plan is a transaction flattened to one effect per path.
type Plan struct {
	// Effects lists the touched paths in the order they are first touched.
	Effects []Effect
	// Responses holds one response per op, in op order.
	Responses []OpResponse
}

// Paths returns the distinct paths touched by ops, in first touch order.
func Paths(ops []Op) []string {
	seen := make(map[string]struct{}, len(ops))
	paths := make([]string, 0, len(ops))
	for _, op := range ops {
		if _, ok := seen[op.Path]; ok {
			continue
		}
		seen[op.Path] = struct{}{}
		paths = append(paths, op.Path)
	}
	return paths
}

// Simulate replays ops in order on top of the versions the touched nodes have
// before the transaction, VersionAbsent for missing ones. Each op observes
// the effect of the ops before it. The returned TxnResult describes the
// first violated guard; on success it is committed and the Plan holds the
// net effect to apply atomically.
//
// Stores without ordered multi-writes apply the plan guarded by the versions
// they read.
func Simulate(ops []Op, versions map[string]int64) (Plan, TxnResult) {
	index := make(map[string]int, len(ops))
	plan := Plan{Responses: make([]OpResponse, 0, len(ops))}

	for position, op := range ops {
		at, touched := index[op.Path]
		if !touched {
			before := versions[op.Path]
			at = len(plan.Effects)
			index[op.Path] = at
			plan.Effects = append(plan.Effects, Effect{Path: op.Path, Before: before, After: before})
		}

		effect := &plan.Effects[at]
		if !op.Matches(effect.After) {
			return Plan{}, Conflict(position, op, effect.After)
		}

		switch op.Kind {
		case CreateOp:
			// a node recreated within the transaction starts over at 1
			effect.After = 1
			effect.Data = op.Data
			effect.Written = true
		case SetOp:
			effect.After++
			effect.Data = op.Data
			effect.Written = true
		case DeleteOp:
			effect.After = VersionAbsent
			effect.Data = nil
			effect.Written = false
		}
		plan.Responses = append(plan.Responses, OpResponse{Path: op.Path, Version: effect.After})
	}

	for i := range plan.Effects {
		effect := &plan.Effects[i]
		effect.Deleted = effect.After == VersionAbsent && effect.Before != VersionAbsent
	}
	return plan, Committed(plan.Responses)
}
