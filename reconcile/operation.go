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
	"context"

	"github.com/zpllz/kafka/state"
)

// OperationKind names the legacy write an Operation performs.
type OperationKind string

const (
	CreateTopic      OperationKind = "CreateTopic"
	CreatePartitions OperationKind = "CreatePartitions"
	UpdateTopic      OperationKind = "UpdateTopic"
	UpdatePartitions OperationKind = "UpdatePartitions"
	DeleteTopic      OperationKind = "DeleteTopic"
	UpdateConfig     OperationKind = "UpdateConfig"
	DeleteConfig     OperationKind = "DeleteConfig"
	UpdateProducerID OperationKind = "UpdateProducerId"
)

// Operation applies one legacy write on top of s and returns the next state.
type Operation func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error)

// OperationConsumer receives every Operation computed by the Reconciler, in
// the order they must be applied. The consumer owns the state: it runs the
// operation against its current state and keeps the result. A consumer
// error stops the reconciliation.
type OperationConsumer func(ctx context.Context, kind OperationKind, description string, operation Operation) error
