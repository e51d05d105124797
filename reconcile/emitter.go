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
	"fmt"
	"strings"
)

// emitter hands operations to a consumer and counts them per kind.
type emitter struct {
	consumer OperationConsumer
	kinds    []OperationKind
	counts   map[OperationKind]int
}

func newEmitter(consumer OperationConsumer) *emitter {
	return &emitter{consumer: consumer, counts: make(map[OperationKind]int)}
}

func (e *emitter) emit(ctx context.Context, kind OperationKind, description string, operation Operation) error {
	if _, ok := e.counts[kind]; !ok {
		e.kinds = append(e.kinds, kind)
	}
	e.counts[kind]++

	if err := e.consumer(ctx, kind, description, operation); err != nil {
		return fmt.Errorf("failed to %s: %w", description, err)
	}
	return nil
}

// String summarizes the emitted operations.
func (e *emitter) String() string {
	if len(e.kinds) == 0 {
		return "no operation"
	}

	parts := make([]string, 0, len(e.kinds))
	for _, kind := range e.kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, e.counts[kind]))
	}
	return strings.Join(parts, " ")
}
