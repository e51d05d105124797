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

// Package legacy models the hierarchical coordination store the migration
// moves away from: versioned nodes addressed by slash separated paths and an
// atomic conditional multi-write.
package legacy

import (
	"context"
	"errors"
	"sort"
	"strings"
)

const (
	// VersionAbsent is the version of a node that does not exist. A Check
	// against it asserts absence.
	VersionAbsent int64 = 0
	// MatchAnyVersion disables the version guard of an operation.
	MatchAnyVersion int64 = -1
)

var (
	// ErrDisconnected is returned when the session with the store is lost.
	// Whether an in-flight Multi was applied is unknown to the caller.
	ErrDisconnected = errors.New("legacy store disconnected")
	// ErrNodeNotFound is returned when reading a node that does not exist.
	ErrNodeNotFound = errors.New("legacy node not found")
)

// Node is a versioned value stored at Path.
type Node struct {
	Path    string
	Data    []byte
	Version int64
}

// Store is the client view of the legacy coordination store.
//
// Node versions are positive and strictly increase on every write of the
// same node. Intermediate path segments need not exist as nodes: Children
// derives them from the stored paths.
type Store interface {
	// Get reads the node at path. ErrNodeNotFound is returned when absent.
	Get(ctx context.Context, path string) (Node, error)
	// Children returns the sorted names of the direct children of path.
	Children(ctx context.Context, path string) ([]string, error)
	// Multi applies all ops atomically. A violated version guard is reported
	// in the TxnResult rather than as an error; errors are reserved for
	// transport failures such as ErrDisconnected.
	Multi(ctx context.Context, ops []Op) (TxnResult, error)
	// AwaitConnected blocks until the session is usable or ctx is done.
	AwaitConnected(ctx context.Context) error
	// MaxOpsPerTxn returns the largest number of ops a single Multi accepts.
	// Zero means unbounded.
	MaxOpsPerTxn() int
}

// Join builds a path out of its segments.
func Join(segments ...string) string {
	return "/" + strings.Join(segments, "/")
}

// ChildNames derives the sorted direct children of parent out of a list of
// stored paths. Store implementations backed by flat key spaces share it.
func ChildNames(parent string, paths []string) []string {
	prefix := strings.TrimSuffix(parent, "/") + "/"
	seen := make(map[string]struct{})
	for _, path := range paths {
		if !strings.HasPrefix(path, prefix) {
			continue
		}

		rest := strings.TrimPrefix(path, prefix)
		if rest == "" {
			continue
		}

		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			rest = rest[:idx]
		}
		seen[rest] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
