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

import "fmt"

// OpKind enumerates the conditional operations of a Multi.
type OpKind int

const (
	// CheckOp asserts the version of a node without writing it.
	CheckOp OpKind = iota
	// CreateOp creates a node that must not exist.
	CreateOp
	// SetOp overwrites a node.
	SetOp
	// DeleteOp removes a node.
	DeleteOp
)

// String implements fmt.Stringer
func (k OpKind) String() string {
	switch k {
	case CheckOp:
		return "check"
	case CreateOp:
		return "create"
	case SetOp:
		return "set"
	case DeleteOp:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one tuple of a conditional multi-write. Version is the version the
// node must have for the op to apply, VersionAbsent when it must not exist or
// MatchAnyVersion when the op is unconditional.
type Op struct {
	Kind    OpKind
	Path    string
	Data    []byte
	Version int64
}

// Check builds an op asserting that path is at version.
func Check(path string, version int64) Op {
	return Op{Kind: CheckOp, Path: path, Version: version}
}

// Create builds an op creating path with data.
func Create(path string, data []byte) Op {
	return Op{Kind: CreateOp, Path: path, Data: data, Version: VersionAbsent}
}

// Set builds an op overwriting path when it is at version.
func Set(path string, data []byte, version int64) Op {
	return Op{Kind: SetOp, Path: path, Data: data, Version: version}
}

// Delete builds an op deleting path when it is at version.
func Delete(path string, version int64) Op {
	return Op{Kind: DeleteOp, Path: path, Version: version}
}

// String implements fmt.Stringer
func (o Op) String() string {
	return fmt.Sprintf("%s(%s@%d)", o.Kind, o.Path, o.Version)
}

// Matches reports whether a node currently at actual satisfies the op guard.
// actual is VersionAbsent for a missing node.
func (o Op) Matches(actual int64) bool {
	switch o.Kind {
	case CreateOp:
		return actual == VersionAbsent
	case SetOp:
		// an unconditional set still needs a node to overwrite
		if o.Version == MatchAnyVersion {
			return actual != VersionAbsent
		}
		return actual == o.Version
	case DeleteOp:
		if o.Version == MatchAnyVersion {
			return true
		}
		return actual == o.Version
	default:
		if o.Version == MatchAnyVersion {
			return actual != VersionAbsent
		}
		return actual == o.Version
	}
}

// OpResponse is the outcome of one applied op: the version the node has
// after the transaction, VersionAbsent for a deleted node.
type OpResponse struct {
	Path    string
	Version int64
}

// TxnResult is the tagged outcome of a Multi. When Succeeded is false the
// first violated guard is described by FailedIndex, FailedPath, Expected and
// Actual, and no op was applied.
type TxnResult struct {
	Succeeded   bool
	Responses   []OpResponse
	FailedIndex int
	FailedPath  string
	Expected    int64
	Actual      int64
}

// Committed builds a successful result.
func Committed(responses []OpResponse) TxnResult {
	return TxnResult{Succeeded: true, Responses: responses, FailedIndex: -1}
}

// Conflict builds a result describing the violated guard of ops[index].
func Conflict(index int, op Op, actual int64) TxnResult {
	return TxnResult{
		FailedIndex: index,
		FailedPath:  op.Path,
		Expected:    op.Version,
		Actual:      actual,
	}
}

// String implements fmt.Stringer
func (r TxnResult) String() string {
	if r.Succeeded {
		return fmt.Sprintf("committed(%d ops)", len(r.Responses))
	}
	return fmt.Sprintf("conflict(op=%d path=%s expected=%d actual=%d)", r.FailedIndex, r.FailedPath, r.Expected, r.Actual)
}
