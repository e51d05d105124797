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

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// envelope wraps a node stored in a flat key space with its version.
type envelope struct {
	Version int64  `cbor:"1,keyasint"`
	Data    []byte `cbor:"2,keyasint"`
}

// EncodeNode serializes data and version for stores backed by flat key
// spaces, whose native revisions do not follow node versions.
func EncodeNode(data []byte, version int64) ([]byte, error) {
	return cbor.Marshal(envelope{Version: version, Data: data})
}

// DecodeNode parses a value written by EncodeNode.
func DecodeNode(path string, raw []byte) (Node, error) {
	var env envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return Node{}, fmt.Errorf("failed to decode node %s: %w", path, err)
	}

	if env.Version <= 0 {
		return Node{}, fmt.Errorf("node %s has invalid version %d", path, env.Version)
	}
	return Node{Path: path, Data: env.Data, Version: env.Version}, nil
}
