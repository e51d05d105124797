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

package record

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}

	if decMode, err = (cbor.DecOptions{MaxArrayElements: 1 << 20}).DecMode(); err != nil {
		panic(err)
	}
}

// EncodeBatch serializes a batch with deterministic CBOR, so equal batches
// always produce equal bytes.
func EncodeBatch(batch Batch) ([]byte, error) {
	for _, r := range batch {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	bytea, err := encMode.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record batch: %w", err)
	}
	return bytea, nil
}

// DecodeBatch parses a batch produced by EncodeBatch.
func DecodeBatch(bytea []byte) (Batch, error) {
	var batch Batch
	if err := decMode.Unmarshal(bytea, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode record batch: %w", err)
	}

	for _, r := range batch {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return batch, nil
}
