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

package publish

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression names the codec applied to published payloads.
type Compression string

const (
	// Zstd compresses payloads with Zstandard.
	Zstd Compression = "zstd"
	// Brotli compresses payloads with Brotli.
	Brotli Compression = "br"
	// NoCompression publishes the encoded batch as is.
	NoCompression Compression = "identity"
)

// compressor compresses payloads for one Compression.
type compressor struct {
	compression Compression
	zstd        *zstd.Encoder
}

func newCompressor(compression Compression) (*compressor, error) {
	c := &compressor{compression: compression}
	switch compression {
	case Zstd:
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("publish: zstd encoder: %w", err)
		}
		c.zstd = encoder
	case Brotli, NoCompression:
	default:
		return nil, fmt.Errorf("publish: unknown compression %q", compression)
	}
	return c, nil
}

func (c *compressor) compress(payload []byte) ([]byte, error) {
	switch c.compression {
	case Zstd:
		return c.zstd.EncodeAll(payload, make([]byte, 0, len(payload)/2)), nil
	case Brotli:
		var buf bytes.Buffer
		writer := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := writer.Write(payload); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return payload, nil
	}
}

func (c *compressor) close() error {
	if c.zstd != nil {
		return c.zstd.Close()
	}
	return nil
}

func decompress(compression Compression, payload []byte) ([]byte, error) {
	switch compression {
	case Zstd:
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer decoder.Close()
		return decoder.DecodeAll(payload, nil)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
	case NoCompression, "":
		return payload, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}
