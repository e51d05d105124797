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

package log

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &entry))
	return entry
}

func TestZap(t *testing.T) {
	t.Run("writes info entries", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.Infof("claimed epoch %d", 3)

		entry := decodeEntry(t, buffer.Bytes())
		assert.Equal(t, "claimed epoch 3", entry["msg"])
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, InfoLevel, logger.LogLevel())
	})

	t.Run("filters below level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)
		logger.Debug("hidden")
		logger.Info("hidden")
		logger.Warn("hidden")
		require.Empty(t, buffer.String())
		assert.False(t, logger.Enabled(InfoLevel))
		assert.True(t, logger.Enabled(ErrorLevel))
	})

	t.Run("unknown level falls back to debug", func(t *testing.T) {
		logger := NewZap(Level(42), io.Discard)
		assert.Equal(t, DebugLevel, logger.LogLevel())
	})

	t.Run("with adds structured fields", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("topic", "orders", 7, "skipped", "migrationVersion", int64(4), "dangling").Info("created")

		entry := decodeEntry(t, buffer.Bytes())
		assert.Equal(t, "orders", entry["topic"])
		assert.EqualValues(t, 4, entry["migrationVersion"])
		assert.Equal(t, "dangling", entry["_"])
		assert.NotContains(t, entry, "skipped")
	})

	t.Run("with without fields returns the receiver", func(t *testing.T) {
		logger := NewZap(InfoLevel, io.Discard)
		assert.Same(t, logger, logger.With())
		assert.Same(t, logger, logger.With(1, 2))
	})

	t.Run("panic", func(t *testing.T) {
		logger := NewZap(DebugLevel, io.Discard)
		assert.Panics(t, func() { logger.Panic("boom") })
		assert.Panics(t, func() { logger.Panicf("boom %d", 1) })
	})

	t.Run("outputs", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		require.Len(t, logger.LogOutput(), 1)
		require.NotNil(t, logger.StdLogger())
		require.NoError(t, logger.Flush())
	})
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger
	logger.Debug("x")
	logger.Infof("x %d", 1)
	logger.Warn("x")
	logger.Errorf("x %d", 1)

	assert.Equal(t, InfoLevel, logger.LogLevel())
	assert.False(t, logger.Enabled(InfoLevel))
	assert.True(t, logger.Enabled(PanicLevel))
	assert.Equal(t, DiscardLogger, logger.With("a", 1))
	assert.Equal(t, []io.Writer{io.Discard}, logger.LogOutput())
	assert.NotNil(t, logger.StdLogger())
	assert.NoError(t, logger.Flush())
	assert.Panics(t, func() { logger.Panic("boom") })
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INVALID", InvalidLevel.String())
}
