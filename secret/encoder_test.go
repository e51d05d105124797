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

package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zpllz/kafka/record"
)

func TestAESEncoder(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		encoder, err := NewAESEncoder("migration-secret", WithIterations(16))
		require.NoError(t, err)

		encoded, err := encoder.Encode("hunter2")
		require.NoError(t, err)
		require.True(t, IsEncoded(encoded))
		require.NotContains(t, encoded, "hunter2")

		again, err := encoder.Encode("hunter2")
		require.NoError(t, err)
		require.NotEqual(t, encoded, again)

		decoded, err := encoder.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, "hunter2", decoded)
	})
	t.Run("Wrong secret", func(t *testing.T) {
		encoder, err := NewAESEncoder("one", WithIterations(16))
		require.NoError(t, err)
		other, err := NewAESEncoder("two", WithIterations(16))
		require.NoError(t, err)

		encoded, err := encoder.Encode("hunter2")
		require.NoError(t, err)
		_, err = other.Decode(encoded)
		require.ErrorIs(t, err, ErrInvalidEncoding)
	})
	t.Run("Garbage", func(t *testing.T) {
		encoder, err := NewAESEncoder("one", WithIterations(16))
		require.NoError(t, err)
		for _, value := range []string{"hunter2", "v1:!!!", "v1:AAAA"} {
			_, err = encoder.Decode(value)
			assert.ErrorIs(t, err, ErrInvalidEncoding, value)
		}
	})
	t.Run("Invalid options", func(t *testing.T) {
		_, err := NewAESEncoder(" ")
		require.Error(t, err)
		_, err = NewAESEncoder("s", WithKeyLength(7))
		require.Error(t, err)
		_, err = NewAESEncoder("s", WithIterations(0))
		require.Error(t, err)
		encoder, err := NewAESEncoder("s", WithKeyLength(16), WithIterations(16))
		require.NoError(t, err)
		require.NotNil(t, encoder)
	})
}

func TestDefaultSensitivity(t *testing.T) {
	assert.True(t, DefaultSensitivity(record.BrokerResource, "ssl.keystore.password"))
	assert.True(t, DefaultSensitivity(record.BrokerResource, "listener.name.external.sasl.jaas.config"))
	assert.True(t, DefaultSensitivity(record.TopicResource, "custom.password"))
	assert.False(t, DefaultSensitivity(record.TopicResource, "retention.ms"))
}
