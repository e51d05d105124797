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

package configs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/legacy/memory"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/secret"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/txn"
)

func newWriter(t *testing.T, store *memory.Store, opts ...Option) (*Writer, state.LeadershipState) {
	t.Helper()
	executor := txn.NewExecutor(store, txn.WithLogger(log.DiscardLogger))
	s, err := executor.GetOrCreateMigrationState(context.Background(), state.Empty.WithNewQuorumController(3000, 1))
	require.NoError(t, err)
	return NewWriter(executor, append([]Option{WithLogger(log.DiscardLogger)}, opts...)...), s
}

func storedConfig(t *testing.T, store *memory.Store, resource record.ConfigResource) map[string]string {
	t.Helper()
	node, err := store.Get(context.Background(), layout.ConfigEntityPath(resource))
	require.NoError(t, err)

	var raw struct {
		Config map[string]string `json:"config"`
	}
	require.NoError(t, json.Unmarshal(node.Data, &raw))
	return raw.Config
}

func TestWriteConfig(t *testing.T) {
	ctx := context.Background()
	broker := record.ConfigResource{Type: record.BrokerResource, Name: "1"}
	encoder, err := secret.NewAESEncoder("encoder-secret", secret.WithIterations(16))
	require.NoError(t, err)

	t.Run("Sensitive values are stored encoded", func(t *testing.T) {
		store := memory.New()
		writer, s := newWriter(t, store, WithEncoder(encoder))

		config := map[string]string{"ssl.key.password": "hunter2", "log.retention.hours": "24"}
		next, err := writer.WriteConfig(ctx, broker, config, s)
		require.NoError(t, err)
		require.Equal(t, s.MigrationVersion()+1, next.MigrationVersion())

		stored := storedConfig(t, store, broker)
		assert.Equal(t, "24", stored["log.retention.hours"])
		require.NotEqual(t, "hunter2", stored["ssl.key.password"])
		assert.True(t, secret.IsEncoded(stored["ssl.key.password"]))
		decoded, err := encoder.Decode(stored["ssl.key.password"])
		require.NoError(t, err)
		assert.Equal(t, "hunter2", decoded)

		read, exists, err := writer.ReadConfig(ctx, broker)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, config, read)

		again, err := writer.WriteConfig(ctx, broker, config, next)
		require.NoError(t, err)
		assert.Equal(t, next, again)
	})
	t.Run("Cluster default resource", func(t *testing.T) {
		store := memory.New()
		writer, s := newWriter(t, store)

		cluster := record.ConfigResource{Type: record.BrokerResource}
		_, err := writer.WriteConfig(ctx, cluster, map[string]string{"num.io.threads": "8"}, s)
		require.NoError(t, err)

		_, err = store.Get(ctx, "/config/brokers/<default>")
		require.NoError(t, err)

		resources, err := writer.ListResources(ctx, record.BrokerResource)
		require.NoError(t, err)
		assert.Equal(t, []record.ConfigResource{cluster}, resources)
	})
	t.Run("Sensitive value without encoder", func(t *testing.T) {
		store := memory.New()
		writer, s := newWriter(t, store)

		next, err := writer.WriteConfig(ctx, broker, map[string]string{"ssl.key.password": "hunter2"}, s)
		require.ErrorIs(t, err, gerrors.ErrEncoderRequired)
		assert.Equal(t, s, next)
		_, err = store.Get(ctx, layout.ConfigEntityPath(broker))
		require.ErrorIs(t, err, legacy.ErrNodeNotFound)
	})
	t.Run("Cleartext secrets are rewritten", func(t *testing.T) {
		store := memory.New()
		writer, s := newWriter(t, store, WithEncoder(encoder))

		data, err := layout.EncodeConfig(map[string]string{"ssl.key.password": "hunter2"})
		require.NoError(t, err)
		_, err = store.Multi(ctx, []legacy.Op{legacy.Create(layout.ConfigEntityPath(broker), data)})
		require.NoError(t, err)

		next, err := writer.WriteConfig(ctx, broker, map[string]string{"ssl.key.password": "hunter2"}, s)
		require.NoError(t, err)
		assert.Equal(t, s.MigrationVersion()+1, next.MigrationVersion())
		assert.True(t, secret.IsEncoded(storedConfig(t, store, broker)["ssl.key.password"]))
	})
}

func TestDeleteConfig(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer, s := newWriter(t, store)
	broker := record.ConfigResource{Type: record.BrokerResource, Name: "2"}

	unchanged, err := writer.DeleteConfig(ctx, broker, s)
	require.NoError(t, err)
	assert.Equal(t, s, unchanged)

	written, err := writer.WriteConfig(ctx, broker, map[string]string{"a": "b"}, s)
	require.NoError(t, err)

	deleted, err := writer.DeleteConfig(ctx, broker, written)
	require.NoError(t, err)
	assert.Equal(t, written.MigrationVersion()+1, deleted.MigrationVersion())

	_, exists, err := writer.ReadConfig(ctx, broker)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNeedsWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer, s := newWriter(t, store)
	topic := record.ConfigResource{Type: record.TopicResource, Name: "foo"}

	needed, err := writer.NeedsWrite(ctx, topic, map[string]string{})
	require.NoError(t, err)
	assert.False(t, needed)

	needed, err = writer.NeedsWrite(ctx, topic, map[string]string{"retention.ms": "10"})
	require.NoError(t, err)
	assert.True(t, needed)

	_, err = writer.WriteConfig(ctx, topic, map[string]string{"retention.ms": "10"}, s)
	require.NoError(t, err)

	needed, err = writer.NeedsWrite(ctx, topic, map[string]string{"retention.ms": "10"})
	require.NoError(t, err)
	assert.False(t, needed)

	needed, err = writer.NeedsWrite(ctx, topic, map[string]string{"retention.ms": "20"})
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestLostSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer, s := newWriter(t, store)
	broker := record.ConfigResource{Type: record.BrokerResource, Name: "1"}

	store.DisconnectFor(50 * time.Millisecond)
	written, err := writer.WriteConfig(ctx, broker, map[string]string{"a": "b"}, s)
	require.NoError(t, err)
	assert.Equal(t, s.MigrationVersion()+1, written.MigrationVersion())

	store.DisconnectFor(50 * time.Millisecond)
	resources, err := writer.ListResources(ctx, record.BrokerResource)
	require.NoError(t, err)
	assert.Equal(t, []record.ConfigResource{broker}, resources)

	store.DisconnectFor(50 * time.Millisecond)
	deleted, err := writer.DeleteConfig(ctx, broker, written)
	require.NoError(t, err)
	assert.Equal(t, written.MigrationVersion()+1, deleted.MigrationVersion())
}
