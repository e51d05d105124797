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

package scan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/legacy/memory"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/secret"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sinks struct {
	batches []record.Batch
	brokers []int32
}

func (s *sinks) batch(_ context.Context, batch record.Batch) error {
	s.batches = append(s.batches, batch)
	return nil
}

func (s *sinks) broker(id int32) {
	s.brokers = append(s.brokers, id)
}

func (s *sinks) records() []record.Record {
	var records []record.Record
	for _, batch := range s.batches {
		records = append(records, batch...)
	}
	return records
}

func seedTopic(t *testing.T, store *memory.Store, name string, topicID uuid.UUID, partitions map[int32]record.PartitionRegistration, config map[string]string) {
	t.Helper()
	data, err := layout.EncodeTopic(topicID, partitions)
	require.NoError(t, err)

	ops := []legacy.Op{legacy.Create(layout.TopicPath(name), data)}
	for id, registration := range partitions {
		stateData, err := layout.EncodePartitionState(registration, 1)
		require.NoError(t, err)
		ops = append(ops, legacy.Create(layout.PartitionStatePath(name, id), stateData))
	}

	if config != nil {
		configData, err := layout.EncodeConfig(config)
		require.NoError(t, err)
		ops = append(ops, legacy.Create(layout.ConfigEntityPath(record.ConfigResource{Type: record.TopicResource, Name: name}), configData))
	}
	seed(t, store, ops...)
}

func seed(t *testing.T, store *memory.Store, ops ...legacy.Op) {
	t.Helper()
	result, err := store.Multi(context.Background(), ops)
	require.NoError(t, err)
	require.True(t, result.Succeeded)
}

func seedBroker(t *testing.T, store *memory.Store, id int32) {
	t.Helper()
	data, err := layout.EncodeBroker(layout.BrokerRegistration{Version: 5, Host: "localhost", Port: 9092})
	require.NoError(t, err)
	seed(t, store, legacy.Create(layout.BrokerPath(id), data))
}

func seedBrokerConfig(t *testing.T, store *memory.Store, name string, config map[string]string) {
	t.Helper()
	data, err := layout.EncodeConfig(config)
	require.NoError(t, err)
	seed(t, store, legacy.Create(layout.ConfigEntityPath(record.ConfigResource{Type: record.BrokerResource, Name: name}), data))
}

func TestReadAllMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty store", func(t *testing.T) {
		out := new(sinks)
		reader := NewReader(memory.New(), WithLogger(log.DiscardLogger))

		require.NoError(t, reader.ReadAllMetadata(ctx, out.batch, out.broker))
		assert.Empty(t, out.batches)
		assert.Empty(t, out.brokers)
	})
	t.Run("Emits the whole store", func(t *testing.T) {
		store := memory.New()
		encoder, err := secret.NewAESEncoder("encoder-secret", secret.WithIterations(16))
		require.NoError(t, err)
		encoded, err := encoder.Encode("hunter2")
		require.NoError(t, err)

		topicID := uuid.New()
		seedBroker(t, store, 1)
		seedTopic(t, store, "foo", topicID, map[int32]record.PartitionRegistration{
			0: record.NewPartitionRegistration(1, 2),
			1: record.NewPartitionRegistration(2, 3),
		}, map[string]string{"retention.ms": "1000"})
		seedBrokerConfig(t, store, "", map[string]string{"ssl.key.password": encoded, "log.retention.hours": "24"})
		block, err := layout.EncodeProducerIDBlock(layout.ProducerIDBlock{AssignedBroker: 1, FirstProducerID: 0, Size: 1000})
		require.NoError(t, err)
		seed(t, store, legacy.Create(layout.ProducerIDBlockPath, block))

		out := new(sinks)
		reader := NewReader(store, WithLogger(log.DiscardLogger), WithEncoder(encoder))
		require.NoError(t, reader.ReadAllMetadata(ctx, out.batch, out.broker))

		assert.Equal(t, []int32{1, 2, 3}, out.brokers)
		records := out.records()
		require.Len(t, records, 7)

		require.Equal(t, record.TopicKind, records[0].Kind)
		assert.Equal(t, "foo", records[0].Topic.Name)
		assert.Equal(t, topicID, records[0].Topic.TopicID)
		require.Equal(t, record.PartitionKind, records[1].Kind)
		assert.EqualValues(t, 0, records[1].Partition.PartitionID)
		require.Equal(t, record.PartitionKind, records[2].Kind)
		assert.EqualValues(t, 1, records[2].Partition.PartitionID)
		require.Equal(t, record.ConfigKind, records[3].Kind)
		assert.Equal(t, "retention.ms", records[3].Config.Name)

		cluster := record.ConfigResource{Type: record.BrokerResource}
		require.Equal(t, record.ConfigKind, records[4].Kind)
		assert.Equal(t, cluster, records[4].Config.Resource)
		assert.Equal(t, "log.retention.hours", records[4].Config.Name)
		require.Equal(t, record.ConfigKind, records[5].Kind)
		assert.Equal(t, "ssl.key.password", records[5].Config.Name)
		assert.Equal(t, "hunter2", *records[5].Config.Value)

		require.Equal(t, record.ProducerIDKind, records[6].Kind)
		assert.EqualValues(t, 1000, records[6].ProducerID.NextProducerID)
	})
	t.Run("Registered brokers without topics", func(t *testing.T) {
		store := memory.New()
		seedBroker(t, store, 7)
		seedBroker(t, store, 4)

		out := new(sinks)
		require.NoError(t, NewReader(store, WithLogger(log.DiscardLogger)).ReadAllMetadata(ctx, out.batch, out.broker))
		assert.Empty(t, out.batches)
		assert.Equal(t, []int32{4, 7}, out.brokers)
	})
	t.Run("Inconsistent entities are skipped and reported", func(t *testing.T) {
		store := memory.New()
		seedTopic(t, store, "good", uuid.New(), map[int32]record.PartitionRegistration{0: record.NewPartitionRegistration(1)}, nil)

		data, err := layout.EncodeTopic(uuid.New(), map[int32]record.PartitionRegistration{0: record.NewPartitionRegistration(1)})
		require.NoError(t, err)
		seed(t, store, legacy.Create(layout.TopicPath("stateless"), data))
		seed(t, store, legacy.Create(layout.TopicPath("garbage"), []byte("{not json")))
		seedBrokerConfig(t, store, "1", map[string]string{"ssl.key.password": "v1:c29tZXRoaW5n"})

		out := new(sinks)
		err = NewReader(store, WithLogger(log.DiscardLogger)).ReadAllMetadata(ctx, out.batch, out.broker)
		require.Error(t, err)
		assert.ErrorIs(t, err, gerrors.ErrMalformedNode)
		assert.ErrorIs(t, err, gerrors.ErrPartitionNotFound)
		assert.ErrorIs(t, err, gerrors.ErrEncoderRequired)

		var scanErr *gerrors.ScanError
		require.ErrorAs(t, err, &scanErr)

		names := make([]string, 0)
		for _, r := range out.records() {
			if r.Kind == record.TopicKind {
				names = append(names, r.Topic.Name)
			}
		}
		assert.ElementsMatch(t, []string{"good", "stateless"}, names)
	})
}

func TestMigrateTopics(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedBroker(t, store, 1)
	seedBrokerConfig(t, store, "1", map[string]string{"log.retention.hours": "24"})
	seed(t, store, legacy.Create(layout.ProducerIDBlockPath, []byte(`{"version":1,"broker":1,"block_start":"0","block_end":"999"}`)))

	for index := range 5 {
		partitions := map[int32]record.PartitionRegistration{
			0: record.NewPartitionRegistration(1, 2),
			1: record.NewPartitionRegistration(2, 5),
		}
		seedTopic(t, store, "topic-"+string(rune('a'+index)), uuid.New(), partitions, map[string]string{"cleanup.policy": "compact"})
	}

	out := new(sinks)
	reader := NewReader(store, WithLogger(log.DiscardLogger), WithBatchSize(8), WithParallelism(2))
	require.NoError(t, reader.MigrateTopics(ctx, out.batch, out.broker))

	// replica references only, registered brokers are not listed
	assert.Equal(t, []int32{1, 2, 5}, out.brokers)
	// each topic group of four records stays within one batch
	require.Len(t, out.batches, 3)
	for _, batch := range out.batches {
		require.Equal(t, record.TopicKind, batch[0].Kind)
		for _, r := range batch {
			assert.NotEqual(t, record.ProducerIDKind, r.Kind)
			if r.Kind == record.ConfigKind {
				assert.Equal(t, record.TopicResource, r.Config.Resource.Type)
			}
		}
	}
	assert.Len(t, out.records(), 20)
}

func TestLostSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	topicID := uuid.New()
	seedBroker(t, store, 1)
	seedTopic(t, store, "foo", topicID, map[int32]record.PartitionRegistration{0: record.NewPartitionRegistration(1)}, nil)

	store.DisconnectFor(50 * time.Millisecond)
	out := new(sinks)
	reader := NewReader(store, WithLogger(log.DiscardLogger))
	require.NoError(t, reader.ReadAllMetadata(ctx, out.batch, out.broker))

	records := out.records()
	require.Len(t, records, 2)
	assert.Equal(t, topicID, records[0].Topic.TopicID)
	assert.Equal(t, []int32{1}, out.brokers)
	assert.EqualValues(t, 1, store.Disconnects())
}
