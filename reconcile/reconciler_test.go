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
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zpllz/kafka/configs"
	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/image"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/legacy/memory"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/producerid"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/secret"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/topics"
	"github.com/zpllz/kafka/txn"
)

// applier plays the caller: it threads the state through every operation.
type applier struct {
	state state.LeadershipState
	kinds []OperationKind
}

func (a *applier) consume(ctx context.Context, kind OperationKind, _ string, operation Operation) error {
	a.kinds = append(a.kinds, kind)
	next, err := operation(ctx, a.state)
	if err != nil {
		return err
	}
	a.state = next
	return nil
}

type fixture struct {
	store      *memory.Store
	executor   *txn.Executor
	encoder    secret.Encoder
	reconciler *Reconciler
	applier    *applier
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := memory.New()
	executor := txn.NewExecutor(store, txn.WithLogger(log.DiscardLogger))
	s, err := executor.GetOrCreateMigrationState(context.Background(), state.Empty.WithNewQuorumController(3000, 1))
	require.NoError(t, err)

	encoder, err := secret.NewAESEncoder("encoder-secret", secret.WithIterations(16))
	require.NoError(t, err)

	opts = append([]Option{WithLogger(log.DiscardLogger), WithEncoder(encoder)}, opts...)
	return &fixture{
		store:      store,
		executor:   executor,
		encoder:    encoder,
		reconciler: NewReconciler(executor, opts...),
		applier:    &applier{state: s},
	}
}

func (f *fixture) storedConfig(t *testing.T, resource record.ConfigResource) map[string]string {
	t.Helper()
	node, err := f.store.Get(context.Background(), layout.ConfigEntityPath(resource))
	require.NoError(t, err)

	var raw struct {
		Config map[string]string `json:"config"`
	}
	require.NoError(t, json.Unmarshal(node.Data, &raw))
	return raw.Config
}

func (f *fixture) readTopic(t *testing.T, name string) topics.Topic {
	t.Helper()
	topic, gaps, err := topics.ReadTopic(context.Background(), f.store, name)
	require.NoError(t, err)
	require.Empty(t, gaps)
	return topic
}

func TestHandleLoadSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("One topic with topic and broker configs", func(t *testing.T) {
		f := newFixture(t)
		topicID := uuid.New()
		partition := record.NewPartitionRegistration(1, 2)
		partition.LeaderEpoch = 3
		partition.PartitionEpoch = 4
		topicConfig := record.ConfigResource{Type: record.TopicResource, Name: "foo"}
		brokerConfig := record.ConfigResource{Type: record.BrokerResource, Name: "1"}

		img, err := image.FromRecords(
			record.NewTopic("foo", topicID),
			record.NewPartition(topicID, 0, partition),
			record.NewConfig(topicConfig, "cleanup.policy", "compact"),
			record.NewConfig(topicConfig, "ssl.key.password", "hunter2"),
			record.NewConfig(brokerConfig, "cleanup.policy", "compact"),
			record.NewConfig(brokerConfig, "ssl.key.password", "hunter2"),
		)
		require.NoError(t, err)

		before := f.applier.state
		require.NoError(t, f.reconciler.HandleLoadSnapshot(ctx, img, f.applier.consume))
		assert.Equal(t, []OperationKind{CreateTopic, UpdateConfig, UpdateConfig}, f.applier.kinds)
		assert.Equal(t, before.MigrationVersion()+3, f.applier.state.MigrationVersion())

		topic := f.readTopic(t, "foo")
		assert.Equal(t, topicID, topic.TopicID)
		require.Len(t, topic.Partitions, 1)
		assert.True(t, partition.Equal(topic.Partitions[0]))

		for _, resource := range []record.ConfigResource{topicConfig, brokerConfig} {
			stored := f.storedConfig(t, resource)
			assert.Equal(t, "compact", stored["cleanup.policy"])
			require.NotEqual(t, "hunter2", stored["ssl.key.password"])
			decoded, err := f.encoder.Decode(stored["ssl.key.password"])
			require.NoError(t, err)
			assert.Equal(t, "hunter2", decoded)
		}

		// a second pass finds nothing to do
		f.applier.kinds = nil
		require.NoError(t, f.reconciler.HandleLoadSnapshot(ctx, img, f.applier.consume))
		assert.Empty(t, f.applier.kinds)
	})
	t.Run("Brings the legacy store in line", func(t *testing.T) {
		f := newFixture(t)
		writer := topics.NewWriter(f.executor, log.DiscardLogger)
		configWriter := configs.NewWriter(f.executor, configs.WithLogger(log.DiscardLogger))

		keepID, goneID, renewedID := uuid.New(), uuid.New(), uuid.New()
		s := f.applier.state
		s, err := writer.CreateTopic(ctx, "keep", keepID, map[int32]record.PartitionRegistration{0: record.NewPartitionRegistration(1, 2)}, s)
		require.NoError(t, err)
		s, err = writer.CreateTopic(ctx, "gone", goneID, map[int32]record.PartitionRegistration{0: record.NewPartitionRegistration(1)}, s)
		require.NoError(t, err)
		s, err = writer.CreateTopic(ctx, "renewed", renewedID, map[int32]record.PartitionRegistration{0: record.NewPartitionRegistration(1)}, s)
		require.NoError(t, err)
		s, err = configWriter.WriteConfig(ctx, record.ConfigResource{Type: record.BrokerResource, Name: "9"}, map[string]string{"a": "b"}, s)
		require.NoError(t, err)
		f.applier.state = s

		leaderMoved := record.NewPartitionRegistration(2, 1)
		leaderMoved.LeaderEpoch = 1
		newID := uuid.New()
		img, err := image.FromRecords(
			record.NewTopic("keep", keepID),
			record.NewPartition(keepID, 0, leaderMoved),
			record.NewPartition(keepID, 1, record.NewPartitionRegistration(3)),
			record.NewTopic("renewed", newID),
			record.NewPartition(newID, 0, record.NewPartitionRegistration(2)),
			record.NewProducerID(5000),
		)
		require.NoError(t, err)

		require.NoError(t, f.reconciler.HandleLoadSnapshot(ctx, img, f.applier.consume))
		assert.Equal(t, []OperationKind{
			CreatePartitions, UpdateTopic, UpdatePartitions,
			DeleteTopic, CreateTopic,
			DeleteTopic,
			DeleteConfig,
			UpdateProducerID,
		}, f.applier.kinds)

		keep := f.readTopic(t, "keep")
		assert.Equal(t, []int32{0, 1}, keep.PartitionIDs())
		assert.True(t, leaderMoved.Equal(keep.Partitions[0]))

		renewed := f.readTopic(t, "renewed")
		assert.Equal(t, newID, renewed.TopicID)

		_, err = f.store.Get(ctx, layout.TopicPath("gone"))
		require.ErrorIs(t, err, legacy.ErrNodeNotFound)
		_, err = f.store.Get(ctx, "/config/brokers/9")
		require.ErrorIs(t, err, legacy.ErrNodeNotFound)

		block, _, err := producerid.ReadBlock(ctx, f.store)
		require.NoError(t, err)
		require.NotNil(t, block)
		assert.Equal(t, producerid.QuorumBlock(5000), *block)
	})
	t.Run("Gaps are reported and left alone", func(t *testing.T) {
		f := newFixture(t)
		statelessID := uuid.New()
		data, err := layout.EncodeTopic(statelessID, map[int32]record.PartitionRegistration{0: record.NewPartitionRegistration(1)})
		require.NoError(t, err)
		_, err = f.store.Multi(ctx, []legacy.Op{legacy.Create(layout.TopicPath("stateless"), data)})
		require.NoError(t, err)

		emptyID := uuid.New()
		img, err := image.FromRecords(
			record.NewTopic("empty", emptyID),
			record.NewTopic("stateless", statelessID),
			record.NewPartition(statelessID, 0, record.NewPartitionRegistration(1)),
		)
		require.NoError(t, err)

		err = f.reconciler.HandleLoadSnapshot(ctx, img, f.applier.consume)
		require.Error(t, err)
		assert.Empty(t, f.applier.kinds)

		var gap *gerrors.ReconciliationGap
		require.ErrorAs(t, err, &gap)
		assert.Contains(t, err.Error(), "topic empty")
		assert.Contains(t, err.Error(), "stateless-0")

		_, err = f.store.Get(ctx, layout.TopicPath("empty"))
		require.ErrorIs(t, err, legacy.ErrNodeNotFound)
	})
	t.Run("Sensitive config without encoder", func(t *testing.T) {
		f := newFixture(t, WithEncoder(nil))
		img, err := image.FromRecords(record.NewConfig(record.ConfigResource{Type: record.BrokerResource}, "ssl.key.password", "hunter2"))
		require.NoError(t, err)

		before := f.applier.state
		err = f.reconciler.HandleLoadSnapshot(ctx, img, f.applier.consume)
		require.ErrorIs(t, err, gerrors.ErrEncoderRequired)
		assert.Equal(t, before, f.applier.state)
	})
	t.Run("Consumer error stops the reconciliation", func(t *testing.T) {
		f := newFixture(t)
		img, err := image.FromRecords(
			record.NewTopic("a", uuid.New()),
			record.NewTopic("b", uuid.New()),
		)
		require.NoError(t, err)
		topicA, _ := img.TopicByName("a")
		topicB, _ := img.TopicByName("b")
		img, err = img.Apply(image.NewDelta(
			record.NewPartition(topicA.ID, 0, record.NewPartitionRegistration(1)),
			record.NewPartition(topicB.ID, 0, record.NewPartitionRegistration(1)),
		))
		require.NoError(t, err)

		stop := errors.New("stop")
		calls := 0
		err = f.reconciler.HandleLoadSnapshot(ctx, img, func(context.Context, OperationKind, string, Operation) error {
			calls++
			return stop
		})
		require.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}

func TestHandleDelta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fooID, barID := uuid.New(), uuid.New()
	cluster := record.ConfigResource{Type: record.BrokerResource}

	prev, err := image.FromRecords(
		record.NewTopic("foo", fooID),
		record.NewPartition(fooID, 0, record.NewPartitionRegistration(1, 2)),
		record.NewConfig(cluster, "num.io.threads", "8"),
		record.NewProducerID(1000),
	)
	require.NoError(t, err)
	require.NoError(t, f.reconciler.HandleLoadSnapshot(ctx, prev, f.applier.consume))

	t.Run("Create and update", func(t *testing.T) {
		f.applier.kinds = nil
		moved := record.NewPartitionRegistration(2, 1)
		moved.LeaderEpoch = 1
		next, err := f.reconciler.HandleDelta(ctx, prev, image.NewDelta(
			record.NewTopic("bar", barID),
			record.NewPartition(barID, 0, record.NewPartitionRegistration(3)),
			record.NewPartition(fooID, 0, moved),
			record.NewConfig(record.ConfigResource{Type: record.TopicResource, Name: "bar"}, "retention.ms", "10"),
			record.NewProducerID(2000),
		), f.applier.consume)
		require.NoError(t, err)
		assert.Equal(t, []OperationKind{CreateTopic, UpdateTopic, UpdatePartitions, UpdateConfig, UpdateProducerID}, f.applier.kinds)

		assert.Equal(t, barID, f.readTopic(t, "bar").TopicID)
		assert.True(t, moved.Equal(f.readTopic(t, "foo").Partitions[0]))
		assert.Equal(t, map[string]string{"retention.ms": "10"}, f.storedConfig(t, record.ConfigResource{Type: record.TopicResource, Name: "bar"}))
		prev = next
	})
	t.Run("Delete", func(t *testing.T) {
		f.applier.kinds = nil
		next, err := f.reconciler.HandleDelta(ctx, prev, image.NewDelta(
			record.NewRemoveTopic(barID),
			record.NewConfigRemoval(cluster, "num.io.threads"),
		), f.applier.consume)
		require.NoError(t, err)
		assert.Equal(t, []OperationKind{DeleteTopic, DeleteConfig}, f.applier.kinds)

		_, err = f.store.Get(ctx, layout.TopicPath("bar"))
		require.ErrorIs(t, err, legacy.ErrNodeNotFound)
		_, err = f.store.Get(ctx, "/config/brokers/<default>")
		require.ErrorIs(t, err, legacy.ErrNodeNotFound)
		prev = next
	})
	t.Run("Topic without partitions", func(t *testing.T) {
		f.applier.kinds = nil
		emptyID := uuid.New()
		next, err := f.reconciler.HandleDelta(ctx, prev, image.NewDelta(record.NewTopic("empty", emptyID)), f.applier.consume)
		var gap *gerrors.ReconciliationGap
		require.ErrorAs(t, err, &gap)
		assert.Empty(t, f.applier.kinds)

		// the partitions arrive later and the topic gets created
		_, err = f.reconciler.HandleDelta(ctx, next, image.NewDelta(record.NewPartition(emptyID, 0, record.NewPartitionRegistration(1))), f.applier.consume)
		require.NoError(t, err)
		assert.Equal(t, []OperationKind{CreateTopic}, f.applier.kinds)
	})
	t.Run("Invalid delta", func(t *testing.T) {
		f.applier.kinds = nil
		same, err := f.reconciler.HandleDelta(ctx, prev, image.NewDelta(record.NewRemoveTopic(uuid.New())), f.applier.consume)
		require.ErrorIs(t, err, image.ErrInvalidDelta)
		assert.Equal(t, prev, same)
		assert.Empty(t, f.applier.kinds)
	})
}

func TestHandleDeltaRepeatedTopic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fooID := uuid.New()

	prev, err := image.FromRecords(
		record.NewTopic("foo", fooID),
		record.NewPartition(fooID, 0, record.NewPartitionRegistration(1, 2)),
	)
	require.NoError(t, err)
	require.NoError(t, f.reconciler.HandleLoadSnapshot(ctx, prev, f.applier.consume))

	f.applier.kinds = nil
	moved := record.NewPartitionRegistration(1, 2)
	moved.Leader = 2
	moved.LeaderEpoch = 1
	next, err := f.reconciler.HandleDelta(ctx, prev, image.NewDelta(
		record.NewTopic("foo", fooID),
		record.NewPartition(fooID, 0, moved),
	), f.applier.consume)
	require.NoError(t, err)
	assert.Equal(t, []OperationKind{UpdatePartitions}, f.applier.kinds)

	stored := f.readTopic(t, "foo").Partitions[0]
	assert.EqualValues(t, 2, stored.Leader)
	assert.EqualValues(t, 1, stored.LeaderEpoch)

	before, _ := prev.TopicByID(fooID)
	assert.EqualValues(t, 1, before.Partitions[0].Leader)
	after, _ := next.TopicByID(fooID)
	assert.True(t, moved.Equal(after.Partitions[0]))
}
