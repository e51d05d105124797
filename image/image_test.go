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

package image

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zpllz/kafka/record"
)

func TestApply(t *testing.T) {
	fooID := uuid.New()
	topicConfig := record.ConfigResource{Type: record.TopicResource, Name: "foo"}
	cluster := record.ConfigResource{Type: record.BrokerResource}

	base, err := FromRecords(
		record.NewTopic("foo", fooID),
		record.NewPartition(fooID, 0, record.NewPartitionRegistration(1, 2)),
		record.NewConfig(topicConfig, "retention.ms", "1000"),
		record.NewConfig(cluster, "log.retention.hours", "24"),
		record.NewProducerID(2000),
	)
	require.NoError(t, err)

	t.Run("Builds the image", func(t *testing.T) {
		require.False(t, base.IsEmpty())
		topic, ok := base.TopicByName("foo")
		require.True(t, ok)
		assert.Equal(t, fooID, topic.ID)
		assert.Equal(t, []int32{0}, topic.PartitionIDs())
		assert.Equal(t, map[string]string{"retention.ms": "1000"}, base.Configs(topicConfig))
		assert.Equal(t, []record.ConfigResource{topicConfig, cluster}, base.ConfigResources())
		assert.EqualValues(t, 2000, base.NextProducerID())
	})
	t.Run("Leaves the receiver untouched", func(t *testing.T) {
		moved := record.NewPartitionRegistration(2, 3)
		moved.LeaderEpoch = 1
		next, err := base.Apply(NewDelta(
			record.NewPartition(fooID, 0, moved),
			record.NewPartition(fooID, 1, record.NewPartitionRegistration(3)),
			record.NewConfig(topicConfig, "cleanup.policy", "compact"),
			record.NewConfigRemoval(cluster, "log.retention.hours"),
		))
		require.NoError(t, err)

		before, _ := base.TopicByName("foo")
		after, _ := next.TopicByName("foo")
		assert.Equal(t, []int32{1, 2}, before.Partitions[0].Replicas)
		assert.Equal(t, []int32{2, 3}, after.Partitions[0].Replicas)
		assert.Equal(t, []int32{0, 1}, after.PartitionIDs())

		assert.Len(t, base.Configs(topicConfig), 1)
		assert.Len(t, next.Configs(topicConfig), 2)
		assert.Equal(t, []record.ConfigResource{topicConfig, cluster}, base.ConfigResources())
		assert.Equal(t, []record.ConfigResource{topicConfig}, next.ConfigResources())
	})
	t.Run("Removing a topic drops its configs", func(t *testing.T) {
		next, err := base.Apply(NewDelta(record.NewRemoveTopic(fooID)))
		require.NoError(t, err)

		_, ok := next.TopicByID(fooID)
		assert.False(t, ok)
		assert.Empty(t, next.Topics())
		assert.Empty(t, next.Configs(topicConfig))

		_, ok = base.TopicByID(fooID)
		assert.True(t, ok)
	})
	t.Run("Recreating a removed topic", func(t *testing.T) {
		next, err := base.Apply(NewDelta(
			record.NewRemoveTopic(fooID),
			record.NewConfig(topicConfig, "retention.ms", "5"),
			record.NewTopic("foo", uuid.New()),
		))
		require.NoError(t, err)

		topic, ok := next.TopicByName("foo")
		require.True(t, ok)
		assert.NotEqual(t, fooID, topic.ID)
		assert.Empty(t, topic.Partitions)
		assert.Equal(t, map[string]string{"retention.ms": "5"}, next.Configs(topicConfig))
	})
	t.Run("Invalid deltas", func(t *testing.T) {
		_, err := base.Apply(NewDelta(record.NewPartition(uuid.New(), 0, record.NewPartitionRegistration(1))))
		require.ErrorIs(t, err, ErrInvalidDelta)

		_, err = base.Apply(NewDelta(record.NewTopic("foo", uuid.New())))
		require.ErrorIs(t, err, ErrInvalidDelta)

		_, err = base.Apply(NewDelta(record.NewTopic("bar", fooID)))
		require.ErrorIs(t, err, ErrInvalidDelta)

		_, err = base.Apply(NewDelta(record.NewRemoveTopic(uuid.New())))
		require.ErrorIs(t, err, ErrInvalidDelta)

		_, err = base.Apply(NewDelta(record.Record{Kind: record.TopicKind}))
		require.ErrorIs(t, err, ErrInvalidDelta)
	})
	t.Run("Re-declaring a topic is a no-op", func(t *testing.T) {
		next, err := base.Apply(NewDelta(record.NewTopic("foo", fooID)))
		require.NoError(t, err)
		topic, _ := next.TopicByID(fooID)
		assert.Len(t, topic.Partitions, 1)
	})
	t.Run("Re-declared topic partitions do not leak into the receiver", func(t *testing.T) {
		moved := record.NewPartitionRegistration(2, 1)
		moved.LeaderEpoch = 1
		next, err := base.Apply(NewDelta(
			record.NewTopic("foo", fooID),
			record.NewPartition(fooID, 0, moved),
			record.NewPartition(fooID, 1, record.NewPartitionRegistration(2)),
		))
		require.NoError(t, err)

		before, _ := base.TopicByID(fooID)
		assert.EqualValues(t, 1, before.Partitions[0].Leader)
		assert.EqualValues(t, 0, before.Partitions[0].LeaderEpoch)
		assert.Equal(t, []int32{0}, before.PartitionIDs())

		after, _ := next.TopicByID(fooID)
		assert.EqualValues(t, 2, after.Partitions[0].Leader)
		assert.EqualValues(t, 1, after.Partitions[0].LeaderEpoch)
		assert.Equal(t, []int32{0, 1}, after.PartitionIDs())
	})
}

func TestDelta(t *testing.T) {
	fooID, barID := uuid.New(), uuid.New()
	resource := record.ConfigResource{Type: record.BrokerResource, Name: "1"}
	delta := NewDelta(
		record.NewTopic("bar", barID),
		record.NewPartition(fooID, 0, record.NewPartitionRegistration(1)),
		record.NewPartition(barID, 0, record.NewPartitionRegistration(1)),
		record.NewConfig(resource, "a", "b"),
		record.NewConfigRemoval(resource, "c"),
	)

	assert.False(t, delta.IsEmpty())
	assert.Equal(t, []uuid.UUID{barID, fooID}, delta.TopicIDs())
	assert.Equal(t, []record.ConfigResource{resource}, delta.ConfigResources())
	assert.False(t, delta.TouchesProducerID())
	assert.True(t, NewDelta(record.NewProducerID(10)).TouchesProducerID())
	assert.Len(t, delta.Records(), 5)
	assert.True(t, NewDelta().IsEmpty())
	assert.True(t, Empty.IsEmpty())
}
