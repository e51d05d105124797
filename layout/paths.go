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

// Package layout knows where the legacy store keeps each piece of cluster
// metadata and how every node is encoded.
package layout

import (
	"strconv"

	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/record"
)

const (
	// ControllerPath holds the active controller registration.
	ControllerPath = "/controller"
	// ControllerEpochPath holds the controller epoch counter.
	ControllerEpochPath = "/controller_epoch"
	// BrokerIDsPath is the parent of the broker registrations.
	BrokerIDsPath = "/brokers/ids"
	// TopicsPath is the parent of the topic assignments.
	TopicsPath = "/brokers/topics"
	// ConfigPath is the parent of the config entity types.
	ConfigPath = "/config"
	// ProducerIDBlockPath holds the latest producer id block.
	ProducerIDBlockPath = "/latest_producer_id_block"
	// MigrationPath holds the migration marker.
	MigrationPath = "/migration"
)

// BrokerPath returns the registration path of a broker.
func BrokerPath(brokerID int32) string {
	return BrokerIDsPath + "/" + strconv.Itoa(int(brokerID))
}

// TopicPath returns the assignment path of a topic.
func TopicPath(topic string) string {
	return TopicsPath + "/" + topic
}

// TopicPartitionsPath returns the parent of the partitions of a topic.
func TopicPartitionsPath(topic string) string {
	return TopicPath(topic) + "/partitions"
}

// PartitionPath returns the parent of the state node of a partition.
func PartitionPath(topic string, partition int32) string {
	return TopicPartitionsPath(topic) + "/" + strconv.Itoa(int(partition))
}

// PartitionStatePath returns the state path of a partition.
func PartitionStatePath(topic string, partition int32) string {
	return PartitionPath(topic, partition) + "/state"
}

// ConfigEntityTypePath returns the parent of the configs of a resource type.
func ConfigEntityTypePath(resourceType record.ResourceType) string {
	return ConfigPath + "/" + resourceType.Entity()
}

// ConfigEntityPath returns the config path of a resource. The cluster-wide
// broker config lives under the "<default>" name.
func ConfigEntityPath(resource record.ConfigResource) string {
	name := resource.Name
	if resource.Type == record.BrokerResource && name == "" {
		name = DefaultBrokerEntity
	}
	return ConfigEntityTypePath(resource.Type) + "/" + name
}

// DefaultBrokerEntity names the cluster-wide broker config entity.
const DefaultBrokerEntity = "<default>"

// ResourceFromEntity maps a config entity name back to its resource.
func ResourceFromEntity(resourceType record.ResourceType, entity string) record.ConfigResource {
	if resourceType == record.BrokerResource && entity == DefaultBrokerEntity {
		entity = ""
	}
	return record.ConfigResource{Type: resourceType, Name: entity}
}

// ParseID parses a numeric path segment such as a broker or partition id.
func ParseID(segment string) (int32, bool) {
	id, err := strconv.ParseInt(segment, 10, 32)
	if err != nil || id < 0 {
		return 0, false
	}
	return int32(id), true
}

// DeleteTopicOps returns the ops removing a topic, its partitions and its
// config. partitions lists the partition ids currently stored and
// topicVersion guards the topic node.
func DeleteTopicOps(topic string, topicVersion int64, partitions []int32, configExists bool) []legacy.Op {
	ops := make([]legacy.Op, 0, len(partitions)+2)
	for _, partition := range partitions {
		ops = append(ops, legacy.Delete(PartitionStatePath(topic, partition), legacy.MatchAnyVersion))
	}

	if configExists {
		ops = append(ops, legacy.Delete(ConfigEntityPath(record.ConfigResource{Type: record.TopicResource, Name: topic}), legacy.MatchAnyVersion))
	}
	return append(ops, legacy.Delete(TopicPath(topic), topicVersion))
}
