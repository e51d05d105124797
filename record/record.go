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

// Package record defines the typed records exchanged with the quorum-log
// side of the migration and the size-bounded batches that carry them.
package record

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind tags the variant held by a Record.
type Kind uint8

const (
	// TopicKind tags a TopicRecord.
	TopicKind Kind = iota + 1
	// PartitionKind tags a PartitionRecord.
	PartitionKind
	// ConfigKind tags a ConfigRecord.
	ConfigKind
	// ProducerIDKind tags a ProducerIDRecord.
	ProducerIDKind
	// RemoveTopicKind tags a RemoveTopicRecord.
	RemoveTopicKind
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case TopicKind:
		return "topic"
	case PartitionKind:
		return "partition"
	case ConfigKind:
		return "config"
	case ProducerIDKind:
		return "producer-id"
	case RemoveTopicKind:
		return "remove-topic"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ResourceType is the kind of entity a config belongs to.
type ResourceType uint8

const (
	// TopicResource scopes a config to a topic.
	TopicResource ResourceType = iota + 1
	// BrokerResource scopes a config to a broker, or to the cluster when the
	// resource name is empty.
	BrokerResource
)

// Entity returns the legacy store path segment of the resource type.
func (r ResourceType) Entity() string {
	switch r {
	case TopicResource:
		return "topics"
	case BrokerResource:
		return "brokers"
	default:
		return ""
	}
}

// String implements fmt.Stringer
func (r ResourceType) String() string {
	switch r {
	case TopicResource:
		return "topic"
	case BrokerResource:
		return "broker"
	default:
		return fmt.Sprintf("ResourceType(%d)", uint8(r))
	}
}

// ConfigResource identifies the owner of a set of configs.
type ConfigResource struct {
	Type ResourceType `cbor:"1,keyasint"`
	Name string       `cbor:"2,keyasint"`
}

// String implements fmt.Stringer
func (c ConfigResource) String() string {
	return c.Type.String() + ":" + c.Name
}

// TopicRecord declares a topic.
type TopicRecord struct {
	Name    string    `cbor:"1,keyasint"`
	TopicID uuid.UUID `cbor:"2,keyasint"`
}

// PartitionRecord declares or replaces a partition of a topic.
type PartitionRecord struct {
	TopicID      uuid.UUID             `cbor:"1,keyasint"`
	PartitionID  int32                 `cbor:"2,keyasint"`
	Registration PartitionRegistration `cbor:"3,keyasint"`
}

// ConfigRecord sets one config key of a resource. A nil Value removes the key.
type ConfigRecord struct {
	Resource ConfigResource `cbor:"1,keyasint"`
	Name     string         `cbor:"2,keyasint"`
	Value    *string        `cbor:"3,keyasint"`
}

// ProducerIDRecord moves the producer id boundary.
type ProducerIDRecord struct {
	BrokerID       int32 `cbor:"1,keyasint"`
	BrokerEpoch    int64 `cbor:"2,keyasint"`
	NextProducerID int64 `cbor:"3,keyasint"`
}

// RemoveTopicRecord deletes a topic and its partitions.
type RemoveTopicRecord struct {
	TopicID uuid.UUID `cbor:"1,keyasint"`
}

// Record is a tagged variant: Kind names the only non-nil payload.
type Record struct {
	Kind        Kind               `cbor:"1,keyasint"`
	Topic       *TopicRecord       `cbor:"2,keyasint,omitempty"`
	Partition   *PartitionRecord   `cbor:"3,keyasint,omitempty"`
	Config      *ConfigRecord      `cbor:"4,keyasint,omitempty"`
	ProducerID  *ProducerIDRecord  `cbor:"5,keyasint,omitempty"`
	RemoveTopic *RemoveTopicRecord `cbor:"6,keyasint,omitempty"`
}

// NewTopic wraps a TopicRecord.
func NewTopic(name string, topicID uuid.UUID) Record {
	return Record{Kind: TopicKind, Topic: &TopicRecord{Name: name, TopicID: topicID}}
}

// NewPartition wraps a PartitionRecord.
func NewPartition(topicID uuid.UUID, partitionID int32, registration PartitionRegistration) Record {
	return Record{Kind: PartitionKind, Partition: &PartitionRecord{
		TopicID:      topicID,
		PartitionID:  partitionID,
		Registration: registration.Clone(),
	}}
}

// NewConfig wraps a ConfigRecord setting name to value.
func NewConfig(resource ConfigResource, name, value string) Record {
	return Record{Kind: ConfigKind, Config: &ConfigRecord{Resource: resource, Name: name, Value: &value}}
}

// NewConfigRemoval wraps a ConfigRecord removing name.
func NewConfigRemoval(resource ConfigResource, name string) Record {
	return Record{Kind: ConfigKind, Config: &ConfigRecord{Resource: resource, Name: name}}
}

// NewProducerID wraps a ProducerIDRecord.
func NewProducerID(nextProducerID int64) Record {
	return Record{Kind: ProducerIDKind, ProducerID: &ProducerIDRecord{BrokerID: -1, BrokerEpoch: -1, NextProducerID: nextProducerID}}
}

// NewRemoveTopic wraps a RemoveTopicRecord.
func NewRemoveTopic(topicID uuid.UUID) Record {
	return Record{Kind: RemoveTopicKind, RemoveTopic: &RemoveTopicRecord{TopicID: topicID}}
}

// Validate checks that the tag matches the payload.
func (r Record) Validate() error {
	set := 0
	for _, present := range []bool{r.Topic != nil, r.Partition != nil, r.Config != nil, r.ProducerID != nil, r.RemoveTopic != nil} {
		if present {
			set++
		}
	}

	if set != 1 {
		return fmt.Errorf("record of kind %s carries %d payloads", r.Kind, set)
	}

	var ok bool
	switch r.Kind {
	case TopicKind:
		ok = r.Topic != nil
	case PartitionKind:
		ok = r.Partition != nil
	case ConfigKind:
		ok = r.Config != nil
	case ProducerIDKind:
		ok = r.ProducerID != nil
	case RemoveTopicKind:
		ok = r.RemoveTopic != nil
	}

	if !ok {
		return fmt.Errorf("record of kind %s carries the wrong payload", r.Kind)
	}
	return nil
}

// String implements fmt.Stringer
func (r Record) String() string {
	switch r.Kind {
	case TopicKind:
		return fmt.Sprintf("TopicRecord(name=%s, id=%s)", r.Topic.Name, r.Topic.TopicID)
	case PartitionKind:
		return fmt.Sprintf("PartitionRecord(topic=%s, partition=%d, leader=%d)", r.Partition.TopicID, r.Partition.PartitionID, r.Partition.Registration.Leader)
	case ConfigKind:
		return fmt.Sprintf("ConfigRecord(resource=%s, name=%s)", r.Config.Resource, r.Config.Name)
	case ProducerIDKind:
		return fmt.Sprintf("ProducerIDRecord(next=%d)", r.ProducerID.NextProducerID)
	case RemoveTopicKind:
		return fmt.Sprintf("RemoveTopicRecord(id=%s)", r.RemoveTopic.TopicID)
	default:
		return r.Kind.String()
	}
}
