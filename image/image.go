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

// Package image holds an immutable, point in time view of the quorum-log
// metadata and the deltas that move it forward.
package image

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/zpllz/kafka/record"
)

// ErrInvalidDelta is returned when a delta does not apply to an image, e.g. a
// partition of an unknown topic.
var ErrInvalidDelta = errors.New("delta does not apply to the image")

// NoProducerID marks an image that never saw a producer id record.
const NoProducerID int64 = -1

// Topic is a topic of the image.
type Topic struct {
	Name       string
	ID         uuid.UUID
	Partitions map[int32]record.PartitionRegistration
}

// PartitionIDs returns the partition ids in ascending order.
func (t Topic) PartitionIDs() []int32 {
	return slices.Sorted(maps.Keys(t.Partitions))
}

func (t Topic) clone() Topic {
	partitions := make(map[int32]record.PartitionRegistration, len(t.Partitions))
	for id, registration := range t.Partitions {
		partitions[id] = registration.Clone()
	}
	return Topic{Name: t.Name, ID: t.ID, Partitions: partitions}
}

// Image is an immutable metadata snapshot. Apply never mutates the receiver:
// it shares untouched entries with the new image and copies the rest.
type Image struct {
	topics         map[uuid.UUID]Topic
	names          map[string]uuid.UUID
	configs        map[record.ConfigResource]map[string]string
	nextProducerID int64
}

// Empty is the image of a cluster without metadata.
var Empty = Image{nextProducerID: NoProducerID}

// FromRecords builds an image out of a record stream, such as the batches
// emitted by a legacy scan.
func FromRecords(records ...record.Record) (Image, error) {
	return Empty.Apply(NewDelta(records...))
}

// Topics returns the topics ordered by name.
func (i Image) Topics() []Topic {
	topics := make([]Topic, 0, len(i.topics))
	for _, name := range slices.Sorted(maps.Keys(i.names)) {
		topics = append(topics, i.topics[i.names[name]].clone())
	}
	return topics
}

// TopicByName returns the topic called name.
func (i Image) TopicByName(name string) (Topic, bool) {
	id, ok := i.names[name]
	if !ok {
		return Topic{}, false
	}
	return i.topics[id].clone(), true
}

// TopicByID returns the topic identified by id.
func (i Image) TopicByID(id uuid.UUID) (Topic, bool) {
	topic, ok := i.topics[id]
	if !ok {
		return Topic{}, false
	}
	return topic.clone(), true
}

// ConfigResources returns the resources holding at least one config, topics
// first, each group ordered by name.
func (i Image) ConfigResources() []record.ConfigResource {
	resources := slices.Collect(maps.Keys(i.configs))
	slices.SortFunc(resources, func(a, b record.ConfigResource) int {
		if a.Type != b.Type {
			return int(a.Type) - int(b.Type)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return resources
}

// Configs returns a copy of the configs of resource. The result is empty,
// never nil, when the resource has none.
func (i Image) Configs(resource record.ConfigResource) map[string]string {
	config := make(map[string]string, len(i.configs[resource]))
	maps.Copy(config, i.configs[resource])
	return config
}

// NextProducerID returns the first producer id not yet handed out, or
// NoProducerID.
func (i Image) NextProducerID() int64 {
	return i.nextProducerID
}

// IsEmpty reports whether the image holds no metadata at all.
func (i Image) IsEmpty() bool {
	return len(i.topics) == 0 && len(i.configs) == 0 && i.nextProducerID == NoProducerID
}

// Apply returns the image obtained by replaying delta on top of i.
func (i Image) Apply(delta Delta) (Image, error) {
	next := Image{
		topics:         maps.Clone(i.topics),
		names:          maps.Clone(i.names),
		configs:        maps.Clone(i.configs),
		nextProducerID: i.nextProducerID,
	}
	if next.topics == nil {
		next.topics = make(map[uuid.UUID]Topic)
		next.names = make(map[string]uuid.UUID)
	}
	if next.configs == nil {
		next.configs = make(map[record.ConfigResource]map[string]string)
	}

	// topics and config resources already copied by this Apply
	ownedTopics := make(map[uuid.UUID]struct{})
	ownedConfigs := make(map[record.ConfigResource]struct{})

	for index, r := range delta.records {
		if err := r.Validate(); err != nil {
			return i, fmt.Errorf("%w: record %d: %w", ErrInvalidDelta, index, err)
		}

		switch r.Kind {
		case record.TopicKind:
			created, err := next.addTopic(*r.Topic)
			if err != nil {
				return i, fmt.Errorf("record %d: %w", index, err)
			}
			// a repeated topic record still shares its partitions with i
			if created {
				ownedTopics[r.Topic.TopicID] = struct{}{}
			}
		case record.PartitionKind:
			topic, ok := next.topics[r.Partition.TopicID]
			if !ok {
				return i, fmt.Errorf("%w: record %d: partition %d of unknown topic %s", ErrInvalidDelta, index, r.Partition.PartitionID, r.Partition.TopicID)
			}
			if _, owned := ownedTopics[topic.ID]; !owned {
				topic = topic.clone()
				ownedTopics[topic.ID] = struct{}{}
			}
			topic.Partitions[r.Partition.PartitionID] = r.Partition.Registration.Clone()
			next.topics[topic.ID] = topic
		case record.ConfigKind:
			resource := r.Config.Resource
			config := next.configs[resource]
			if _, owned := ownedConfigs[resource]; !owned || config == nil {
				config = maps.Clone(config)
				if config == nil {
					config = make(map[string]string)
				}
				ownedConfigs[resource] = struct{}{}
			}

			if r.Config.Value == nil {
				delete(config, r.Config.Name)
			} else {
				config[r.Config.Name] = *r.Config.Value
			}

			if len(config) == 0 {
				delete(next.configs, resource)
				continue
			}
			next.configs[resource] = config
		case record.ProducerIDKind:
			next.nextProducerID = r.ProducerID.NextProducerID
		case record.RemoveTopicKind:
			topic, ok := next.topics[r.RemoveTopic.TopicID]
			if !ok {
				return i, fmt.Errorf("%w: record %d: removal of unknown topic %s", ErrInvalidDelta, index, r.RemoveTopic.TopicID)
			}
			delete(next.topics, topic.ID)
			delete(next.names, topic.Name)
			delete(next.configs, record.ConfigResource{Type: record.TopicResource, Name: topic.Name})
		}
	}
	return next, nil
}

// addTopic registers the topic of r and reports whether it was new.
func (i Image) addTopic(r record.TopicRecord) (bool, error) {
	if existing, ok := i.topics[r.TopicID]; ok {
		if existing.Name != r.Name {
			return false, fmt.Errorf("%w: topic %s is already named %s", ErrInvalidDelta, r.TopicID, existing.Name)
		}
		return false, nil
	}

	if id, ok := i.names[r.Name]; ok {
		return false, fmt.Errorf("%w: topic name %s is already used by %s", ErrInvalidDelta, r.Name, id)
	}

	i.topics[r.TopicID] = Topic{Name: r.Name, ID: r.TopicID, Partitions: make(map[int32]record.PartitionRegistration)}
	i.names[r.Name] = r.TopicID
	return true, nil
}
