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

package topics

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/record"
)

// Topic is a topic as stored in the legacy layout.
type Topic struct {
	Name       string
	TopicID    uuid.UUID
	Partitions map[int32]record.PartitionRegistration
	// Stateless lists the partitions of the assignment whose state node is
	// missing or unreadable.
	Stateless []int32
	// Version is the store version of the topic node.
	Version int64
}

// PartitionIDs returns the partition ids in ascending order.
func (t Topic) PartitionIDs() []int32 {
	ids := make([]int32, 0, len(t.Partitions))
	for id := range t.Partitions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ReadTopic reads a topic and the state of its partitions.
//
// A partition listed in the assignment without a state node is left out of
// the returned topic and reported in gaps as a *errors.ScanError; err is
// reserved for failures that prevent reading the topic at all.
// errors.ErrTopicNotFound is returned when the topic node is absent.
func ReadTopic(ctx context.Context, store legacy.Store, name string) (topic Topic, gaps []error, err error) {
	node, err := store.Get(ctx, layout.TopicPath(name))
	if err != nil {
		if errors.Is(err, legacy.ErrNodeNotFound) {
			return Topic{}, nil, fmt.Errorf("%w: %s", gerrors.ErrTopicNotFound, name)
		}
		return Topic{}, nil, fmt.Errorf("failed to read topic %s: %w", name, err)
	}

	assignment, err := layout.DecodeTopic(node.Path, node.Data)
	if err != nil {
		return Topic{}, nil, err
	}

	topic = Topic{
		Name:       name,
		TopicID:    assignment.TopicID,
		Partitions: make(map[int32]record.PartitionRegistration, len(assignment.Partitions)),
		Version:    node.Version,
	}

	for partition, replicas := range assignment.Partitions {
		path := layout.PartitionStatePath(name, partition)
		stateNode, err := store.Get(ctx, path)
		if err != nil {
			if errors.Is(err, legacy.ErrNodeNotFound) {
				gaps = append(gaps, &gerrors.ScanError{
					Entity: fmt.Sprintf("%s-%d", name, partition),
					Err:    fmt.Errorf("%w: assignment without partition state", gerrors.ErrPartitionNotFound),
				})
				topic.Stateless = append(topic.Stateless, partition)
				continue
			}
			return Topic{}, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		registration, err := layout.DecodePartitionState(path, stateNode.Data, replicas)
		if err != nil {
			gaps = append(gaps, &gerrors.ScanError{Entity: fmt.Sprintf("%s-%d", name, partition), Err: err})
			topic.Stateless = append(topic.Stateless, partition)
			continue
		}
		topic.Partitions[partition] = registration
	}
	slices.Sort(topic.Stateless)
	return topic, gaps, nil
}

// ListTopics returns the names of the topics stored in the legacy layout.
func ListTopics(ctx context.Context, store legacy.Store) ([]string, error) {
	names, err := store.Children(ctx, layout.TopicsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return names, nil
}

// storedPartitions lists the partition state nodes present under a topic,
// whether or not its assignment mentions them.
func storedPartitions(ctx context.Context, store legacy.Store, name string) ([]int32, error) {
	children, err := store.Children(ctx, layout.TopicPartitionsPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %s: %w", name, err)
	}

	partitions := make([]int32, 0, len(children))
	for _, child := range children {
		if id, ok := layout.ParseID(child); ok {
			partitions = append(partitions, id)
		}
	}
	return partitions, nil
}
