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

// Package topics mirrors topics and their partitions into the legacy layout.
package topics

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/internal/validation"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/txn"
)

// Writer creates, updates and deletes topics in the legacy layout. Every
// write goes through the fencing executor and returns the next state.
type Writer struct {
	executor *txn.Executor
	logger   log.Logger
}

// NewWriter creates a Writer
func NewWriter(executor *txn.Executor, logger log.Logger) *Writer {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Writer{executor: executor, logger: logger}
}

// CreateTopic writes the assignment, an empty config and the partition states
// of a new topic.
//
// Creating a topic that already exists with the same topic id is a no-op and
// returns s unchanged. An existing topic with another id yields
// errors.ErrTopicIDMismatch.
func (w *Writer) CreateTopic(ctx context.Context, name string, topicID uuid.UUID, partitions map[int32]record.PartitionRegistration, s state.LeadershipState) (state.LeadershipState, error) {
	if err := validation.NewTopicNameValidator(name).Validate(); err != nil {
		return s, err
	}

	if len(partitions) == 0 {
		return s, fmt.Errorf("%w: topic %s has no partitions", gerrors.ErrInvalidPartition, name)
	}

	if err := validatePartitions(name, partitions); err != nil {
		return s, err
	}

	store := w.executor.Store()
	existing, err := store.Get(ctx, layout.TopicPath(name))
	switch {
	case err == nil:
		assignment, err := layout.DecodeTopic(existing.Path, existing.Data)
		if err != nil {
			return s, err
		}

		if assignment.TopicID != topicID {
			return s, fmt.Errorf("%w: %s is stored with id %s, not %s", gerrors.ErrTopicIDMismatch, name, assignment.TopicID, topicID)
		}

		if !sameAssignment(assignment, partitions) {
			w.logger.Warnf("topic %s already exists with a different assignment, leaving it untouched", name)
		}
		return s, nil
	case !errors.Is(err, legacy.ErrNodeNotFound):
		return s, fmt.Errorf("failed to read topic %s: %w", name, err)
	}

	assignment, err := layout.EncodeTopic(topicID, partitions)
	if err != nil {
		return s, err
	}

	ops := []legacy.Op{legacy.Create(layout.TopicPath(name), assignment)}

	configPath := layout.ConfigEntityPath(record.ConfigResource{Type: record.TopicResource, Name: name})
	if _, err := store.Get(ctx, configPath); errors.Is(err, legacy.ErrNodeNotFound) {
		config, err := layout.EncodeConfig(nil)
		if err != nil {
			return s, err
		}
		ops = append(ops, legacy.Create(configPath, config))
	} else if err != nil {
		return s, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	for _, partition := range sortedIDs(partitions) {
		data, err := layout.EncodePartitionState(partitions[partition], s.LegacyControllerEpoch())
		if err != nil {
			return s, err
		}
		ops = append(ops, legacy.Create(layout.PartitionStatePath(name, partition), data))
	}

	result, err := w.executor.Execute(ctx, ops, s)
	if err != nil {
		return s, err
	}

	w.logger.Debugf("created topic %s (%s) with %d partitions", name, topicID, len(partitions))
	return result.State, nil
}

// CreateTopicPartitions adds partitions to an existing topic: the assignment
// is rewritten and the new partition states created.
func (w *Writer) CreateTopicPartitions(ctx context.Context, name string, partitions map[int32]record.PartitionRegistration, s state.LeadershipState) (state.LeadershipState, error) {
	if len(partitions) == 0 {
		return s, nil
	}

	if err := validatePartitions(name, partitions); err != nil {
		return s, err
	}

	node, assignment, err := w.readAssignment(ctx, name)
	if err != nil {
		return s, err
	}

	merged := toRegistrations(assignment)
	for partition, registration := range partitions {
		if _, ok := merged[partition]; ok {
			return s, fmt.Errorf("%w: partition %s-%d already exists", gerrors.ErrInvalidPartition, name, partition)
		}
		merged[partition] = registration
	}

	data, err := layout.EncodeTopic(assignment.TopicID, merged)
	if err != nil {
		return s, err
	}

	ops := []legacy.Op{legacy.Set(layout.TopicPath(name), data, node.Version)}
	for _, partition := range sortedIDs(partitions) {
		stateData, err := layout.EncodePartitionState(partitions[partition], s.LegacyControllerEpoch())
		if err != nil {
			return s, err
		}
		ops = append(ops, legacy.Create(layout.PartitionStatePath(name, partition), stateData))
	}

	result, err := w.executor.Execute(ctx, ops, s)
	if err != nil {
		return s, err
	}

	w.logger.Debugf("added %d partitions to topic %s", len(partitions), name)
	return result.State, nil
}

// UpdateTopic rewrites the replica assignment of a topic, e.g. to follow a
// reassignment. Writing the assignment already stored is a no-op.
func (w *Writer) UpdateTopic(ctx context.Context, name string, topicID uuid.UUID, partitions map[int32]record.PartitionRegistration, s state.LeadershipState) (state.LeadershipState, error) {
	node, assignment, err := w.readAssignment(ctx, name)
	if err != nil {
		return s, err
	}

	if assignment.TopicID != topicID {
		return s, fmt.Errorf("%w: %s is stored with id %s, not %s", gerrors.ErrTopicIDMismatch, name, assignment.TopicID, topicID)
	}

	if sameAssignment(assignment, partitions) {
		return s, nil
	}

	data, err := layout.EncodeTopic(topicID, partitions)
	if err != nil {
		return s, err
	}

	result, err := w.executor.Execute(ctx, []legacy.Op{legacy.Set(layout.TopicPath(name), data, node.Version)}, s)
	if err != nil {
		return s, err
	}

	w.logger.Debugf("updated the assignment of topic %s", name)
	return result.State, nil
}

// UpdateTopicPartitions overwrites partition states. Each write is
// conditional on the version of the partition state read beforehand, so
// writers racing on the same partition are fenced while writers on different
// partitions do not interfere.
//
// A missing partition state yields errors.ErrPartitionNotFound. A
// registration whose leader is not a replica, or whose leader epoch goes
// backwards, yields errors.ErrInvalidPartition. Partitions already holding
// the given state are skipped.
func (w *Writer) UpdateTopicPartitions(ctx context.Context, updates map[string]map[int32]record.PartitionRegistration, s state.LeadershipState) (state.LeadershipState, error) {
	store := w.executor.Store()
	ops := make([]legacy.Op, 0)

	for _, name := range slices.Sorted(maps.Keys(updates)) {
		partitions := updates[name]
		for _, partition := range sortedIDs(partitions) {
			registration := partitions[partition]
			if err := registration.Validate(); err != nil {
				return s, fmt.Errorf("%w: %s-%d: %w", gerrors.ErrInvalidPartition, name, partition, err)
			}

			path := layout.PartitionStatePath(name, partition)
			node, err := store.Get(ctx, path)
			if err != nil {
				if errors.Is(err, legacy.ErrNodeNotFound) {
					return s, fmt.Errorf("%w: %s-%d", gerrors.ErrPartitionNotFound, name, partition)
				}
				return s, fmt.Errorf("failed to read %s: %w", path, err)
			}

			current, err := layout.DecodePartitionState(path, node.Data, layout.Assignment{Replicas: registration.Replicas})
			if err != nil {
				return s, err
			}

			if registration.LeaderEpoch < current.LeaderEpoch {
				return s, fmt.Errorf("%w: %s-%d leader epoch %d is lower than the stored %d",
					gerrors.ErrInvalidPartition, name, partition, registration.LeaderEpoch, current.LeaderEpoch)
			}

			if current.SameState(registration) {
				continue
			}

			data, err := layout.EncodePartitionState(registration, s.LegacyControllerEpoch())
			if err != nil {
				return s, err
			}
			ops = append(ops, legacy.Set(path, data, node.Version))
		}
	}

	result, err := w.executor.Execute(ctx, ops, s)
	if err != nil {
		return s, err
	}

	if len(ops) > 0 {
		w.logger.Debugf("updated %d partition states", len(ops))
	}
	return result.State, nil
}

// DeleteTopic removes a topic, its partition states and its config.
// errors.ErrTopicNotFound is returned when the topic is absent.
func (w *Writer) DeleteTopic(ctx context.Context, name string, s state.LeadershipState) (state.LeadershipState, error) {
	store := w.executor.Store()
	node, err := store.Get(ctx, layout.TopicPath(name))
	if err != nil {
		if errors.Is(err, legacy.ErrNodeNotFound) {
			return s, fmt.Errorf("%w: %s", gerrors.ErrTopicNotFound, name)
		}
		return s, fmt.Errorf("failed to read topic %s: %w", name, err)
	}

	partitions, err := storedPartitions(ctx, store, name)
	if err != nil {
		return s, err
	}

	configPath := layout.ConfigEntityPath(record.ConfigResource{Type: record.TopicResource, Name: name})
	_, err = store.Get(ctx, configPath)
	if err != nil && !errors.Is(err, legacy.ErrNodeNotFound) {
		return s, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	result, err := w.executor.Execute(ctx, layout.DeleteTopicOps(name, node.Version, partitions, err == nil), s)
	if err != nil {
		return s, err
	}

	w.logger.Debugf("deleted topic %s and %d partitions", name, len(partitions))
	return result.State, nil
}

// ReadTopic reads a topic back from the legacy store.
func (w *Writer) ReadTopic(ctx context.Context, name string) (Topic, error) {
	topic, gaps, err := ReadTopic(ctx, w.executor.Store(), name)
	if err != nil {
		return Topic{}, err
	}
	return topic, multierr.Combine(gaps...)
}

func (w *Writer) readAssignment(ctx context.Context, name string) (legacy.Node, layout.TopicAssignment, error) {
	node, err := w.executor.Store().Get(ctx, layout.TopicPath(name))
	if err != nil {
		if errors.Is(err, legacy.ErrNodeNotFound) {
			return legacy.Node{}, layout.TopicAssignment{}, fmt.Errorf("%w: %s", gerrors.ErrTopicNotFound, name)
		}
		return legacy.Node{}, layout.TopicAssignment{}, fmt.Errorf("failed to read topic %s: %w", name, err)
	}

	assignment, err := layout.DecodeTopic(node.Path, node.Data)
	if err != nil {
		return legacy.Node{}, layout.TopicAssignment{}, err
	}
	return node, assignment, nil
}

func validatePartitions(name string, partitions map[int32]record.PartitionRegistration) error {
	for partition, registration := range partitions {
		if partition < 0 {
			return fmt.Errorf("%w: %s-%d has a negative id", gerrors.ErrInvalidPartition, name, partition)
		}
		if err := registration.Validate(); err != nil {
			return fmt.Errorf("%w: %s-%d: %w", gerrors.ErrInvalidPartition, name, partition, err)
		}
	}
	return nil
}

func sameAssignment(assignment layout.TopicAssignment, partitions map[int32]record.PartitionRegistration) bool {
	if len(assignment.Partitions) != len(partitions) {
		return false
	}

	for partition, registration := range partitions {
		stored, ok := assignment.Partitions[partition]
		if !ok {
			return false
		}

		if !registration.SameAssignment(record.PartitionRegistration{
			Replicas:         stored.Replicas,
			AddingReplicas:   stored.AddingReplicas,
			RemovingReplicas: stored.RemovingReplicas,
		}) {
			return false
		}
	}
	return true
}

func toRegistrations(assignment layout.TopicAssignment) map[int32]record.PartitionRegistration {
	registrations := make(map[int32]record.PartitionRegistration, len(assignment.Partitions))
	for partition, stored := range assignment.Partitions {
		registrations[partition] = record.PartitionRegistration{
			Replicas:         stored.Replicas,
			AddingReplicas:   stored.AddingReplicas,
			RemovingReplicas: stored.RemovingReplicas,
		}
	}
	return registrations
}

func sortedIDs[V any](partitions map[int32]V) []int32 {
	return slices.Sorted(maps.Keys(partitions))
}
