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

// Package reconcile keeps the legacy store in line with the quorum-log
// metadata image, either from a full snapshot or from a delta.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"

	"github.com/zpllz/kafka/configs"
	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/image"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/producerid"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/secret"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/topics"
	"github.com/zpllz/kafka/txn"
)

// Reconciler computes the legacy writes mirroring an image. It never applies
// them itself: every write is handed to an OperationConsumer.
type Reconciler struct {
	executor    *txn.Executor
	logger      log.Logger
	encoder     secret.Encoder
	sensitivity secret.Sensitivity

	topics      *topics.Writer
	configs     *configs.Writer
	producerIDs *producerid.Bridge
}

// NewReconciler creates a Reconciler writing through executor
func NewReconciler(executor *txn.Executor, opts ...Option) *Reconciler {
	reconciler := &Reconciler{
		executor:    executor,
		logger:      log.DefaultLogger,
		sensitivity: secret.DefaultSensitivity,
	}

	for _, opt := range opts {
		opt.Apply(reconciler)
	}

	reconciler.topics = topics.NewWriter(executor, reconciler.logger)
	reconciler.configs = configs.NewWriter(executor,
		configs.WithLogger(reconciler.logger),
		configs.WithEncoder(reconciler.encoder),
		configs.WithSensitivity(reconciler.sensitivity))
	reconciler.producerIDs = producerid.NewBridge(executor, reconciler.logger)
	return reconciler
}

// HandleLoadSnapshot compares img with the legacy store and emits the writes
// making the store match it: topics and partitions are created or updated,
// topics missing from img are deleted, changed config resources are written
// and broker config resources missing from img are deleted. The producer id
// boundary is written when img moved past the stored block.
//
// Entities that cannot be mirrored, such as a topic without partitions, are
// left untouched and returned as *errors.ReconciliationGap values combined
// with multierr once every other write was emitted.
func (r *Reconciler) HandleLoadSnapshot(ctx context.Context, img image.Image, consumer OperationConsumer) error {
	e := newEmitter(consumer)
	store := r.executor.Store()

	names, err := topics.ListTopics(ctx, store)
	if err != nil {
		return err
	}

	stored := make(map[string]topics.Topic, len(names))
	unreadable := mapset.NewThreadUnsafeSet[string]()
	for _, name := range names {
		topic, _, err := topics.ReadTopic(ctx, store, name)
		if err != nil {
			switch {
			case errors.Is(err, gerrors.ErrMalformedNode):
				unreadable.Add(name)
				continue
			case errors.Is(err, gerrors.ErrTopicNotFound):
				continue
			}
			return err
		}
		stored[name] = topic
	}

	var gaps []error
	wanted := mapset.NewThreadUnsafeSet[string]()
	// topics written from scratch by this reconciliation
	fresh := mapset.NewThreadUnsafeSet[string]()
	// topics left as they are in the legacy store
	skipped := mapset.NewThreadUnsafeSet[string]()

	for _, topic := range img.Topics() {
		wanted.Add(topic.Name)
		if len(topic.Partitions) == 0 {
			gaps = append(gaps, noPartitions(topic))
			skipped.Add(topic.Name)
			continue
		}

		if unreadable.Contains(topic.Name) {
			gaps = append(gaps, &gerrors.ReconciliationGap{Entity: "topic " + topic.Name, Reason: "legacy topic node is unreadable"})
			skipped.Add(topic.Name)
			continue
		}

		current, ok := stored[topic.Name]
		if ok && current.TopicID != topic.ID {
			if err := r.emitDeleteTopic(ctx, e, topic.Name); err != nil {
				return err
			}
			ok = false
		}

		if !ok {
			fresh.Add(topic.Name)
			if err := r.emitCreateTopic(ctx, e, topic); err != nil {
				return err
			}
			continue
		}

		topicGaps, err := r.syncTopic(ctx, e, topic, current.Partitions, mapset.NewThreadUnsafeSet(current.Stateless...))
		if err != nil {
			return err
		}
		gaps = append(gaps, topicGaps...)
	}

	for _, name := range names {
		if wanted.Contains(name) {
			continue
		}
		if err := r.emitDeleteTopic(ctx, e, name); err != nil {
			return err
		}
	}

	for _, topic := range img.Topics() {
		if skipped.Contains(topic.Name) {
			continue
		}

		resource := record.ConfigResource{Type: record.TopicResource, Name: topic.Name}
		config := img.Configs(resource)
		if fresh.Contains(topic.Name) {
			if len(config) > 0 {
				if err := r.emitWriteConfig(ctx, e, resource, config); err != nil {
					return err
				}
			}
			continue
		}

		if err := r.syncConfig(ctx, e, resource, config); err != nil {
			return err
		}
	}

	brokerResources := mapset.NewThreadUnsafeSet[record.ConfigResource]()
	for _, resource := range img.ConfigResources() {
		if resource.Type != record.BrokerResource {
			continue
		}
		brokerResources.Add(resource)
		if err := r.syncConfig(ctx, e, resource, img.Configs(resource)); err != nil {
			return err
		}
	}

	storedResources, err := r.configs.ListResources(ctx, record.BrokerResource)
	if err != nil {
		return err
	}

	for _, resource := range storedResources {
		if brokerResources.Contains(resource) {
			continue
		}
		if err := r.emitDeleteConfig(ctx, e, resource); err != nil {
			return err
		}
	}

	if err := r.syncProducerID(ctx, e, img.NextProducerID()); err != nil {
		return err
	}

	r.logger.Infof("reconciled snapshot of %d topics into the legacy store: %s", len(img.Topics()), e)
	return r.report(gaps)
}

// HandleDelta applies delta to prev and emits the writes mirroring the
// entities it touched. The legacy store is assumed to hold prev: only the
// difference between prev and the returned image is written.
//
// Gaps are reported like HandleLoadSnapshot does.
func (r *Reconciler) HandleDelta(ctx context.Context, prev image.Image, delta image.Delta, consumer OperationConsumer) (image.Image, error) {
	next, err := prev.Apply(delta)
	if err != nil {
		return prev, err
	}

	e := newEmitter(consumer)
	var gaps []error
	// topics absent from the legacy store after this delta
	absent := mapset.NewThreadUnsafeSet[string]()

	for _, id := range delta.TopicIDs() {
		before, hadBefore := prev.TopicByID(id)
		after, hasAfter := next.TopicByID(id)
		written := hadBefore && len(before.Partitions) > 0

		switch {
		case !hasAfter:
			absent.Add(before.Name)
			if written {
				if err := r.emitDeleteTopic(ctx, e, before.Name); err != nil {
					return prev, err
				}
			}
		case len(after.Partitions) == 0:
			absent.Add(after.Name)
			gaps = append(gaps, noPartitions(after))
		case !written:
			absent.Remove(after.Name)
			if err := r.emitCreateTopic(ctx, e, after); err != nil {
				return prev, err
			}
		default:
			topicGaps, err := r.syncTopic(ctx, e, after, before.Partitions, mapset.NewThreadUnsafeSet[int32]())
			if err != nil {
				return prev, err
			}
			gaps = append(gaps, topicGaps...)
		}
	}

	for _, resource := range delta.ConfigResources() {
		config := next.Configs(resource)
		if resource.Type == record.TopicResource {
			topic, ok := next.TopicByName(resource.Name)
			if !ok || len(topic.Partitions) == 0 || absent.Contains(resource.Name) {
				continue
			}
			if err := r.emitWriteConfig(ctx, e, resource, config); err != nil {
				return prev, err
			}
			continue
		}

		if len(config) == 0 {
			if err := r.emitDeleteConfig(ctx, e, resource); err != nil {
				return prev, err
			}
			continue
		}

		if err := r.emitWriteConfig(ctx, e, resource, config); err != nil {
			return prev, err
		}
	}

	if delta.TouchesProducerID() && next.NextProducerID() != prev.NextProducerID() {
		if err := r.emitWriteProducerID(ctx, e, next.NextProducerID()); err != nil {
			return prev, err
		}
	}

	r.logger.Debugf("reconciled delta of %d records into the legacy store: %s", len(delta.Records()), e)
	return next, r.report(gaps)
}

// syncTopic emits the writes turning the partitions current of a stored topic
// into those of topic. Partitions listed in stateless have an assignment but
// no state in the legacy store and are reported rather than written.
func (r *Reconciler) syncTopic(ctx context.Context, e *emitter, topic image.Topic, current map[int32]record.PartitionRegistration, stateless mapset.Set[int32]) ([]error, error) {
	var gaps []error
	created := make(map[int32]record.PartitionRegistration)
	changed := make(map[int32]record.PartitionRegistration)
	reassigned := false

	for _, id := range topic.PartitionIDs() {
		want := topic.Partitions[id]
		if stateless.Contains(id) {
			gaps = append(gaps, &gerrors.ReconciliationGap{
				Entity: fmt.Sprintf("%s-%d", topic.Name, id),
				Reason: "partition state is missing from the legacy store",
			})
			continue
		}

		have, ok := current[id]
		if !ok {
			created[id] = want
			continue
		}

		if !have.SameAssignment(want) {
			reassigned = true
		}

		if !have.SameState(want) {
			changed[id] = want
		}
	}

	name := topic.Name
	if len(created) > 0 {
		err := e.emit(ctx, CreatePartitions, fmt.Sprintf("create %d partitions of topic %s", len(created), name),
			func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
				return r.topics.CreateTopicPartitions(ctx, name, created, s)
			})
		if err != nil {
			return nil, err
		}
	}

	if reassigned {
		err := e.emit(ctx, UpdateTopic, "update the assignment of topic "+name,
			func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
				return r.topics.UpdateTopic(ctx, name, topic.ID, topic.Partitions, s)
			})
		if err != nil {
			return nil, err
		}
	}

	if len(changed) > 0 {
		err := e.emit(ctx, UpdatePartitions, fmt.Sprintf("update %d partitions of topic %s", len(changed), name),
			func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
				return r.topics.UpdateTopicPartitions(ctx, map[string]map[int32]record.PartitionRegistration{name: changed}, s)
			})
		if err != nil {
			return nil, err
		}
	}
	return gaps, nil
}

func (r *Reconciler) syncConfig(ctx context.Context, e *emitter, resource record.ConfigResource, config map[string]string) error {
	needed, err := r.configs.NeedsWrite(ctx, resource, config)
	if err != nil {
		return err
	}

	if !needed {
		return nil
	}
	return r.emitWriteConfig(ctx, e, resource, config)
}

func (r *Reconciler) syncProducerID(ctx context.Context, e *emitter, next int64) error {
	if next == image.NoProducerID {
		return nil
	}

	block, _, err := producerid.ReadBlock(ctx, r.executor.Store())
	if err != nil {
		return err
	}

	if block != nil {
		switch {
		case *block == producerid.QuorumBlock(next), block.NextBlockFirstID() == next:
			return nil
		case next < block.NextBlockFirstID():
			r.logger.Warnf("legacy producer id block ends at %d, past the image boundary %d, leaving it", block.LastProducerID(), next)
			return nil
		}
	}
	return r.emitWriteProducerID(ctx, e, next)
}

func (r *Reconciler) emitCreateTopic(ctx context.Context, e *emitter, topic image.Topic) error {
	return e.emit(ctx, CreateTopic, fmt.Sprintf("create topic %s (%s) with %d partitions", topic.Name, topic.ID, len(topic.Partitions)),
		func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
			return r.topics.CreateTopic(ctx, topic.Name, topic.ID, topic.Partitions, s)
		})
}

func (r *Reconciler) emitDeleteTopic(ctx context.Context, e *emitter, name string) error {
	return e.emit(ctx, DeleteTopic, "delete topic "+name,
		func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
			return r.topics.DeleteTopic(ctx, name, s)
		})
}

func (r *Reconciler) emitWriteConfig(ctx context.Context, e *emitter, resource record.ConfigResource, config map[string]string) error {
	return e.emit(ctx, UpdateConfig, fmt.Sprintf("write %d configs of %s", len(config), resource),
		func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
			return r.configs.WriteConfig(ctx, resource, config, s)
		})
}

func (r *Reconciler) emitDeleteConfig(ctx context.Context, e *emitter, resource record.ConfigResource) error {
	return e.emit(ctx, DeleteConfig, "delete configs of "+resource.String(),
		func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
			return r.configs.DeleteConfig(ctx, resource, s)
		})
}

func (r *Reconciler) emitWriteProducerID(ctx context.Context, e *emitter, next int64) error {
	return e.emit(ctx, UpdateProducerID, fmt.Sprintf("write producer id boundary %d", next),
		func(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
			return r.producerIDs.WriteProducerID(ctx, next, s)
		})
}

func (r *Reconciler) report(gaps []error) error {
	for _, gap := range gaps {
		r.logger.Warn(gap)
	}
	return multierr.Combine(gaps...)
}

func noPartitions(topic image.Topic) error {
	return &gerrors.ReconciliationGap{Entity: "topic " + topic.Name, Reason: "topic has no partitions"}
}
