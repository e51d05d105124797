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

// Package migration exposes the operations driving the move of the cluster
// metadata from the legacy store to the quorum-log control plane.
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/zpllz/kafka/image"
	internalmetric "github.com/zpllz/kafka/internal/metric"
	"github.com/zpllz/kafka/leadership"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/producerid"
	"github.com/zpllz/kafka/reconcile"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/scan"
	"github.com/zpllz/kafka/secret"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/topics"
	"github.com/zpllz/kafka/txn"
)

// StateStore keeps a local copy of the latest leadership state. The legacy
// store stays authoritative; a failed save is only logged.
type StateStore interface {
	Save(ctx context.Context, s state.LeadershipState) error
}

// Client is the single entry point of the migration. Every write takes the
// current LeadershipState and returns the next one; the caller keeps it.
//
// A Client holds no mutable state and can be shared. Writes against the same
// cluster must still be serialized by the caller.
type Client struct {
	config        *Config
	logger        log.Logger
	meterProvider metric.MeterProvider
	encoder       secret.Encoder
	sensitivity   secret.Sensitivity
	clock         func() time.Time
	stateStore    StateStore

	executor    *txn.Executor
	arbiter     *leadership.Arbiter
	topics      *topics.Writer
	producerIDs *producerid.Bridge
	scanner     *scan.Reader
	reconciler  *reconcile.Reconciler
}

// New creates a Client over store
func New(store legacy.Store, config *Config, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("legacy store is required")
	}

	if config == nil {
		config = new(Config)
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		config:      config,
		logger:      log.DefaultLogger,
		sensitivity: secret.DefaultSensitivity,
		clock:       time.Now,
	}

	for _, opt := range opts {
		opt.Apply(client)
	}

	if client.encoder == nil && config.EncoderSecret != "" {
		encoder, err := secret.NewAESEncoder(config.EncoderSecret)
		if err != nil {
			return nil, err
		}
		client.encoder = encoder
	}

	executorOpts := []txn.Option{txn.WithLogger(client.logger), txn.WithClock(client.clock)}
	if client.meterProvider != nil {
		txnMetric, err := internalmetric.NewTxnMetric(internalmetric.NewProviderWith(client.meterProvider).Meter())
		if err != nil {
			return nil, err
		}
		executorOpts = append(executorOpts, txn.WithMetric(txnMetric))
	}

	client.executor = txn.NewExecutor(store, executorOpts...)
	client.arbiter = leadership.NewArbiter(client.executor, client.logger)
	client.topics = topics.NewWriter(client.executor, client.logger)
	client.producerIDs = producerid.NewBridge(client.executor, client.logger)
	client.scanner = scan.NewReader(store,
		scan.WithLogger(client.logger),
		scan.WithEncoder(client.encoder),
		scan.WithSensitivity(client.sensitivity),
		scan.WithBatchSize(config.BatchSize),
		scan.WithParallelism(config.ScanParallelism))
	client.reconciler = reconcile.NewReconciler(client.executor,
		reconcile.WithLogger(client.logger),
		reconcile.WithEncoder(client.encoder),
		reconcile.WithSensitivity(client.sensitivity))
	return client, nil
}

// GetOrCreateMigrationRecoveryState loads the state recorded in the legacy
// store, or records initial there when the migration never started.
func (c *Client) GetOrCreateMigrationRecoveryState(ctx context.Context, initial state.LeadershipState) (state.LeadershipState, error) {
	if initial.QuorumControllerID() == state.UnknownID {
		initial = initial.WithNewQuorumController(c.config.ControllerID, initial.QuorumControllerEpoch())
	}
	next, err := c.executor.GetOrCreateMigrationState(ctx, initial)
	return c.persist(ctx, next, err)
}

// SetMigrationRecoveryState records s in the legacy store.
func (c *Client) SetMigrationRecoveryState(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
	next, err := c.executor.SetMigrationState(ctx, s)
	return c.persist(ctx, next, err)
}

// ClaimControllerLeadership registers the quorum controller of s as the
// legacy controller. See leadership.Arbiter.Claim.
func (c *Client) ClaimControllerLeadership(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
	next, err := c.arbiter.Claim(ctx, s)
	return c.persist(ctx, next, err)
}

// ReleaseControllerLeadership gives the legacy controller registration up.
// See leadership.Arbiter.Release.
func (c *Client) ReleaseControllerLeadership(ctx context.Context, s state.LeadershipState) (state.LeadershipState, error) {
	next, err := c.arbiter.Release(ctx, s)
	return c.persist(ctx, next, err)
}

// ReadAllMetadata scans the whole legacy store. See scan.Reader.ReadAllMetadata.
func (c *Client) ReadAllMetadata(ctx context.Context, batchSink record.BatchSink, brokerSink record.BrokerSink) error {
	return c.scanner.ReadAllMetadata(ctx, batchSink, brokerSink)
}

// MigrateTopics scans topics, partitions and topic configs only.
func (c *Client) MigrateTopics(ctx context.Context, batchSink record.BatchSink, brokerSink record.BrokerSink) error {
	return c.scanner.MigrateTopics(ctx, batchSink, brokerSink)
}

// MigrateProducerID emits the producer id boundary of the legacy allocator.
func (c *Client) MigrateProducerID(ctx context.Context, batchSink record.BatchSink) error {
	return c.producerIDs.MigrateProducerID(ctx, batchSink)
}

// WriteProducerID hands the producer id boundary next back to the legacy
// allocator.
func (c *Client) WriteProducerID(ctx context.Context, next int64, s state.LeadershipState) (state.LeadershipState, error) {
	return c.producerIDs.WriteProducerID(ctx, next, s)
}

// CreateTopic writes a new topic and its partitions.
func (c *Client) CreateTopic(ctx context.Context, name string, topicID uuid.UUID, partitions map[int32]record.PartitionRegistration, s state.LeadershipState) (state.LeadershipState, error) {
	return c.topics.CreateTopic(ctx, name, topicID, partitions, s)
}

// CreateTopicPartitions adds partitions to an existing topic.
func (c *Client) CreateTopicPartitions(ctx context.Context, name string, partitions map[int32]record.PartitionRegistration, s state.LeadershipState) (state.LeadershipState, error) {
	return c.topics.CreateTopicPartitions(ctx, name, partitions, s)
}

// UpdateTopic rewrites the replica assignment of a topic.
func (c *Client) UpdateTopic(ctx context.Context, name string, topicID uuid.UUID, partitions map[int32]record.PartitionRegistration, s state.LeadershipState) (state.LeadershipState, error) {
	return c.topics.UpdateTopic(ctx, name, topicID, partitions, s)
}

// UpdateTopicPartitions overwrites partition states, keyed by topic name.
func (c *Client) UpdateTopicPartitions(ctx context.Context, updates map[string]map[int32]record.PartitionRegistration, s state.LeadershipState) (state.LeadershipState, error) {
	return c.topics.UpdateTopicPartitions(ctx, updates, s)
}

// DeleteTopic removes a topic with its partitions and configs.
func (c *Client) DeleteTopic(ctx context.Context, name string, s state.LeadershipState) (state.LeadershipState, error) {
	return c.topics.DeleteTopic(ctx, name, s)
}

// HandleLoadSnapshot mirrors a full image into the legacy store.
func (c *Client) HandleLoadSnapshot(ctx context.Context, img image.Image, consumer reconcile.OperationConsumer) error {
	return c.reconciler.HandleLoadSnapshot(ctx, img, consumer)
}

// HandleDelta mirrors the changes of delta on top of prev into the legacy
// store and returns the resulting image.
func (c *Client) HandleDelta(ctx context.Context, prev image.Image, delta image.Delta, consumer reconcile.OperationConsumer) (image.Image, error) {
	return c.reconciler.HandleDelta(ctx, prev, delta, consumer)
}

// persist saves the outcome of a successful leadership change.
func (c *Client) persist(ctx context.Context, s state.LeadershipState, err error) (state.LeadershipState, error) {
	if err != nil || c.stateStore == nil {
		return s, err
	}

	if serr := c.stateStore.Save(ctx, s); serr != nil {
		c.logger.Warnf("failed to save the migration state locally: %v", serr)
	}
	return s, nil
}
