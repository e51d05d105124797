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

// Package scan walks the legacy store once and turns its content into
// migration records.
package scan

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/producerid"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/secret"
	"github.com/zpllz/kafka/topics"
)

const defaultParallelism = 8

// Reader reads the whole legacy store without writing to it. Reads take no
// lock and observe whatever the store returns at the time.
type Reader struct {
	store       legacy.Store
	logger      log.Logger
	encoder     secret.Encoder
	sensitivity secret.Sensitivity
	batchSize   int
	parallelism int
}

// NewReader creates a Reader
func NewReader(store legacy.Store, opts ...Option) *Reader {
	reader := &Reader{
		store:       legacy.WaitOnDisconnect(store),
		logger:      log.DefaultLogger,
		sensitivity: secret.DefaultSensitivity,
		batchSize:   record.DefaultMaxBatchSize,
		parallelism: defaultParallelism,
	}

	for _, opt := range opts {
		opt.Apply(reader)
	}
	return reader
}

// ReadAllMetadata emits topics, partitions, topic and broker configs and the
// producer id boundary as batches, and reports every registered or referenced
// broker id once through brokerSink.
//
// A topic record always precedes its partitions and configs. An empty store
// yields no batch and no broker. Inconsistent entities are skipped and
// returned as *errors.ScanError values combined with multierr once the whole
// store was read; any other error aborts the scan.
func (r *Reader) ReadAllMetadata(ctx context.Context, batchSink record.BatchSink, brokerSink record.BrokerSink) error {
	batcher := record.NewBatcher(batchSink, r.batchSize)
	brokers := mapset.NewThreadUnsafeSet[int32]()

	registered, err := r.store.Children(ctx, layout.BrokerIDsPath)
	if err != nil {
		return fmt.Errorf("failed to list brokers: %w", err)
	}

	var gaps []error
	for _, child := range registered {
		brokerID, ok := layout.ParseID(child)
		if !ok {
			gaps = append(gaps, &gerrors.ScanError{Entity: "broker " + child, Err: errors.New("invalid broker id")})
			continue
		}
		brokers.Add(brokerID)
	}

	topicGaps, err := r.migrateTopics(ctx, batcher, brokers)
	if err != nil {
		return err
	}
	gaps = append(gaps, topicGaps...)

	configGaps, err := r.migrateConfigs(ctx, batcher, record.BrokerResource)
	if err != nil {
		return err
	}
	gaps = append(gaps, configGaps...)

	block, _, err := producerid.ReadBlock(ctx, r.store)
	if err != nil {
		return err
	}

	if block != nil {
		if err := batcher.Add(ctx, record.NewProducerID(block.NextBlockFirstID())); err != nil {
			return err
		}
	}

	if err := batcher.Flush(ctx); err != nil {
		return err
	}

	emitBrokers(brokers, brokerSink)
	r.logger.Infof("read %d records in %d batches from the legacy store, %d brokers", batcher.Records(), batcher.Batches(), brokers.Cardinality())
	return r.report(gaps)
}

// MigrateTopics emits topics, partitions and topic configs only. brokerSink
// receives every broker id referenced by a replica assignment once.
func (r *Reader) MigrateTopics(ctx context.Context, batchSink record.BatchSink, brokerSink record.BrokerSink) error {
	batcher := record.NewBatcher(batchSink, r.batchSize)
	brokers := mapset.NewThreadUnsafeSet[int32]()

	gaps, err := r.migrateTopics(ctx, batcher, brokers)
	if err != nil {
		return err
	}

	if err := batcher.Flush(ctx); err != nil {
		return err
	}

	emitBrokers(brokers, brokerSink)
	r.logger.Infof("read %d topic records in %d batches from the legacy store", batcher.Records(), batcher.Batches())
	return r.report(gaps)
}

type topicScan struct {
	topic  topics.Topic
	config map[string]string
	gaps   []error
}

func (r *Reader) migrateTopics(ctx context.Context, batcher *record.Batcher, brokers mapset.Set[int32]) ([]error, error) {
	names, err := topics.ListTopics(ctx, r.store)
	if err != nil {
		return nil, err
	}

	scans := make([]topicScan, len(names))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(r.parallelism, 1))
	for index, name := range names {
		group.Go(func() error {
			topic, gaps, err := topics.ReadTopic(groupCtx, r.store, name)
			if err != nil {
				if errors.Is(err, gerrors.ErrMalformedNode) {
					scans[index] = topicScan{gaps: []error{&gerrors.ScanError{Entity: "topic " + name, Err: err}}}
					return nil
				}
				if errors.Is(err, gerrors.ErrTopicNotFound) {
					// deleted while scanning
					return nil
				}
				return err
			}

			config, err := r.readConfig(groupCtx, record.ConfigResource{Type: record.TopicResource, Name: name})
			if err != nil {
				return err
			}

			scans[index] = topicScan{topic: topic, config: config, gaps: gaps}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	var gaps []error
	for _, scan := range scans {
		gaps = append(gaps, scan.gaps...)
		if scan.topic.Name == "" {
			continue
		}

		if scan.topic.TopicID == uuid.Nil {
			gaps = append(gaps, &gerrors.ScanError{Entity: "topic " + scan.topic.Name, Err: errors.New("topic has no topic id")})
			continue
		}

		records := make([]record.Record, 0, 1+len(scan.topic.Partitions)+len(scan.config))
		records = append(records, record.NewTopic(scan.topic.Name, scan.topic.TopicID))
		for _, partition := range scan.topic.PartitionIDs() {
			registration := scan.topic.Partitions[partition]
			brokers.Append(registration.Replicas...)
			records = append(records, record.NewPartition(scan.topic.TopicID, partition, registration))
		}

		configs, configGaps := r.configRecords(record.ConfigResource{Type: record.TopicResource, Name: scan.topic.Name}, scan.config)
		gaps = append(gaps, configGaps...)
		records = append(records, configs...)

		if err := batcher.Add(ctx, records...); err != nil {
			return nil, err
		}
	}
	return gaps, nil
}

func (r *Reader) migrateConfigs(ctx context.Context, batcher *record.Batcher, resourceType record.ResourceType) ([]error, error) {
	entities, err := r.store.Children(ctx, layout.ConfigEntityTypePath(resourceType))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s configs: %w", resourceType, err)
	}

	var gaps []error
	for _, entity := range entities {
		resource := layout.ResourceFromEntity(resourceType, entity)
		config, err := r.readConfig(ctx, resource)
		if err != nil {
			if errors.Is(err, gerrors.ErrMalformedNode) {
				gaps = append(gaps, &gerrors.ScanError{Entity: resource.String(), Err: err})
				continue
			}
			return nil, err
		}

		configs, configGaps := r.configRecords(resource, config)
		gaps = append(gaps, configGaps...)
		if err := batcher.Add(ctx, configs...); err != nil {
			return nil, err
		}
	}
	return gaps, nil
}

func (r *Reader) readConfig(ctx context.Context, resource record.ConfigResource) (map[string]string, error) {
	path := layout.ConfigEntityPath(resource)
	node, err := r.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, legacy.ErrNodeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return layout.DecodeConfig(path, node.Data)
}

// configRecords turns a stored config into records, decoding sensitive
// values back to cleartext.
func (r *Reader) configRecords(resource record.ConfigResource, config map[string]string) ([]record.Record, []error) {
	var gaps []error
	records := make([]record.Record, 0, len(config))
	for _, key := range slices.Sorted(maps.Keys(config)) {
		value := config[key]
		if r.sensitivity(resource.Type, key) && secret.IsEncoded(value) {
			if r.encoder == nil {
				gaps = append(gaps, &gerrors.ScanError{Entity: resource.String() + " " + key, Err: gerrors.ErrEncoderRequired})
				continue
			}

			decoded, err := r.encoder.Decode(value)
			if err != nil {
				gaps = append(gaps, &gerrors.ScanError{Entity: resource.String() + " " + key, Err: err})
				continue
			}
			value = decoded
		}
		records = append(records, record.NewConfig(resource, key, value))
	}
	return records, gaps
}

// report logs every skipped entity and combines them into a single error.
func (r *Reader) report(gaps []error) error {
	for _, gap := range gaps {
		r.logger.Warn(gap)
	}
	return multierr.Combine(gaps...)
}

func emitBrokers(brokers mapset.Set[int32], sink record.BrokerSink) {
	if sink == nil {
		return
	}

	ids := brokers.ToSlice()
	slices.Sort(ids)
	for _, id := range ids {
		sink(id)
	}
}
