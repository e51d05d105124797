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

// Package consul provides a legacy.Store backed by the consul KV store.
//
// Nodes are kept as versioned envelopes under a key prefix. A transaction is
// replayed against a consistent read of the nodes it touches and committed
// as one consul transaction guarded by their modify indexes.
package consul

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/consul/api"

	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
)

const maxCommitAttempts = 8

var errStaleRead = errors.New("nodes changed between read and commit")

// Store is a consul backed legacy.Store
type Store struct {
	config *Config
	client *api.Client
	logger log.Logger
}

var _ legacy.Store = (*Store)(nil)

// NewStore connects to the consul agent and creates a Store.
func NewStore(config *Config, logger log.Logger) (*Store, error) {
	if config == nil {
		return nil, errors.New("legacy/consul: config is nil")
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("legacy/consul: config is invalid: %w", err)
	}

	if logger == nil {
		logger = log.DefaultLogger
	}

	consulConfig := api.DefaultConfig()
	consulConfig.Address = config.Address
	consulConfig.Datacenter = config.Datacenter
	consulConfig.Token = config.Token

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	if _, err := client.Status().Leader(); err != nil {
		return nil, fmt.Errorf("failed to connect to consul: %w", err)
	}

	return &Store{config: config, client: client, logger: logger}, nil
}

// Get implements legacy.Store.
func (s *Store) Get(ctx context.Context, path string) (legacy.Node, error) {
	opts, cancel := s.queryOptions(ctx)
	defer cancel()

	pair, _, err := s.client.KV().Get(s.key(path), opts)
	if err != nil {
		return legacy.Node{}, s.transportError(ctx, "get "+path, err)
	}

	if pair == nil {
		return legacy.Node{}, legacy.ErrNodeNotFound
	}
	return legacy.DecodeNode(path, pair.Value)
}

// Children implements legacy.Store.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	opts, cancel := s.queryOptions(ctx)
	defer cancel()

	prefix := s.key(strings.TrimSuffix(path, "/")) + "/"
	keys, _, err := s.client.KV().Keys(prefix, "", opts)
	if err != nil {
		return nil, s.transportError(ctx, "list "+path, err)
	}

	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		paths = append(paths, s.path(key))
	}
	return legacy.ChildNames(path, paths), nil
}

// Multi implements legacy.Store.
func (s *Store) Multi(ctx context.Context, ops []legacy.Op) (legacy.TxnResult, error) {
	if len(ops) > s.config.MaxTxnOps {
		return legacy.TxnResult{}, fmt.Errorf("legacy/consul: %d ops exceed the limit of %d per transaction", len(ops), s.config.MaxTxnOps)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(5*time.Millisecond),
		backoff.WithMaxInterval(200*time.Millisecond),
	), maxCommitAttempts-1), ctx)

	result, err := backoff.RetryWithData(func() (legacy.TxnResult, error) {
		result, err := s.commit(ctx, ops)
		switch {
		case errors.Is(err, errStaleRead):
			return legacy.TxnResult{}, err
		case err != nil:
			return legacy.TxnResult{}, backoff.Permanent(err)
		}
		return result, nil
	}, policy)

	if errors.Is(err, errStaleRead) {
		return legacy.TxnResult{}, fmt.Errorf("legacy/consul: transaction gave up after %d attempts: %w", maxCommitAttempts, err)
	}
	return result, err
}

func (s *Store) commit(ctx context.Context, ops []legacy.Op) (legacy.TxnResult, error) {
	opts, cancel := s.queryOptions(ctx)
	defer cancel()

	paths := legacy.Paths(ops)
	reads := make(api.TxnOps, 0, len(paths))
	for _, path := range paths {
		reads = append(reads, &api.TxnOp{KV: &api.KVTxnOp{Verb: api.KVGetOrEmpty, Key: s.key(path)}})
	}

	ok, readResp, _, err := s.client.Txn().Txn(reads, opts)
	if err != nil {
		return legacy.TxnResult{}, s.transportError(ctx, "read transaction nodes", err)
	}

	if !ok {
		return legacy.TxnResult{}, fmt.Errorf("legacy/consul: read transaction rejected: %s", txnErrors(readResp))
	}

	versions := make(map[string]int64, len(paths))
	indexes := make(map[string]uint64, len(paths))
	for _, result := range readResp.Results {
		// get-or-empty reports a missing key with a zero modify index
		if result.KV == nil || result.KV.ModifyIndex == 0 {
			continue
		}

		path := s.path(result.KV.Key)
		node, err := legacy.DecodeNode(path, result.KV.Value)
		if err != nil {
			return legacy.TxnResult{}, err
		}
		versions[path] = node.Version
		indexes[path] = result.KV.ModifyIndex
	}

	plan, result := legacy.Simulate(ops, versions)
	if !result.Succeeded {
		return result, nil
	}

	writes := make(api.TxnOps, 0, len(plan.Effects))
	for _, effect := range plan.Effects {
		key := s.key(effect.Path)
		index, exists := indexes[effect.Path]

		var op *api.KVTxnOp
		switch {
		case effect.Written:
			value, err := legacy.EncodeNode(effect.Data, effect.After)
			if err != nil {
				return legacy.TxnResult{}, err
			}
			// a CAS at index 0 only succeeds when the key does not exist
			op = &api.KVTxnOp{Verb: api.KVCAS, Key: key, Value: value, Index: index}
		case effect.Deleted:
			op = &api.KVTxnOp{Verb: api.KVDeleteCAS, Key: key, Index: index}
		case exists:
			op = &api.KVTxnOp{Verb: api.KVCheckIndex, Key: key, Index: index}
		default:
			op = &api.KVTxnOp{Verb: api.KVCheckNotExists, Key: key}
		}
		writes = append(writes, &api.TxnOp{KV: op})
	}

	ok, resp, _, err := s.client.Txn().Txn(writes, opts)
	if err != nil {
		return legacy.TxnResult{}, s.transportError(ctx, "commit transaction", err)
	}

	if !ok {
		s.logger.Debugf("consul transaction rolled back: %s", txnErrors(resp))
		return legacy.TxnResult{}, errStaleRead
	}
	return result, nil
}

// AwaitConnected implements legacy.Store.
func (s *Store) AwaitConnected(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(0),
	), ctx)

	return backoff.RetryNotify(func() error {
		opts, cancel := s.queryOptions(ctx)
		defer cancel()
		_, err := s.client.Status().LeaderWithQueryOptions(opts)
		return err
	}, policy, func(err error, wait time.Duration) {
		s.logger.Warnf("consul unreachable (%v), retrying in %s", err, wait)
	})
}

// MaxOpsPerTxn implements legacy.Store.
func (s *Store) MaxOpsPerTxn() int {
	return s.config.MaxTxnOps
}

func (s *Store) queryOptions(ctx context.Context) (*api.QueryOptions, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	opts := &api.QueryOptions{Datacenter: s.config.Datacenter, RequireConsistent: true}
	return opts.WithContext(opCtx), cancel
}

// key maps a node path onto its consul key.
func (s *Store) key(path string) string {
	return s.config.Prefix + path
}

// path maps a consul key back onto its node path.
func (s *Store) path(key string) string {
	return strings.TrimPrefix(key, s.config.Prefix)
}

func (s *Store) transportError(ctx context.Context, action string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: failed to %s: %w", legacy.ErrDisconnected, action, err)
}

func txnErrors(resp *api.TxnResponse) string {
	if resp == nil || len(resp.Errors) == 0 {
		return "no detail"
	}

	details := make([]string, 0, len(resp.Errors))
	for _, txnErr := range resp.Errors {
		details = append(details, fmt.Sprintf("op %d: %s", txnErr.OpIndex, txnErr.What))
	}
	return strings.Join(details, "; ")
}
