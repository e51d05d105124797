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

// Package etcd provides a legacy.Store backed by etcd.
//
// Nodes are stored as versioned envelopes under the configured namespace.
// A transaction is replayed against a consistent read of the nodes it
// touches and committed with one etcd Txn guarded by their mod revisions,
// which keeps the ordered multi-write semantics of the legacy store.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"

	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
)

// maxCommitAttempts bounds the replays of a transaction whose reads went
// stale before it committed.
const maxCommitAttempts = 8

var errStaleRead = errors.New("nodes changed between read and commit")

// Store is an etcd backed legacy.Store
type Store struct {
	config    *Config
	client    *clientv3.Client
	kv        clientv3.KV
	logger    log.Logger
	closeFunc func(*clientv3.Client) error
}

var _ legacy.Store = (*Store)(nil)

// NewStore connects to etcd and creates a Store.
func NewStore(config *Config, logger log.Logger) (*Store, error) {
	if config == nil {
		return nil, errors.New("legacy/etcd: config is nil")
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.DefaultLogger
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: config.DialTimeout,
		TLS:         config.TLS,
		Username:    config.Username,
		Password:    config.Password,
		Context:     config.Context,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(config.Context, config.DialTimeout)
	defer cancel()

	if _, err = client.Status(ctx, config.Endpoints[0]); err != nil {
		if cerr := client.Close(); cerr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to close etcd client: %w", cerr))
		}
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &Store{
		config:    config,
		client:    client,
		kv:        namespace.NewKV(client.KV, config.Namespace),
		logger:    logger,
		closeFunc: func(client *clientv3.Client) error { return client.Close() },
	}, nil
}

// Close releases the etcd client. Close is idempotent.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil
	return s.closeFunc(client)
}

// Get implements legacy.Store.
func (s *Store) Get(ctx context.Context, path string) (legacy.Node, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.kv.Get(opCtx, path)
	if err != nil {
		return legacy.Node{}, s.transportError(ctx, "get "+path, err)
	}

	if len(resp.Kvs) == 0 {
		return legacy.Node{}, legacy.ErrNodeNotFound
	}
	return legacy.DecodeNode(path, resp.Kvs[0].Value)
}

// Children implements legacy.Store.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.kv.Get(opCtx, childPrefix(path), clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, s.transportError(ctx, "list "+path, err)
	}

	paths := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		paths = append(paths, string(kv.Key))
	}
	return legacy.ChildNames(path, paths), nil
}

// Multi implements legacy.Store.
func (s *Store) Multi(ctx context.Context, ops []legacy.Op) (legacy.TxnResult, error) {
	if len(ops) > s.config.MaxTxnOps {
		return legacy.TxnResult{}, fmt.Errorf("legacy/etcd: %d ops exceed the limit of %d per transaction", len(ops), s.config.MaxTxnOps)
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
		return legacy.TxnResult{}, fmt.Errorf("legacy/etcd: transaction gave up after %d attempts: %w", maxCommitAttempts, err)
	}
	return result, err
}

// commit reads the touched nodes, replays ops on them and commits the net
// effect guarded by the revisions read.
func (s *Store) commit(ctx context.Context, ops []legacy.Op) (legacy.TxnResult, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	paths := legacy.Paths(ops)
	reads := make([]clientv3.Op, 0, len(paths))
	for _, path := range paths {
		reads = append(reads, clientv3.OpGet(path))
	}

	// a read only Txn gives a consistent view of all touched nodes
	readResp, err := s.kv.Txn(opCtx).Then(reads...).Commit()
	if err != nil {
		return legacy.TxnResult{}, s.transportError(ctx, "read transaction nodes", err)
	}

	versions := make(map[string]int64, len(paths))
	revisions := make(map[string]int64, len(paths))
	for index, response := range readResp.Responses {
		kvs := response.GetResponseRange().GetKvs()
		if len(kvs) == 0 {
			continue
		}

		node, err := legacy.DecodeNode(paths[index], kvs[0].Value)
		if err != nil {
			return legacy.TxnResult{}, err
		}
		versions[node.Path] = node.Version
		revisions[node.Path] = kvs[0].ModRevision
	}

	plan, result := legacy.Simulate(ops, versions)
	if !result.Succeeded {
		return result, nil
	}

	compares := make([]clientv3.Cmp, 0, len(plan.Effects))
	writes := make([]clientv3.Op, 0, len(plan.Effects))
	for _, effect := range plan.Effects {
		if revision, ok := revisions[effect.Path]; ok {
			compares = append(compares, clientv3.Compare(clientv3.ModRevision(effect.Path), "=", revision))
		} else {
			compares = append(compares, clientv3.Compare(clientv3.CreateRevision(effect.Path), "=", 0))
		}

		switch {
		case effect.Written:
			value, err := legacy.EncodeNode(effect.Data, effect.After)
			if err != nil {
				return legacy.TxnResult{}, err
			}
			writes = append(writes, clientv3.OpPut(effect.Path, string(value)))
		case effect.Deleted:
			writes = append(writes, clientv3.OpDelete(effect.Path))
		}
	}

	resp, err := s.kv.Txn(opCtx).If(compares...).Then(writes...).Commit()
	if err != nil {
		return legacy.TxnResult{}, s.transportError(ctx, "commit transaction", err)
	}

	if !resp.Succeeded {
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
		opCtx, cancel := s.withTimeout(ctx)
		defer cancel()
		_, err := s.client.Status(opCtx, s.config.Endpoints[0])
		return err
	}, policy, func(err error, wait time.Duration) {
		s.logger.Warnf("etcd unreachable (%v), retrying in %s", err, wait)
	})
}

// MaxOpsPerTxn implements legacy.Store.
func (s *Store) MaxOpsPerTxn() int {
	return s.config.MaxTxnOps
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.Timeout)
}

// transportError reports a failed call as a lost session unless the caller
// gave up on it.
func (s *Store) transportError(ctx context.Context, action string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	// rejected requests reached the cluster, the session is fine
	if errors.Is(err, rpctypes.ErrTooManyOps) || errors.Is(err, rpctypes.ErrRequestTooLarge) {
		return fmt.Errorf("legacy/etcd: failed to %s: %w", action, err)
	}
	return fmt.Errorf("%w: failed to %s: %w", legacy.ErrDisconnected, action, err)
}

func childPrefix(path string) string {
	if path == "/" {
		return "/"
	}
	return path + "/"
}
