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

// Package redis provides a legacy.Store backed by redis.
//
// Nodes are stored as versioned envelopes under a key prefix. A transaction
// watches the keys it touches, replays its ops on their current versions and
// commits the net effect in one MULTI/EXEC block, which redis aborts when a
// watched key changed in between.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
)

const (
	maxCommitAttempts = 8
	scanCount         = 256
)

// Store is a redis backed legacy.Store
type Store struct {
	config *Config
	client *goredis.Client
	logger log.Logger
}

var _ legacy.Store = (*Store)(nil)

// NewStore connects to redis and creates a Store.
func NewStore(config *Config, logger log.Logger) (*Store, error) {
	if config == nil {
		return nil, errors.New("legacy/redis: config is nil")
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.DefaultLogger
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         config.Addr,
		Username:     config.Username,
		Password:     config.Password,
		DB:           config.DB,
		TLSConfig:    config.TLS,
		DialTimeout:  config.Timeout,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
	})

	ctx, cancel := context.WithTimeout(config.Context, config.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{config: config, client: client, logger: logger}, nil
}

// Close releases the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get implements legacy.Store.
func (s *Store) Get(ctx context.Context, path string) (legacy.Node, error) {
	raw, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return legacy.Node{}, legacy.ErrNodeNotFound
		}
		return legacy.Node{}, s.transportError(ctx, "get "+path, err)
	}
	return legacy.DecodeNode(path, raw)
}

// Children implements legacy.Store.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	pattern := escapeGlob(s.key(strings.TrimSuffix(path, "/"))+"/") + "*"

	var paths []string
	iter := s.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		paths = append(paths, s.path(iter.Val()))
	}

	if err := iter.Err(); err != nil {
		return nil, s.transportError(ctx, "list "+path, err)
	}
	return legacy.ChildNames(path, paths), nil
}

// Multi implements legacy.Store.
func (s *Store) Multi(ctx context.Context, ops []legacy.Op) (legacy.TxnResult, error) {
	if len(ops) > s.config.MaxTxnOps {
		return legacy.TxnResult{}, fmt.Errorf("legacy/redis: %d ops exceed the limit of %d per transaction", len(ops), s.config.MaxTxnOps)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(5*time.Millisecond),
		backoff.WithMaxInterval(200*time.Millisecond),
	), maxCommitAttempts-1), ctx)

	result, err := backoff.RetryWithData(func() (legacy.TxnResult, error) {
		result, err := s.commit(ctx, ops)
		switch {
		case errors.Is(err, goredis.TxFailedErr):
			return legacy.TxnResult{}, err
		case err != nil:
			return legacy.TxnResult{}, backoff.Permanent(err)
		}
		return result, nil
	}, policy)

	if errors.Is(err, goredis.TxFailedErr) {
		return legacy.TxnResult{}, fmt.Errorf("legacy/redis: transaction gave up after %d attempts: %w", maxCommitAttempts, err)
	}
	return result, err
}

func (s *Store) commit(ctx context.Context, ops []legacy.Op) (legacy.TxnResult, error) {
	paths := legacy.Paths(ops)
	keys := make([]string, 0, len(paths))
	for _, path := range paths {
		keys = append(keys, s.key(path))
	}

	var (
		result legacy.TxnResult
		// failures not caused by redis itself
		codecErr error
	)

	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		values, err := tx.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}

		versions := make(map[string]int64, len(paths))
		for index, value := range values {
			raw, ok := value.(string)
			if !ok {
				continue
			}

			node, err := legacy.DecodeNode(paths[index], []byte(raw))
			if err != nil {
				codecErr = err
				return err
			}
			versions[node.Path] = node.Version
		}

		var plan legacy.Plan
		plan, result = legacy.Simulate(ops, versions)
		if !result.Succeeded {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for _, effect := range plan.Effects {
				switch {
				case effect.Written:
					value, err := legacy.EncodeNode(effect.Data, effect.After)
					if err != nil {
						codecErr = err
						return err
					}
					pipe.Set(ctx, s.key(effect.Path), value, 0)
				case effect.Deleted:
					pipe.Del(ctx, s.key(effect.Path))
				}
			}
			return nil
		})
		return err
	}, keys...)

	switch {
	case err == nil:
		return result, nil
	case codecErr != nil:
		return legacy.TxnResult{}, codecErr
	case errors.Is(err, goredis.TxFailedErr):
		return legacy.TxnResult{}, err
	default:
		return legacy.TxnResult{}, s.transportError(ctx, "commit transaction", err)
	}
}

// AwaitConnected implements legacy.Store.
func (s *Store) AwaitConnected(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(0),
	), ctx)

	return backoff.RetryNotify(func() error {
		return s.client.Ping(ctx).Err()
	}, policy, func(err error, wait time.Duration) {
		s.logger.Warnf("redis unreachable (%v), retrying in %s", err, wait)
	})
}

// MaxOpsPerTxn implements legacy.Store.
func (s *Store) MaxOpsPerTxn() int {
	return s.config.MaxTxnOps
}

func (s *Store) key(path string) string {
	return s.config.Prefix + path
}

func (s *Store) path(key string) string {
	return strings.TrimPrefix(key, s.config.Prefix)
}

func (s *Store) transportError(ctx context.Context, action string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: failed to %s: %w", legacy.ErrDisconnected, action, err)
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(value string) string {
	var builder strings.Builder
	for _, r := range value {
		switch r {
		case '*', '?', '[', ']', '\\':
			builder.WriteByte('\\')
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
