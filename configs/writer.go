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

// Package configs mirrors topic and broker configs into the legacy layout.
// Sensitive values only ever reach the store encoded.
package configs

import (
	"context"
	"errors"
	"fmt"
	"maps"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/layout"
	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/record"
	"github.com/zpllz/kafka/secret"
	"github.com/zpllz/kafka/state"
	"github.com/zpllz/kafka/txn"
)

// Writer writes config resources through the fencing executor.
type Writer struct {
	executor    *txn.Executor
	logger      log.Logger
	encoder     secret.Encoder
	sensitivity secret.Sensitivity
}

// NewWriter creates a Writer
func NewWriter(executor *txn.Executor, opts ...Option) *Writer {
	writer := &Writer{
		executor:    executor,
		logger:      log.DefaultLogger,
		sensitivity: secret.DefaultSensitivity,
	}

	for _, opt := range opts {
		opt.Apply(writer)
	}
	return writer
}

// ReadConfig returns the cleartext configs of resource and whether the
// resource node exists. Encoded sensitive values are decoded.
func (w *Writer) ReadConfig(ctx context.Context, resource record.ConfigResource) (map[string]string, bool, error) {
	config, node, _, err := w.read(ctx, resource)
	if err != nil {
		return nil, false, err
	}
	return config, node != nil, nil
}

// WriteConfig replaces the configs of resource. Writing the configs already
// stored is a no-op returning s unchanged, unless a sensitive value is found
// stored in cleartext.
//
// errors.ErrEncoderRequired is returned when a sensitive key has to be
// written, or compared, and no encoder is set.
func (w *Writer) WriteConfig(ctx context.Context, resource record.ConfigResource, config map[string]string, s state.LeadershipState) (state.LeadershipState, error) {
	current, node, cleartext, err := w.read(ctx, resource)
	if err != nil {
		return s, err
	}

	if node != nil && !cleartext && maps.Equal(current, config) {
		return s, nil
	}

	stored := make(map[string]string, len(config))
	for key, value := range config {
		if w.sensitivity(resource.Type, key) {
			if w.encoder == nil {
				return s, fmt.Errorf("%w: %s %s", gerrors.ErrEncoderRequired, resource, key)
			}

			encoded, err := w.encoder.Encode(value)
			if err != nil {
				return s, fmt.Errorf("failed to encode %s %s: %w", resource, key, err)
			}
			value = encoded
		}
		stored[key] = value
	}

	data, err := layout.EncodeConfig(stored)
	if err != nil {
		return s, err
	}

	path := layout.ConfigEntityPath(resource)
	op := legacy.Create(path, data)
	if node != nil {
		op = legacy.Set(path, data, node.Version)
	}

	result, err := w.executor.Execute(ctx, []legacy.Op{op}, s)
	if err != nil {
		return s, err
	}

	w.logger.Debugf("wrote %d configs of %s", len(config), resource)
	return result.State, nil
}

// NeedsWrite reports whether the stored configs of resource differ from
// config. An absent resource holds no config.
func (w *Writer) NeedsWrite(ctx context.Context, resource record.ConfigResource, config map[string]string) (bool, error) {
	current, node, cleartext, err := w.read(ctx, resource)
	if err != nil {
		return false, err
	}

	if node == nil {
		return len(config) > 0, nil
	}
	return cleartext || !maps.Equal(current, config), nil
}

// DeleteConfig removes the config node of resource. Deleting an absent
// resource is a no-op returning s unchanged.
func (w *Writer) DeleteConfig(ctx context.Context, resource record.ConfigResource, s state.LeadershipState) (state.LeadershipState, error) {
	path := layout.ConfigEntityPath(resource)
	node, err := w.executor.Store().Get(ctx, path)
	if err != nil {
		if errors.Is(err, legacy.ErrNodeNotFound) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := w.executor.Execute(ctx, []legacy.Op{legacy.Delete(path, node.Version)}, s)
	if err != nil {
		return s, err
	}

	w.logger.Debugf("deleted configs of %s", resource)
	return result.State, nil
}

// ListResources returns the config resources of a type stored in the legacy
// layout.
func (w *Writer) ListResources(ctx context.Context, resourceType record.ResourceType) ([]record.ConfigResource, error) {
	entities, err := w.executor.Store().Children(ctx, layout.ConfigEntityTypePath(resourceType))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s configs: %w", resourceType, err)
	}

	resources := make([]record.ConfigResource, 0, len(entities))
	for _, entity := range entities {
		resources = append(resources, layout.ResourceFromEntity(resourceType, entity))
	}
	return resources, nil
}

// read returns the decoded configs of resource, its node when present and
// whether a sensitive value is stored in cleartext.
func (w *Writer) read(ctx context.Context, resource record.ConfigResource) (config map[string]string, node *legacy.Node, cleartext bool, err error) {
	path := layout.ConfigEntityPath(resource)
	stored, err := w.executor.Store().Get(ctx, path)
	if err != nil {
		if errors.Is(err, legacy.ErrNodeNotFound) {
			return map[string]string{}, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	config, err = layout.DecodeConfig(path, stored.Data)
	if err != nil {
		return nil, nil, false, err
	}

	for key, value := range config {
		if !w.sensitivity(resource.Type, key) {
			continue
		}

		if !secret.IsEncoded(value) {
			cleartext = true
			continue
		}

		if w.encoder == nil {
			return nil, nil, false, fmt.Errorf("%w: %s %s", gerrors.ErrEncoderRequired, resource, key)
		}

		decoded, err := w.encoder.Decode(value)
		if err != nil {
			return nil, nil, false, fmt.Errorf("failed to decode %s %s: %w", resource, key, err)
		}
		config[key] = decoded
	}
	return config, &stored, cleartext, nil
}
