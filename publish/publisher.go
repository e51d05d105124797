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

// Package publish ships record batches to the quorum-log side over NATS
// JetStream.
//
// Each batch is encoded with the record codec, compressed and published as
// one message. The message id derives from the batch content
// and its position in the stream of batches of the publisher, so a retried
// publish is dropped by the JetStream duplicate window.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/flowchartsman/retry"
	"github.com/nats-io/nats.go"
	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"

	"github.com/zpllz/kafka/log"
	"github.com/zpllz/kafka/record"
)

const (
	// HeaderEncoding names the compression of the message payload.
	HeaderEncoding = "Content-Encoding"
	// HeaderRecords carries the number of records of the batch.
	HeaderRecords = "Migration-Records"
)

// Publisher is a record.BatchSink publishing on a JetStream stream
type Publisher struct {
	config  *Config
	conn    *nats.Conn
	js      nats.JetStreamContext
	encoder *compressor
	logger  log.Logger
	seq     *atomic.Uint64
}

// NewPublisher connects to NATS and makes sure the stream exists.
func NewPublisher(config *Config, logger log.Logger) (*Publisher, error) {
	if config == nil {
		return nil, errors.New("publish: config is nil")
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.DefaultLogger
	}

	encoder, err := newCompressor(config.Compression)
	if err != nil {
		return nil, err
	}

	conn, err := nats.Connect(config.URL, nats.Timeout(config.ConnectTimeout))
	if err != nil {
		_ = encoder.close()
		return nil, fmt.Errorf("publish: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		_ = encoder.close()
		return nil, fmt.Errorf("publish: jetstream: %w", err)
	}

	if err := ensureStream(js, config); err != nil {
		conn.Close()
		_ = encoder.close()
		return nil, err
	}

	return &Publisher{
		config:  config,
		conn:    conn,
		js:      js,
		encoder: encoder,
		logger:  logger,
		seq:     atomic.NewUint64(0),
	}, nil
}

func ensureStream(js nats.JetStreamContext, config *Config) error {
	_, err := js.StreamInfo(config.Stream)
	if err == nil {
		return nil
	}

	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("publish: stream info: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:       config.Stream,
		Subjects:   []string{config.Subject},
		Storage:    nats.FileStorage,
		Duplicates: config.DuplicateWindow,
	})

	// another publisher may have created it
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("publish: create stream: %w", err)
	}
	return nil
}

// Sink returns the publisher as a record.BatchSink.
func (p *Publisher) Sink() record.BatchSink {
	return p.Publish
}

// Publish sends batch as one message, retrying transient failures.
func (p *Publisher) Publish(ctx context.Context, batch record.Batch) error {
	if len(batch) == 0 {
		return nil
	}

	encoded, err := record.EncodeBatch(batch)
	if err != nil {
		return err
	}

	payload, err := p.encoder.compress(encoded)
	if err != nil {
		return fmt.Errorf("publish: compress batch: %w", err)
	}

	msg := nats.NewMsg(p.config.Subject)
	msg.Data = payload
	msg.Header.Set(HeaderEncoding, string(p.config.Compression))
	msg.Header.Set(HeaderRecords, strconv.Itoa(len(batch)))
	msg.Header.Set(nats.MsgIdHdr, messageID(p.seq.Inc(), encoded))

	retrier := retry.NewRetrier(p.config.MaxRetries, p.config.RetryDelay, p.config.Timeout)
	err = retrier.RunContext(ctx, func(ctx context.Context) error {
		pubCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()

		ack, err := p.js.PublishMsg(msg, nats.Context(pubCtx))
		if err != nil {
			p.logger.Warnf("failed to publish batch of %d records: %v", len(batch), err)
			return err
		}

		if ack.Duplicate {
			p.logger.Debugf("batch %s already in stream %s", msg.Header.Get(nats.MsgIdHdr), ack.Stream)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish: batch of %d records: %w", len(batch), err)
	}
	return nil
}

// Close flushes pending messages and releases the connection. Close is
// idempotent.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}

	err := p.conn.FlushTimeout(p.config.Timeout)
	p.conn.Close()
	p.conn = nil
	return errors.Join(err, p.encoder.close())
}

// Decode turns a message published by a Publisher back into its batch.
func Decode(msg *nats.Msg) (record.Batch, error) {
	payload, err := decompress(Compression(msg.Header.Get(HeaderEncoding)), msg.Data)
	if err != nil {
		return nil, fmt.Errorf("publish: decompress batch: %w", err)
	}
	return record.DecodeBatch(payload)
}

func messageID(seq uint64, encoded []byte) string {
	return fmt.Sprintf("%d-%016x", seq, xxh3.Hash(encoded))
}
