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

package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zpllz/kafka/legacy"
	"github.com/zpllz/kafka/log"
)

var (
	redisAddr string
	prefixSeq uint64
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		_ = testcontainers.TerminateContainer(container)
		os.Exit(1)
	}

	redisAddr = endpoint

	code := m.Run()
	_ = testcontainers.TerminateContainer(container)
	os.Exit(code)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(&Config{
		Addr:   redisAddr,
		Prefix: fmt.Sprintf("legacy-test-%d", atomic.AddUint64(&prefixSeq, 1)),
	}, log.DiscardLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Create then Get", func(t *testing.T) {
		store := newStore(t)
		result, err := store.Multi(ctx, []legacy.Op{
			legacy.Create("/config/topics/orders", []byte("{}")),
			legacy.Create("/config/brokers/1", []byte("{}")),
		})
		require.NoError(t, err)
		require.True(t, result.Succeeded)

		node, err := store.Get(ctx, "/config/topics/orders")
		require.NoError(t, err)
		assert.Equal(t, []byte("{}"), node.Data)
		assert.EqualValues(t, 1, node.Version)

		children, err := store.Children(ctx, "/config")
		require.NoError(t, err)
		require.Equal(t, []string{"brokers", "topics"}, children)

		children, err = store.Children(ctx, "/config/users")
		require.NoError(t, err)
		require.Empty(t, children)
	})
	t.Run("Conflict leaves the store untouched", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Multi(ctx, []legacy.Op{legacy.Create("/a", []byte("1"))})
		require.NoError(t, err)

		result, err := store.Multi(ctx, []legacy.Op{
			legacy.Set("/a", []byte("2"), 1),
			legacy.Delete("/a", 1),
		})
		require.NoError(t, err)
		require.False(t, result.Succeeded)
		require.Equal(t, 1, result.FailedIndex)
		require.EqualValues(t, 2, result.Actual)

		node, err := store.Get(ctx, "/a")
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), node.Data)
	})
	t.Run("Only one concurrent create wins", func(t *testing.T) {
		store := newStore(t)

		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
		)
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := store.Multi(ctx, []legacy.Op{legacy.Create("/controller", []byte(fmt.Sprint(i)))})
				if err == nil && result.Succeeded {
					succeeded.Add(1)
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, 1, succeeded.Load())
		node, err := store.Get(ctx, "/controller")
		require.NoError(t, err)
		assert.EqualValues(t, 1, node.Version)
	})
	t.Run("AwaitConnected", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, store.AwaitConnected(ctx))
	})
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `legacy/a\*b\?\[c\]/`, escapeGlob("legacy/a*b?[c]/"))
}

func TestConfig(t *testing.T) {
	config := &Config{Addr: "127.0.0.1:6379", Prefix: "/scoped/"}
	config.Sanitize()
	require.NoError(t, config.Validate())
	assert.Equal(t, "scoped", config.Prefix)
	assert.Equal(t, defaultMaxTxnOps, config.MaxTxnOps)

	config = &Config{}
	config.Sanitize()
	require.Error(t, config.Validate())
}
