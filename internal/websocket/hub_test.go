package websocket

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"doqulio-chat/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_SendReachesOnlyTargetUser(t *testing.T) {
	hub := startHub(t)

	alice := &Client{Hub: hub, UserID: "alice", Send: make(chan []byte, 4)}
	aliceTab2 := &Client{Hub: hub, UserID: "alice", Send: make(chan []byte, 4)}
	bob := &Client{Hub: hub, UserID: "bob", Send: make(chan []byte, 4)}
	hub.register <- alice
	hub.register <- aliceTab2
	hub.register <- bob

	require.Eventually(t, func() bool { return hub.ConnectedClients("alice") == 2 }, time.Second, 5*time.Millisecond)

	hub.Send("alice", []byte(`{"type":"BUSY_CHANGED"}`))

	assert.Equal(t, `{"type":"BUSY_CHANGED"}`, string(<-alice.Send))
	assert.Equal(t, `{"type":"BUSY_CHANGED"}`, string(<-aliceTab2.Send))
	assert.Empty(t, bob.Send)
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := startHub(t)

	c := &Client{Hub: hub, UserID: "carol", Send: make(chan []byte, 1)}
	hub.register <- c
	hub.unregister <- c

	require.Eventually(t, func() bool { return hub.ConnectedClients("carol") == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestHub_FullBufferDropsClient(t *testing.T) {
	hub := startHub(t)

	c := &Client{Hub: hub, UserID: "dave", Send: make(chan []byte, 1)}
	hub.register <- c
	require.Eventually(t, func() bool { return hub.ConnectedClients("dave") == 1 }, time.Second, 5*time.Millisecond)

	hub.Send("dave", []byte("1"))
	hub.Send("dave", []byte("2")) // buffer full, Send must not block

	require.Eventually(t, func() bool { return hub.ConnectedClients("dave") == 0 }, time.Second, 5*time.Millisecond)
}

// stalledRedis accepts connections and never answers.
func stalledRedis(t *testing.T) *redis.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = rdb.Close()
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return rdb
}

func TestHub_SendDoesNotWaitForRedis(t *testing.T) {
	hub := NewHub(stalledRedis(t), logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	c := &Client{Hub: hub, UserID: "erin", Send: make(chan []byte, 16)}
	hub.register <- c
	require.Eventually(t, func() bool { return hub.ConnectedClients("erin") == 1 }, time.Second, 5*time.Millisecond)

	started := time.Now()
	for i := 0; i < 10; i++ {
		hub.Send("erin", []byte("event"))
	}
	assert.Less(t, time.Since(started), 200*time.Millisecond)
	assert.Len(t, c.Send, 10)
}

func TestHub_SendWithFullRedisQueueDrops(t *testing.T) {
	// Run is not started, so nothing drains the queue.
	hub := NewHub(stalledRedis(t), logger.NewNopLogger())

	started := time.Now()
	for i := 0; i < clusterQueueSize+10; i++ {
		hub.Send("frank", []byte("event"))
	}
	assert.Less(t, time.Since(started), time.Second)
	assert.Len(t, hub.outbound, clusterQueueSize)
}

func TestHub_DropAfterStopDoesNotLeak(t *testing.T) {
	ignore := goleak.IgnoreCurrent()

	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(finished)
	}()

	c := &Client{Hub: hub, UserID: "gina", Send: make(chan []byte, 1)}
	hub.register <- c
	require.Eventually(t, func() bool { return hub.ConnectedClients("gina") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-finished

	hub.Send("gina", []byte("1"))
	hub.Send("gina", []byte("2")) // buffer full after the hub stopped

	goleak.VerifyNone(t, ignore)
}
