// internal/matching/hub_test.go

package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startTestHub(t *testing.T) (*Hub, context.CancelFunc, chan struct{}) {
	t.Helper()

	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	return hub, cancel, stopped
}

func receiveMessage(t *testing.T, ch chan hubMessage) hubMessage {
	t.Helper()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hub message")
		return hubMessage{}
	}
}

func TestHubDeliversMatchToBothSides(t *testing.T) {
	hub, cancel, stopped := startTestHub(t)
	defer func() {
		cancel()
		<-stopped
	}()

	first := &hubClient{hub: hub, send: make(chan hubMessage, 16), userID: 1}
	second := &hubClient{hub: hub, send: make(chan hubMessage, 16), userID: 2}
	require.True(t, hub.addClient(first))
	require.True(t, hub.addClient(second))

	hub.NotifyMatch(1, 2)

	msg := receiveMessage(t, first.send)
	assert.Equal(t, "new_match", msg.Type)
	assert.Equal(t, MatchEvent{UserID: 1, OtherUserID: 2}, msg.Data)

	msg = receiveMessage(t, second.send)
	assert.Equal(t, MatchEvent{UserID: 2, OtherUserID: 1}, msg.Data)
}

func TestHubReconnectReplacesPreviousClient(t *testing.T) {
	hub, cancel, stopped := startTestHub(t)
	defer func() {
		cancel()
		<-stopped
	}()

	stale := &hubClient{hub: hub, send: make(chan hubMessage, 16), userID: 7}
	fresh := &hubClient{hub: hub, send: make(chan hubMessage, 16), userID: 7}
	require.True(t, hub.addClient(stale))
	require.True(t, hub.addClient(fresh))

	// The replaced connection's send channel is closed by the registry.
	select {
	case _, open := <-stale.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("stale client send channel was not closed")
	}

	hub.NotifyMatch(7, 8)
	msg := receiveMessage(t, fresh.send)
	assert.Equal(t, MatchEvent{UserID: 7, OtherUserID: 8}, msg.Data)
}

func TestHubClientOpsReturnAfterShutdown(t *testing.T) {
	hub, cancel, stopped := startTestHub(t)
	cancel()
	<-stopped

	client := &hubClient{hub: hub, send: make(chan hubMessage, 1), userID: 3}

	finished := make(chan struct{})
	var registered bool
	go func() {
		defer close(finished)
		registered = hub.addClient(client)
		hub.removeClient(client)
		hub.NotifyMatch(3, 4)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("hub client operations blocked after shutdown")
	}
	assert.False(t, registered)
}
