package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/blockfall/internal/service"
)

func newTestConn(clientID string) *WSConn {
	return &WSConn{
		conn:     nil, // no real connection for hub tests
		clientID: clientID,
		send:     make(chan []byte, 256),
	}
}

func recvEvent(t *testing.T, c *WSConn) WSEvent {
	t.Helper()
	select {
	case msg := <-c.send:
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return WSEvent{}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("client-1")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubSubscribeAcknowledges(t *testing.T) {
	hub := NewHub()
	c := newTestConn("client-1")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, "game-1", nil)
	if hub.GameSubscriberCount("game-1") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.GameSubscriberCount("game-1"))
	}
	if ev := recvEvent(t, c); ev.Type != EventSubscribed || ev.GameID != "game-1" {
		t.Errorf("ack = %+v", ev)
	}

	hub.Unsubscribe(c, "game-1")
	if hub.GameSubscriberCount("game-1") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.GameSubscriberCount("game-1"))
	}
}

func TestHubSubscribeUnregistered(t *testing.T) {
	hub := NewHub()
	c := newTestConn("client-1")
	hub.Subscribe(c, "game-1", nil)
	if hub.GameSubscriberCount("game-1") != 0 {
		t.Error("unregistered connection was subscribed")
	}
}

func TestHubBroadcastGameEvent(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("client-1")
	c2 := newTestConn("client-2") // watches another game

	hub.Register(c1)
	hub.Register(c2)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)

	hub.Subscribe(c1, "game-1", nil)
	hub.Subscribe(c2, "game-2", nil)
	recvEvent(t, c1)
	recvEvent(t, c2)

	hub.BroadcastGameEvent("game-1", service.EventMovePlayed, map[string]int{"ply": 1})

	ev := recvEvent(t, c1)
	if ev.Type != service.EventMovePlayed || ev.GameID != "game-1" {
		t.Errorf("event = %+v", ev)
	}
	select {
	case <-c2.send:
		t.Error("game-2 watcher received a game-1 event")
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := &WSConn{clientID: "slow", send: make(chan []byte, 1)}
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, "game-1", nil) // fills the buffer with the ack

	done := make(chan struct{})
	go func() {
		hub.BroadcastGameEvent("game-1", service.EventGameEnded, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full buffer")
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := NewHub()
	c := newTestConn("client-1")
	hub.Register(c)
	hub.Subscribe(c, "game-1", nil)
	hub.Subscribe(c, "game-2", nil)

	hub.Unregister(c)

	for _, id := range []string{"game-1", "game-2"} {
		if n := hub.GameSubscriberCount(id); n != 0 {
			t.Errorf("%s: expected 0 subscribers after unregister, got %d", id, n)
		}
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestConn("client")
			hub.Register(c)
			hub.Subscribe(c, "game-1", nil)
			hub.BroadcastGameEvent("game-1", service.EventMovePlayed, nil)
			hub.Unsubscribe(c, "game-1")
			hub.Unregister(c)
		}()
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}
