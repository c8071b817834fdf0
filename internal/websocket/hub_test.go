package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startBoard(t *testing.T, place string) (*Hub, *websocket.Conn, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, r.URL.Query().Get("place"), w, r)
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?place=" + place
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(place) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	return hub, conn, func() {
		conn.Close()
		srv.Close()
		cancel()
	}
}

func TestPublishReachesBoardsOfThePlace(t *testing.T) {
	hub, conn, stop := startBoard(t, "office1")
	defer stop()

	hub.Publish("office2", "ticket.called", map[string]int{"number": 9})
	if !hub.Publish("office1", "ticket.called", map[string]int{"number": 1}) {
		t.Fatal("publish was dropped")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev struct {
		Type  string         `json:"type"`
		Place string         `json:"place"`
		Data  map[string]int `json:"data"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "ticket.called" || ev.Place != "office1" || ev.Data["number"] != 1 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestPingGetsPong(t *testing.T) {
	_, conn, stop := startBoard(t, "office1")
	defer stop()

	if err := conn.WriteJSON(map[string]string{"type": "PING", "msgId": "42"}); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply map[string]string
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply["type"] != "PONG" || reply["msgId"] != "42" {
		t.Errorf("unexpected reply: %v", reply)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, conn, stop := startBoard(t, "office1")
	defer stop()

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("office1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestShutdownClosesBoardsAndReleasesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, "office1", w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("office1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-stopped

	// A PING racing the shutdown must not take the server down
	conn.WriteJSON(map[string]string{"type": "PING", "msgId": "1"})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				t.Fatalf("expected a close frame, got %v", err)
			}
			break
		}
	}

	left := make(chan struct{})
	go func() {
		hub.leave(&Client{hub: hub, Place: "office1"})
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}

	late, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("late dial: %v", err)
	}
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("late board should be turned away, got %v", err)
	}
}
