package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testWSConfig(t *testing.T) *WSConfig {
	t.Helper()
	cfg := DefaultWSConfig()
	cfg.Logger = log.New(io.Discard, "", 0)
	return &cfg
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTestServer answers one logsSubscribe with the given subscription ID
// and then feeds notifications written to the returned channel.
func wsTestServer(t *testing.T, subID int64) (*httptest.Server, chan string) {
	t.Helper()
	notifs := make(chan string, 8)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("method = %s, want logsSubscribe", req.Method)
		}
		if err := conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID}); err != nil {
			return
		}

		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		for raw := range notifs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
				return
			}
		}
	}))
	return server, notifs
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWS_SubscribeLogs(t *testing.T) {
	server, notifs := wsTestServer(t, 12345)
	defer server.Close()
	defer close(notifs)

	ctx := context.Background()
	client, err := NewWS(ctx, wsURL(server), testWSConfig(t))
	if err != nil {
		t.Fatalf("NewWS: %v", err)
	}
	defer client.Close()

	logs, err := client.SubscribeLogs(ctx, LogsFilter{
		Mentions:   []string{"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"},
		Commitment: CommitmentFinalized,
	})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	notifs <- fmt.Sprintf(`{
		"jsonrpc": "2.0",
		"method": "logsNotification",
		"params": {
			"subscription": %d,
			"result": {
				"context": {"slot": 100},
				"value": {
					"signature": "testsig",
					"logs": ["Program log: init_pc_amount"],
					"err": null
				}
			}
		}
	}`, 12345)

	select {
	case notif := <-logs:
		if notif.Signature != "testsig" {
			t.Errorf("signature = %s", notif.Signature)
		}
		if notif.Slot != 100 {
			t.Errorf("slot = %d", notif.Slot)
		}
		if len(notif.Logs) != 1 || !strings.Contains(notif.Logs[0], "init_pc_amount") {
			t.Errorf("logs = %v", notif.Logs)
		}
		if notif.Err != nil {
			t.Errorf("err = %v", notif.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWS_IgnoresUnknownSubscription(t *testing.T) {
	server, notifs := wsTestServer(t, 7)
	defer server.Close()
	defer close(notifs)

	ctx := context.Background()
	client, err := NewWS(ctx, wsURL(server), testWSConfig(t))
	if err != nil {
		t.Fatalf("NewWS: %v", err)
	}
	defer client.Close()

	logs, err := client.SubscribeLogs(ctx, LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	// Wrong subscription ID, then the right one.
	notifs <- `{"jsonrpc":"2.0","method":"logsNotification","params":{"subscription":999,"result":{"context":{"slot":1},"value":{"signature":"wrong","logs":[],"err":null}}}}`
	notifs <- `{"jsonrpc":"2.0","method":"logsNotification","params":{"subscription":7,"result":{"context":{"slot":2},"value":{"signature":"right","logs":[],"err":null}}}}`

	select {
	case notif := <-logs:
		if notif.Signature != "right" {
			t.Errorf("signature = %s, notification for a foreign subscription was delivered", notif.Signature)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWS_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewWS(ctx, "ws://127.0.0.1:1", testWSConfig(t)); err == nil {
		t.Fatal("expected dial error")
	}
}
