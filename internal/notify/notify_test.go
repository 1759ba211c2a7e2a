package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Send(context.Background(), "position closed"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got["content"] != "position closed" {
		t.Errorf("content = %q", got["content"])
	}
}

func TestWebhookSendReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Send(context.Background(), "x"); err == nil {
		t.Fatal("Send() = nil, want error on 429")
	}
}

func TestNopSend(t *testing.T) {
	if err := (Nop{}).Send(context.Background(), "x"); err != nil {
		t.Fatalf("Nop.Send() error = %v", err)
	}
}
