package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNotifyPostsContent(t *testing.T) {
	var got webhookPayload
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body error = %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, 0, nil, server.Client())
	if err := webhook.Notify(context.Background(), "Fechamento mensal 2025-03 concluído."); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if got.Content != "Fechamento mensal 2025-03 concluído." {
		t.Fatalf("content = %q", got.Content)
	}
	if contentType != "application/json" {
		t.Fatalf("Content-Type = %q", contentType)
	}
}

func TestNotifyReturnsErrorOnFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := NewWebhook(server.URL, 0, nil, server.Client()).Notify(context.Background(), "oi")
	if err == nil || !strings.Contains(err.Error(), "webhook status 429") {
		t.Fatalf("Notify() error = %v, want status 429", err)
	}
}

func TestNotifyWithoutURLIsSkipped(t *testing.T) {
	webhook := NewWebhook("  ", 0, nil, nil)
	if webhook.Configured() {
		t.Fatal("Configured() = true, want false")
	}
	if err := webhook.Notify(context.Background(), "oi"); err != nil {
		t.Fatalf("Notify() error = %v, want nil when skipped", err)
	}
}

func TestNotifyTruncatesLongContent(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	long := strings.Repeat("ç", maxContentRunes+50)
	if err := NewWebhook(server.URL, 0, nil, server.Client()).Notify(context.Background(), long); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if n := utf8.RuneCountInString(got.Content); n != maxContentRunes {
		t.Fatalf("content runes = %d, want %d", n, maxContentRunes)
	}
}

func TestNotifyRequiresContent(t *testing.T) {
	webhook := NewWebhook("http://127.0.0.1:1", 0, nil, nil)
	if err := webhook.Notify(context.Background(), " "); err == nil {
		t.Fatal("Notify() error = nil, want missing content")
	}
}
