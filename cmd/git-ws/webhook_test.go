package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func Test_webhook(t *testing.T) {
	wh := &githubWebhookHandler{
		secret: "a1b2c3d4e5",
		log:    slog.Default(),
	}

	body := []byte(`{"repository":{"html_url":"https://example.com/app"}}`)
	signature := wh.computeHMAC(body)

	t.Run("validate signature", func(t *testing.T) {
		if !wh.isValidSignature(body, signature) {
			t.Errorf("isValidSignature() expected true")
		}

		invalidSig := (&githubWebhookHandler{secret: "wrong", log: slog.Default()}).computeHMAC(body)
		if wh.isValidSignature(body, invalidSig) {
			t.Errorf("isValidSignature() expected false")
		}

		if wh.isValidSignature([]byte{}, "") {
			t.Errorf("isValidSignature() expected false for empty signature")
		}
	})

	t.Run("invalid method", func(t *testing.T) {
		server := httptest.NewServer(http.Handler(wh))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, strings.NewReader(string(body)))
		if err != nil {
			t.Fatalf("Failed to make a request: %v", err)
		}
		req.Header.Set("X-Hub-Signature-256", signature)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("ping event", func(t *testing.T) {
		server := httptest.NewServer(http.Handler(wh))
		defer server.Close()

		req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(string(body)))
		if err != nil {
			t.Fatalf("Failed to make a request: %v", err)
		}
		req.Header.Set("X-Hub-Signature-256", signature)
		req.Header.Set("X-GitHub-Event", "ping")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusOK)
		}

		reply, _ := io.ReadAll(resp.Body)
		if string(reply) != "pong" {
			t.Errorf("body = %q, want pong", reply)
		}
	})
}

func Test_processPushEvent_ignoresOtherRepos(t *testing.T) {
	wh := &githubWebhookHandler{
		mainURL: "https://example.com/app",
		log:     slog.Default(),
	}
	var event githubPushEvent
	event.Repository.HTMLURL = "https://example.com/unrelated"

	// meta/root are nil: if processPushEvent tried to run an update it
	// would panic, so a clean return demonstrates the mismatch was caught.
	wh.processPushEvent(event)
}
