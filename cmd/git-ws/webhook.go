package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/utilitywarehouse/git-ws/workspace"
)

// githubPushEvent is the subset of a GitHub push webhook payload needed to
// decide whether an update should run.
type githubPushEvent struct {
	Repository struct {
		HTMLURL string `json:"html_url"`
		GitURL  string `json:"git_url"`
	} `json:"repository"`
	Ref string `json:"ref"`
}

// githubWebhookHandler triggers an update pass whenever GitHub reports a
// push to the workspace's main project, instead of waiting for the next
// `serve` interval tick.
type githubWebhookHandler struct {
	root    string
	meta    *workspace.Metadata
	mainURL string
	secret  string
	log     *slog.Logger
}

func (wh *githubWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		wh.log.Error("cannot read webhook request body", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !wh.isValidSignature(body, r.Header.Get("X-Hub-Signature-256")) {
		wh.log.Error("invalid webhook signature")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event := r.Header.Get("X-GitHub-Event")

	var payload githubPushEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		wh.log.Error("cannot unmarshal webhook payload", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if event == "ping" {
		w.Write([]byte("pong"))
		return
	}

	if event == "push" {
		w.WriteHeader(http.StatusOK)
		go wh.processPushEvent(payload)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (wh *githubWebhookHandler) isValidSignature(message []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(wh.computeHMAC(message)))
}

func (wh *githubWebhookHandler) computeHMAC(message []byte) string {
	mac := hmac.New(sha256.New, []byte(wh.secret))
	if _, err := mac.Write(message); err != nil {
		wh.log.Error("cannot compute webhook hmac", "err", err)
		return ""
	}
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// processPushEvent re-runs update only when the push targets the main
// project's own remote; pushes to arbitrary other repositories (GitHub
// organizations often point every repo's webhook at the same endpoint)
// are ignored.
func (wh *githubWebhookHandler) processPushEvent(event githubPushEvent) {
	if wh.mainURL == "" {
		return
	}
	if event.Repository.HTMLURL != wh.mainURL && event.Repository.GitURL != wh.mainURL {
		return
	}
	if rc := runUpdateIn(wh.root, wh.meta, defaultUpdateOptions(nil)); rc != 0 {
		wh.log.Error("webhook-triggered update failed", "ref", event.Ref)
	}
}
