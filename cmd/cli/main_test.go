package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func withServer(t *testing.T, path, response string, fn func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(response))
	}))
	defer server.Close()

	origURL := baseURL
	baseURL = server.URL
	defer func() { baseURL = origURL }()

	fn()
}

func TestListPendingEventsEmpty(t *testing.T) {
	withServer(t, "/api/v1/outbox/pending", `[]`, func() {
		out := captureOutput(t, listPendingEvents)
		if strings.TrimSpace(out) != "No pending events" {
			t.Fatalf("unexpected output: %q", out)
		}
	})
}

func TestListPendingEvents(t *testing.T) {
	response := `[{"id":"evt-1","event_type":"TRANSACTION_POSTED","aggregate_type":"transaction","aggregate_id":"txn-1","retry_count":2,"last_error":"stream unavailable"}]`

	withServer(t, "/api/v1/outbox/pending", response, func() {
		out := captureOutput(t, listPendingEvents)
		if !strings.Contains(out, "evt-1") || !strings.Contains(out, "TRANSACTION_POSTED") {
			t.Fatalf("missing event line in output: %q", out)
		}
		if !strings.Contains(out, "last error: stream unavailable") {
			t.Fatalf("missing last error line in output: %q", out)
		}
	})
}

func TestPrintSubtree(t *testing.T) {
	response := `[{"id":"acc-1","code":"1000","name":"Assets","type":"asset"},{"id":"acc-2","code":"1100","name":"Cash","type":"asset"}]`

	withServer(t, "/api/v1/accounts/acc-1/subtree", response, func() {
		out := captureOutput(t, func() { printSubtree("acc-1") })

		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
		}
		if !strings.HasPrefix(lines[0], "acc-1") || !strings.HasPrefix(lines[1], "acc-2") {
			t.Fatalf("unexpected ordering: %q", out)
		}
	})
}
