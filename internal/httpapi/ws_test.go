package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"lecturegen/internal/status"
)

func TestHandleStatusLive_StreamsSnapshotThenUpdate(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/status/p1/live"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	var first status.Status
	if err := json.Unmarshal(data, &first); err != nil {
		t.Fatalf("decode initial snapshot: %v", err)
	}
	if first.StepUnderstanding != status.NotStarted {
		t.Fatalf("expected initial snapshot NOT_STARTED, got %v", first.StepUnderstanding)
	}

	inProgress := status.InProgress
	patch := status.StatusPatch{StepUnderstanding: &inProgress}
	body, _ := json.Marshal(patch)
	req := httptest.NewRequest(http.MethodPatch, "/status/p1/update", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusNonAuthoritativeInfo {
		t.Fatalf("patch setup failed: %d", w.Code)
	}

	_, data2, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read update: %v", err)
	}
	var second status.Status
	if err := json.Unmarshal(data2, &second); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if second.StepUnderstanding != status.InProgress {
		t.Fatalf("expected pushed update IN_PROGRESS, got %v", second.StepUnderstanding)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
}
