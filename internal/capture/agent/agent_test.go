package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"briefcast/internal/capture"
	"briefcast/internal/logging"
	"briefcast/internal/testsupport"
)

type fakeContext struct {
	state []byte
}

func (f *fakeContext) StorageState(ctx context.Context) ([]byte, error) { return f.state, nil }
func (f *fakeContext) Close() error                                     { return nil }

type fakeBrowser struct{}

func (fakeBrowser) Open(ctx context.Context, origin string) (capture.AutomationContext, error) {
	return &fakeContext{state: []byte(`{"cookies":[]}`)}, nil
}

func newTestAgent(t *testing.T, backendURL string) *Server {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	controller := capture.NewController(cfg, fakeBrowser{}, logging.NewNop())
	uploader := capture.NewUploader(backendURL, cfg.Paths.CredentialsDir, logging.NewNop())
	return New(cfg, controller, uploader, logging.NewNop())
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateCompleteUploadFlow(t *testing.T) {
	var uploaded bool
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploaded = true
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	agent := newTestAgent(t, backend.URL)
	handler := agent.Handler()

	rec := postJSON(t, handler, "/authenticate", map[string]string{"user_id": "user-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticate: %d %s", rec.Code, rec.Body)
	}
	var started capture.StartResult
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start result: %v", err)
	}
	if started.Handle == "" {
		t.Fatal("expected a capture handle")
	}

	rec = postJSON(t, handler, "/complete-auth", map[string]string{
		"user_id": "user-1", "handle": started.Handle,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete-auth: %d %s", rec.Code, rec.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/status?user_id=user-1", nil)
	statusRec := httptest.NewRecorder()
	handler.ServeHTTP(statusRec, req)
	var status struct {
		Capture      capture.Status `json:"capture"`
		LocalSession bool           `json:"local_session"`
	}
	if err := json.Unmarshal(statusRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Capture.Active {
		t.Fatal("capture should be finished")
	}
	if !status.LocalSession {
		t.Fatal("local session should exist after complete-auth")
	}

	rec = postJSON(t, handler, "/upload", map[string]string{"user_id": "user-1", "token": "tok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body)
	}
	if !uploaded {
		t.Fatal("backend should have received the upload")
	}
}

func TestSecondAuthenticateConflicts(t *testing.T) {
	agent := newTestAgent(t, "http://127.0.0.1:1")
	handler := agent.Handler()

	if rec := postJSON(t, handler, "/authenticate", map[string]string{"user_id": "user-1"}); rec.Code != http.StatusOK {
		t.Fatalf("first authenticate: %d", rec.Code)
	}
	rec := postJSON(t, handler, "/authenticate", map[string]string{"user_id": "user-2"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCompleteAuthWithoutCapture(t *testing.T) {
	agent := newTestAgent(t, "http://127.0.0.1:1")
	rec := postJSON(t, agent.Handler(), "/complete-auth", map[string]string{
		"user_id": "user-1", "handle": "nope",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", rec.Code, rec.Body)
	}
}

func TestUploadWithoutLocalSession(t *testing.T) {
	agent := newTestAgent(t, "http://127.0.0.1:1")
	rec := postJSON(t, agent.Handler(), "/upload", map[string]string{"user_id": "user-1", "token": "tok"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", rec.Code, rec.Body)
	}
}

func TestMethodAndBodyValidation(t *testing.T) {
	agent := newTestAgent(t, "http://127.0.0.1:1")
	handler := agent.Handler()

	req := httptest.NewRequest(http.MethodGet, "/authenticate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/authenticate", bytes.NewReader([]byte("{bad json")))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
