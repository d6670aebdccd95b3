package internal

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadBodyStrict_ReturnsRawBytes(t *testing.T) {
	raw := `{"event":"charge.success",  "data":{"amount":1.50}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
	rec := httptest.NewRecorder()

	body, err := ReadBodyStrict(rec, req, 1024)
	if err != nil {
		t.Fatalf("ReadBodyStrict failed: %v", err)
	}
	if string(body) != raw {
		t.Errorf("body changed: got %q, want %q", body, raw)
	}
}

func TestReadBodyStrict_TooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 100)))
	rec := httptest.NewRecorder()

	_, err := ReadBodyStrict(rec, req, 10)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReadBodyStrict_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	rec := httptest.NewRecorder()

	_, err := ReadBodyStrict(rec, req, 10)
	if !errors.Is(err, ErrEmptyBody) {
		t.Errorf("Expected ErrEmptyBody, got %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSON(rec, http.StatusTeapot, map[string]string{"status": "ok"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
}
