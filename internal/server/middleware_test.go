package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wastetrace/wastetrace/internal/model"
	"github.com/wastetrace/wastetrace/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(discardLogger(), panicking)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var envelope struct {
		Error model.ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not the error envelope: %v", err)
	}
	if envelope.Error.Code != model.ErrCodeInternalError {
		t.Errorf("got code %q, want %q", envelope.Error.Code, model.ErrCodeInternalError)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})
	handler := requestIDMiddleware(inner)

	// A caller-supplied ID passes through.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "supplied-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "supplied-id" {
		t.Errorf("got request ID %q, want %q", seen, "supplied-id")
	}

	// Absent one, an ID is generated.
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if seen == "" || seen == "supplied-id" {
		t.Errorf("expected a fresh generated request ID, got %q", seen)
	}
}

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", model.Invalidf("bad input"), http.StatusBadRequest, model.ErrCodeInvalidInput},
		{"not found", storage.ErrNotFound, http.StatusNotFound, model.ErrCodeNotFound},
		{"email taken", storage.ErrEmailTaken, http.StatusConflict, model.ErrCodeConflict},
		{"not owner", storage.ErrNotOwner, http.StatusForbidden, model.ErrCodeForbidden},
		{"invalid transition", storage.ErrInvalidTransition, http.StatusConflict, model.ErrCodeConflict},
		{"already completed", storage.ErrAlreadyCompleted, http.StatusConflict, model.ErrCodeConflict},
		{"insufficient balance", storage.ErrInsufficientBalance, http.StatusConflict, model.ErrCodeInsufficientBalance},
		{"out of stock", storage.ErrOutOfStock, http.StatusConflict, model.ErrCodeOutOfStock},
		{"self transfer", storage.ErrSelfTransfer, http.StatusBadRequest, model.ErrCodeSelfTransfer},
		{"tx conflict", storage.ErrConflict, http.StatusConflict, model.ErrCodeConflict},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, model.ErrCodeInternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest("GET", "/", nil), discardLogger(), tc.err)

			if rec.Code != tc.wantStatus {
				t.Errorf("got status %d, want %d", rec.Code, tc.wantStatus)
			}
			var envelope struct {
				Error model.ErrorDetail `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("response is not the error envelope: %v", err)
			}
			if envelope.Error.Code != tc.wantCode {
				t.Errorf("got code %q, want %q", envelope.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=25", nil)
	if got := queryInt(r, "limit", 10); got != 25 {
		t.Errorf("got %d, want 25", got)
	}
	if got := queryInt(r, "missing", 10); got != 10 {
		t.Errorf("got %d, want default 10", got)
	}
	r = httptest.NewRequest("GET", "/?limit=junk", nil)
	if got := queryInt(r, "limit", 10); got != 10 {
		t.Errorf("got %d, want default 10 for junk", got)
	}
}
