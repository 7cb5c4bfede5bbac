package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

type timeoutResponseWriter struct {
	httptest.ResponseRecorder
}

func newTimeoutResponseWriter() *timeoutResponseWriter {
	return &timeoutResponseWriter{
		ResponseRecorder: *httptest.NewRecorder(),
	}
}

// SetWriteDeadline is needed to not get "feature not implemented" error.
func (w *timeoutResponseWriter) SetWriteDeadline(_ time.Time) error {
	return nil
}

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		sleep    time.Duration
		isAdmin  bool
		timesOut bool
	}{
		{name: "completes within timeout", sleep: 500 * time.Millisecond, isAdmin: false, timesOut: false},
		{name: "times out for regular user", sleep: 3 * time.Second, isAdmin: false, timesOut: true},
		{name: "admin gets longer timeout", sleep: 28 * time.Second, isAdmin: true, timesOut: false},
		{name: "admin times out", sleep: 31 * time.Second, isAdmin: true, timesOut: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app := &application{ //nolint:exhaustruct // this is a test
					logger: testhelpers.NewLogger(testhelpers.NewWriter(t)),
				}
				slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-time.After(tt.sleep):
						_, _ = w.Write([]byte(`{"status":"completed"}`))
					case <-r.Context().Done():
					}
				})

				req := httptest.NewRequest(http.MethodGet, "/schedule", nil)
				if tt.isAdmin {
					req = contexthelpers.AuthenticateContext(req, 1, true)
				}
				w := newTimeoutResponseWriter()

				app.timeout(slow).ServeHTTP(w, req)

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}
					if !strings.Contains(w.Body.String(), "timed out") {
						t.Errorf("Expected timeout message in response body, got: %s", w.Body.String())
					}
				} else if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}
}

func Test_application_cors(t *testing.T) {
	t.Parallel()
	app := &application{ //nolint:exhaustruct // this is a test
		corsOrigins: []string{"https://dashboard.example.com"},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := app.cors(next)

	tests := []struct {
		name            string
		method          string
		origin          string
		wantAllowOrigin string
	}{
		{name: "allowed preflight", method: http.MethodOptions, origin: "https://dashboard.example.com",
			wantAllowOrigin: "https://dashboard.example.com"},
		{name: "allowed request", method: http.MethodGet, origin: "https://dashboard.example.com",
			wantAllowOrigin: "https://dashboard.example.com"},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.example.com", wantAllowOrigin: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/api/v1/schedule", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Access-Control-Allow-Origin: want %q, got %q", tt.wantAllowOrigin, got)
			}
			if tt.wantAllowOrigin != "" && w.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("Expected credentials to be allowed")
			}
		})
	}
}
