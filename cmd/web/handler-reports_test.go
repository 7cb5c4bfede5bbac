package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/myrjola/fitplan/internal/testhelpers"
)

func Test_application_reports(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantLog     string
	}{
		{
			name:        "legacy CSP report",
			contentType: "application/csp-report",
			body: `{"csp-report":{"document-uri":"https://fitplan.example/schedule",` +
				`"violated-directive":"script-src","blocked-uri":"inline"}}`,
			wantStatus: http.StatusNoContent,
			wantLog:    "violated_directive=script-src",
		},
		{
			name:        "reporting API batch",
			contentType: "application/reports+json",
			body: `[{"type":"csp-violation","url":"https://fitplan.example/",` +
				`"body":{"effectiveDirective":"img-src"}}]`,
			wantStatus: http.StatusNoContent,
			wantLog:    "type=csp-violation",
		},
		{
			name:        "malformed body",
			contentType: "application/json",
			body:        `{"csp-report":`,
			wantStatus:  http.StatusBadRequest,
			wantLog:     "parse CSP report",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var logs bytes.Buffer
			app := &application{ //nolint:exhaustruct // this is a test
				logger: testhelpers.NewLogger(&logs),
			}
			req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			app.reports(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("want status %d, got %d", tt.wantStatus, w.Code)
			}
			if !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("expected log to contain %q, got %s", tt.wantLog, logs.String())
			}
		})
	}
}
