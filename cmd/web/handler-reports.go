package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/fitplan/internal/errors"
)

const maxReportBodySize = 64 * 1024

// legacyCSPReport is the report-uri payload sent by browsers without Reporting API support.
type legacyCSPReport struct {
	CSPReport struct {
		DocumentURI       string `json:"document-uri"`
		ViolatedDirective string `json:"violated-directive"`
		BlockedURI        string `json:"blocked-uri"`
		SourceFile        string `json:"source-file"`
		LineNumber        int    `json:"line-number"`
	} `json:"csp-report"`
}

// reportingAPIReport is one element of an application/reports+json batch.
type reportingAPIReport struct {
	Type string         `json:"type"`
	URL  string         `json:"url"`
	Body map[string]any `json:"body"`
}

// reports logs CSP violations and other browser reports. Both the report-uri and the Reporting API formats are
// accepted on the same endpoint.
func (app *application) reports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBodySize))
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "read report body", errors.SlogError(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	userAgent := slog.String("user_agent", r.Header.Get("User-Agent"))

	if r.Header.Get("Content-Type") == "application/reports+json" {
		var batch []reportingAPIReport
		if err = json.Unmarshal(body, &batch); err != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "parse report batch", errors.SlogError(err))
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		for _, report := range batch {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "browser report",
				slog.String("type", report.Type),
				slog.String("url", report.URL),
				slog.Any("body", report.Body),
				userAgent)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var report legacyCSPReport
	if err = json.Unmarshal(body, &report); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "parse CSP report", errors.SlogError(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelWarn, "CSP violation",
		slog.String("document_uri", report.CSPReport.DocumentURI),
		slog.String("violated_directive", report.CSPReport.ViolatedDirective),
		slog.String("blocked_uri", report.CSPReport.BlockedURI),
		slog.String("source_file", report.CSPReport.SourceFile),
		slog.Int("line_number", report.CSPReport.LineNumber),
		userAgent)
	w.WriteHeader(http.StatusNoContent)
}
