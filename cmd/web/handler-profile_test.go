package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func Test_application_profile(t *testing.T) {
	var (
		ctx = t.Context()
		doc *goquery.Document
	)
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()
	if _, err = client.Register(ctx); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	t.Run("Defaults", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/profile"); err != nil {
			t.Fatalf("Failed to get profile: %v", err)
		}
		if name, _ := doc.Find("#display-name").Attr("value"); !strings.HasPrefix(name, "Athlete ") {
			t.Errorf("Expected generated athlete name, got %q", name)
		}
		if got := doc.Find("#activity-level option[selected]").AttrOr("value", ""); got != "moderate" {
			t.Errorf("Expected moderate activity level, got %q", got)
		}
	})

	t.Run("Update", func(t *testing.T) {
		doc, err = client.SubmitForm(ctx, doc, "/profile", map[string]string{
			"Display name":   "Ada",
			"Age":            "36",
			"Weight (kg)":    "61.5",
			"Activity level": "very_active",
			"Goal":           "weight_gain",
			"Gender":         "Other",
		})
		if err != nil {
			t.Fatalf("Failed to update profile: %v", err)
		}
		tests := []struct {
			selector string
			attr     string
			want     string
		}{
			{selector: "#display-name", attr: "value", want: "Ada"},
			{selector: "#age", attr: "value", want: "36"},
			{selector: "#weight", attr: "value", want: "61.5"},
			{selector: "#height", attr: "value", want: "170"},
			{selector: "#activity-level option[selected]", attr: "value", want: "very_active"},
			{selector: "#goal option[selected]", attr: "value", want: "weight_gain"},
			{selector: "#gender option[selected]", attr: "value", want: "Other"},
		}
		for _, tt := range tests {
			if got := doc.Find(tt.selector).AttrOr(tt.attr, ""); got != tt.want {
				t.Errorf("%s: want %q, got %q", tt.selector, tt.want, got)
			}
		}
	})

	t.Run("Invalid age is rejected", func(t *testing.T) {
		_, err = client.SubmitForm(ctx, doc, "/profile", map[string]string{"Age": "7"})
		if !containsStatusError(err, 422) {
			t.Errorf("Expected status 422, got %v", err)
		}
	})

	t.Run("Dashboard greets by name", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/"); err != nil {
			t.Fatalf("Failed to get dashboard: %v", err)
		}
		if got := doc.Find("h1").Text(); got != "Hi Ada" {
			t.Errorf("Expected greeting for Ada, got %q", got)
		}
	})
}

func Test_application_exportAndDeleteUser(t *testing.T) {
	ctx := t.Context()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()
	doc, err := client.Register(ctx)
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if _, err = client.SubmitForm(ctx, doc, "/workouts", map[string]string{"Workout type": "Running"}); err != nil {
		t.Fatalf("Failed to log workout: %v", err)
	}

	t.Run("Export", func(t *testing.T) {
		resp, getErr := client.Get(ctx, "/profile/export-data")
		if getErr != nil {
			t.Fatalf("Failed to export: %v", getErr)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/x-sqlite3" {
			t.Errorf("Expected SQLite content type, got %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
			t.Errorf("Expected attachment, got %q", cd)
		}
		header := make([]byte, len("SQLite format 3"))
		if _, getErr = io.ReadFull(resp.Body, header); getErr != nil {
			t.Fatalf("Failed to read export: %v", getErr)
		}
		if string(header) != "SQLite format 3" {
			t.Errorf("Expected SQLite file header, got %q", header)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/profile"); err != nil {
			t.Fatalf("Failed to get profile: %v", err)
		}
		if doc, err = client.SubmitForm(ctx, doc, "/profile/delete-user", nil); err != nil {
			t.Fatalf("Failed to delete user: %v", err)
		}
		checkButtonPresence(t, doc, "Register", 1)

		if n := countRows(ctx, t, server, "users"); n != 0 {
			t.Errorf("Expected no users, got %d", n)
		}
		if n := countRows(ctx, t, server, "workouts"); n != 0 {
			t.Errorf("Expected workouts to be deleted, got %d", n)
		}
	})
}

func countRows(ctx context.Context, t *testing.T, server *e2etest.Server, table string) int {
	t.Helper()
	var n int
	if err := server.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
