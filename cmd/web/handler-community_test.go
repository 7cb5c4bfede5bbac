package main

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func Test_application_community(t *testing.T) {
	var (
		ctx = t.Context()
		doc *goquery.Document
	)
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	ada := server.Client()
	if _, err = ada.Register(ctx); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	bob, err := server.NewClient()
	if err != nil {
		t.Fatalf("Failed to create second client: %v", err)
	}
	if _, err = bob.Register(ctx); err != nil {
		t.Fatalf("Failed to register second user: %v", err)
	}

	t.Run("Points from completed workout", func(t *testing.T) {
		if doc, err = ada.GetDoc(ctx, "/schedule"); err != nil {
			t.Fatalf("Failed to get schedule: %v", err)
		}
		if doc, err = ada.SubmitForm(ctx, doc, "/schedule/generate", nil); err != nil {
			t.Fatalf("Failed to generate week: %v", err)
		}
		id := doc.Find("[data-test='slot']").First().AttrOr("data-slot-id", "")
		if _, err = ada.SubmitForm(ctx, doc, "/schedule/"+id+"/complete", nil); err != nil {
			t.Fatalf("Failed to complete slot: %v", err)
		}

		if doc, err = ada.GetDoc(ctx, "/community"); err != nil {
			t.Fatalf("Failed to get community: %v", err)
		}
		if got := doc.Find("[data-test='points']").Text(); got != "10" {
			t.Errorf("Expected 10 points, got %q", got)
		}
		leader := doc.Find("[data-test='leaderboard-entry']").First()
		if leader.AttrOr("data-rank", "") != "1" || leader.AttrOr("aria-current", "") != "true" {
			t.Errorf("Expected current user to lead, got rank %q", leader.AttrOr("data-rank", ""))
		}
		if n := doc.Find("[data-test='leaderboard-entry']").Length(); n != 2 {
			t.Errorf("Expected 2 leaderboard entries, got %d", n)
		}
	})

	t.Run("Create challenge", func(t *testing.T) {
		doc, err = ada.SubmitForm(ctx, doc, "/challenges", map[string]string{
			"Title":       "Plank week",
			"Description": "Hold a plank for **two minutes** every day.",
		})
		if err != nil {
			t.Fatalf("Failed to create challenge: %v", err)
		}
		challenge := doc.Find("[data-test='challenge']")
		if challenge.Length() != 1 {
			t.Fatalf("Expected 1 challenge, got %d", challenge.Length())
		}
		if got := challenge.Find("h3").Text(); got != "Plank week" {
			t.Errorf("Expected title Plank week, got %q", got)
		}
		if got := challenge.Find("strong").Text(); got != "two minutes" {
			t.Errorf("Expected rendered markdown, got %q", got)
		}
		if challenge.Find("[data-test='joined']").Length() != 1 {
			t.Error("Expected creator to have joined")
		}
	})

	t.Run("Reject empty title", func(t *testing.T) {
		_, err = ada.SubmitForm(ctx, doc, "/challenges", map[string]string{"Title": "  "})
		if !containsStatusError(err, 422) {
			t.Errorf("Expected status 422, got %v", err)
		}
	})

	t.Run("Join", func(t *testing.T) {
		if doc, err = bob.GetDoc(ctx, "/community"); err != nil {
			t.Fatalf("Failed to get community: %v", err)
		}
		id := doc.Find("[data-test='challenge']").AttrOr("data-challenge-id", "")
		if doc, err = bob.SubmitForm(ctx, doc, "/challenges/"+id+"/join", nil); err != nil {
			t.Fatalf("Failed to join challenge: %v", err)
		}
		challenge := doc.Find("[data-test='challenge']")
		if got := strings.TrimSpace(challenge.Find("[data-test='participants']").Text()); got != "2" {
			t.Errorf("Expected 2 participants, got %q", got)
		}
		if challenge.Find("[data-test='joined']").Length() != 1 {
			t.Error("Expected second user to have joined")
		}
	})
}
