package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func Test_application_apiV1(t *testing.T) {
	ctx := t.Context()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	t.Run("Unauthenticated", func(t *testing.T) {
		anonymous, clientErr := server.NewClient()
		if clientErr != nil {
			t.Fatalf("Failed to create client: %v", clientErr)
		}
		for _, path := range []string{"/api/v1/schedule", "/api/v1/recommendations"} {
			resp, getErr := anonymous.Get(ctx, path)
			if getErr != nil {
				t.Fatalf("Failed to get %s: %v", path, getErr)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("%s: expected status 401, got %d", path, resp.StatusCode)
			}
		}
	})

	client := server.Client()
	doc, err := client.Register(ctx)
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if doc, err = client.GetDoc(ctx, "/schedule"); err != nil {
		t.Fatalf("Failed to get schedule: %v", err)
	}
	if _, err = client.SubmitForm(ctx, doc, "/schedule/generate", nil); err != nil {
		t.Fatalf("Failed to generate week: %v", err)
	}

	t.Run("Schedule", func(t *testing.T) {
		resp, getErr := client.Get(ctx, "/api/v1/schedule")
		if getErr != nil {
			t.Fatalf("Failed to get schedule: %v", getErr)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		var got apiSchedule
		if getErr = json.NewDecoder(resp.Body).Decode(&got); getErr != nil {
			t.Fatalf("Failed to decode: %v", getErr)
		}
		if len(got.Slots) != 4 {
			t.Fatalf("Expected 4 slots, got %d", len(got.Slots))
		}
		if got.Slots[0].WorkoutType != "Running" || got.Slots[0].Status != "pending" {
			t.Errorf("Unexpected first slot %+v", got.Slots[0])
		}
		if got.SleepQuality != "unknown" {
			t.Errorf("Expected unknown sleep, got %q", got.SleepQuality)
		}
		if got.CoachNote == "" {
			t.Error("Expected a coach note")
		}
	})

	t.Run("Recommendations", func(t *testing.T) {
		resp, getErr := client.Get(ctx, "/api/v1/recommendations")
		if getErr != nil {
			t.Fatalf("Failed to get recommendations: %v", getErr)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		var got apiRecommendations
		if getErr = json.NewDecoder(resp.Body).Decode(&got); getErr != nil {
			t.Fatalf("Failed to decode: %v", getErr)
		}
		// Default profile: 25 years, 70 kg, 170 cm, male, moderately active.
		if got.Calories.Maintenance.Source != "rules" {
			t.Errorf("Expected rule-based calories without history, got %q", got.Calories.Maintenance.Source)
		}
		if got.Calories.WeightLoss.Value != got.Calories.Maintenance.Value-500 {
			t.Errorf("Expected 500 kcal deficit, got %d vs %d",
				got.Calories.WeightLoss.Value, got.Calories.Maintenance.Value)
		}
		if got.ProteinGPerDay != 112 {
			t.Errorf("Expected 112 g protein, got %v", got.ProteinGPerDay)
		}
	})
}
