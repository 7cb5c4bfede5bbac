package coach_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/fitplan/internal/coach"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/testhelpers"
	"github.com/openai/openai-go/v3/option"
)

func adjustment() planner.ScheduleAdjustment {
	return planner.ScheduleAdjustment{
		Adjustments: []planner.Adjustment{{
			Type:      planner.AdjustReduceFrequency,
			Message:   "Low adherence detected. Reducing workout frequency by 20%.",
			Magnitude: -0.2,
		}},
		Recommendations: []string{"Consider scheduling fewer workouts per week to improve consistency."},
		Schedule: []planner.ScheduleSlot{{
			ScheduledDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
			WorkoutType:   "Running",
			DurationMin:   35,
			Status:        planner.SlotPending,
		}},
		AdherenceRate: 0.5,
		SleepScore:    0.9,
	}
}

func fakeOpenAI(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "2025-03-12 Running 35 min") {
			t.Errorf("prompt does not mention the schedule: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWriter_Write(t *testing.T) {
	t.Parallel()
	sleep := planner.DefaultSleepAnalyzer().Analyze([]float64{8, 8})

	t.Run("without api key", func(t *testing.T) {
		t.Parallel()
		w := coach.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), "", "")
		got := w.Write(t.Context(), adjustment(), sleep)
		want := coach.Note{
			Text:   "Consider scheduling fewer workouts per week to improve consistency.",
			Source: coach.SourceRules,
		}
		if got != want {
			t.Errorf("Write = %+v, want %+v", got, want)
		}
	})

	t.Run("nothing to adjust", func(t *testing.T) {
		t.Parallel()
		w := coach.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), "", "")
		got := w.Write(t.Context(), planner.ScheduleAdjustment{}, sleep)
		if got.Source != coach.SourceRules || !strings.Contains(got.Text, "looks good") {
			t.Errorf("Write = %+v", got)
		}
	})

	t.Run("chat model", func(t *testing.T) {
		t.Parallel()
		srv := fakeOpenAI(t, http.StatusOK, "  Take it easy this week and focus on showing up.  ")
		w := coach.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), "test-key", "",
			option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
		got := w.Write(t.Context(), adjustment(), sleep)
		want := coach.Note{Text: "Take it easy this week and focus on showing up.", Source: coach.SourceLLM}
		if got != want {
			t.Errorf("Write = %+v, want %+v", got, want)
		}
	})

	t.Run("chat model failure falls back", func(t *testing.T) {
		t.Parallel()
		srv := fakeOpenAI(t, http.StatusInternalServerError, "")
		w := coach.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), "test-key", "gpt-4o",
			option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
		got := w.Write(t.Context(), adjustment(), sleep)
		if got.Source != coach.SourceRules {
			t.Errorf("Source = %q, want rules", got.Source)
		}
	})

	t.Run("empty completion falls back", func(t *testing.T) {
		t.Parallel()
		srv := fakeOpenAI(t, http.StatusOK, "   ")
		w := coach.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), "test-key", "",
			option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
		if got := w.Write(t.Context(), adjustment(), sleep); got.Source != coach.SourceRules {
			t.Errorf("Source = %q, want rules", got.Source)
		}
	})
}
