package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/recommend"
	"github.com/myrjola/fitplan/internal/tracker"
)

type apiSlot struct {
	ID            int    `json:"id"`
	ScheduledDate string `json:"scheduled_date"`
	WorkoutType   string `json:"workout_type"`
	DurationMin   int    `json:"duration_min"`
	Status        string `json:"status"`
	Note          string `json:"note,omitempty"`
}

type apiAdjustment struct {
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	Magnitude float64 `json:"magnitude,omitempty"`
	RestDay   bool    `json:"rest_day,omitempty"`
}

type apiSchedule struct {
	Slots           []apiSlot       `json:"slots"`
	AdherenceRate   float64         `json:"adherence_rate"`
	SleepQuality    string          `json:"sleep_quality"`
	SleepScore      float64         `json:"sleep_score"`
	Adjustments     []apiAdjustment `json:"adjustments"`
	Recommendations []string        `json:"recommendations"`
	CoachNote       string          `json:"coach_note"`
}

type apiRecommendation[T any] struct {
	Value  T      `json:"value"`
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

type apiRecommendations struct {
	Calories struct {
		Maintenance apiRecommendation[int] `json:"maintenance"`
		WeightLoss  apiRecommendation[int] `json:"weight_loss"`
		WeightGain  apiRecommendation[int] `json:"weight_gain"`
	} `json:"calories"`
	Workout        apiRecommendation[string] `json:"workout"`
	ProteinGPerDay float64                   `json:"protein_g_per_day"`
	Diet           struct {
		MaintenanceCalories int     `json:"maintenance_calories"`
		ProteinGPerKg       float64 `json:"protein_g_per_kg"`
		ProteinG            float64 `json:"protein_g"`
		AvgSteps            int     `json:"avg_steps"`
		Note                string  `json:"note,omitempty"`
	} `json:"diet"`
	SleepQuality string `json:"sleep_quality"`
}

func newAPIRecommendation[T any](rec recommend.Recommendation[T]) apiRecommendation[T] {
	return apiRecommendation[T]{Value: rec.Value, Source: string(rec.Source), Reason: rec.Reason}
}

func newAPISchedule(overview tracker.ScheduleOverview) apiSchedule {
	out := apiSchedule{
		Slots:           make([]apiSlot, len(overview.Slots)),
		AdherenceRate:   overview.Adherence.AdherenceRate,
		SleepQuality:    string(overview.Sleep.Quality),
		SleepScore:      overview.Sleep.Score,
		Adjustments:     make([]apiAdjustment, len(overview.Adjustment.Adjustments)),
		Recommendations: overview.Adjustment.Recommendations,
		CoachNote:       overview.CoachNote.Text,
	}
	for i, slot := range overview.Slots {
		out.Slots[i] = apiSlot{
			ID:            slot.ID,
			ScheduledDate: planner.FormatDate(slot.ScheduledDate),
			WorkoutType:   slot.WorkoutType,
			DurationMin:   slot.DurationMin,
			Status:        string(slot.Status),
			Note:          slot.Note,
		}
	}
	for i, adj := range overview.Adjustment.Adjustments {
		out.Adjustments[i] = apiAdjustment{
			Type:      string(adj.Type),
			Message:   adj.Message,
			Magnitude: adj.Magnitude,
			RestDay:   adj.RestDay,
		}
	}
	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}
	return out
}

func newAPIRecommendations(recs tracker.Recommendations) apiRecommendations {
	var out apiRecommendations
	out.Calories.Maintenance = newAPIRecommendation(recs.Maintenance)
	out.Calories.WeightLoss = newAPIRecommendation(recs.WeightLoss)
	out.Calories.WeightGain = newAPIRecommendation(recs.WeightGain)
	out.Workout = newAPIRecommendation(recs.Workout)
	out.ProteinGPerDay = recs.ProteinGPerDay
	out.Diet.MaintenanceCalories = recs.Diet.MaintenanceCalories
	out.Diet.ProteinGPerKg = recs.Diet.ProteinGPerKg
	out.Diet.ProteinG = recs.Diet.ProteinG
	out.Diet.AvgSteps = recs.Diet.AvgSteps
	out.Diet.Note = recs.Diet.Note
	out.SleepQuality = string(recs.Sleep.Quality)
	return out
}

func (app *application) apiScheduleGET(w http.ResponseWriter, r *http.Request) {
	overview, err := app.tracker.Schedule(r.Context())
	if err != nil {
		app.apiError(w, r, err)
		return
	}
	app.respondJSON(w, r, newAPISchedule(overview))
}

func (app *application) apiRecommendationsGET(w http.ResponseWriter, r *http.Request) {
	recs, err := app.tracker.Recommendations(r.Context())
	if err != nil {
		app.apiError(w, r, err)
		return
	}
	app.respondJSON(w, r, newAPIRecommendations(recs))
}

func (app *application) respondJSON(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "write JSON response", errors.SlogError(err))
	}
}

func (app *application) apiError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tracker.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound)
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelError, "api error", errors.SlogError(err))
	writeJSONError(w, http.StatusInternalServerError)
}
