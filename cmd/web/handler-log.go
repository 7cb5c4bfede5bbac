package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/fitplan/internal/planner"
)

func (app *application) workoutsPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}
	date, err := formDate(r, "date", app.tracker.Today())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	workoutType := r.PostForm.Get("workout_type")
	duration, err := formInt(r, "duration_min")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if duration == 0 {
		duration = planner.WorkoutDuration(workoutType)
	}
	calories, err := formInt(r, "calories_burned")
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err = app.tracker.LogWorkout(r.Context(), planner.WorkoutRecord{
		Date:           date,
		WorkoutType:    workoutType,
		DurationMin:    duration,
		CaloriesBurned: calories,
	}); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, "/")
}

func (app *application) dietPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}
	var (
		record = planner.DietRecord{MealType: r.PostForm.Get("meal_type")} //nolint:exhaustruct // parsed below
		err    error
	)
	if record.Date, err = formDate(r, "date", app.tracker.Today()); err != nil {
		app.handleError(w, r, err)
		return
	}
	if record.Calories, err = formInt(r, "calories"); err != nil {
		app.handleError(w, r, err)
		return
	}
	for key, dst := range map[string]*float64{
		"protein_g": &record.ProteinG,
		"carbs_g":   &record.CarbsG,
		"fats_g":    &record.FatsG,
	} {
		if *dst, err = formFloat(r, key); err != nil {
			app.handleError(w, r, err)
			return
		}
	}

	if err = app.tracker.LogDiet(r.Context(), record); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, "/")
}

// wearablesPOST stores a wearable sync. Poor sleep reduces the next scheduled workout, which the schedule page
// shows, so the user is sent there in that case.
func (app *application) wearablesPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}
	var (
		sample = planner.WearableSample{RecordedAt: time.Now().UTC()} //nolint:exhaustruct // parsed below
		err    error
	)
	if sample.Steps, err = formInt(r, "steps"); err != nil {
		app.handleError(w, r, err)
		return
	}
	if sample.HeartRate, err = formInt(r, "heart_rate"); err != nil {
		app.handleError(w, r, err)
		return
	}
	if sample.SleepHours, err = formFloat(r, "sleep_hours"); err != nil {
		app.handleError(w, r, err)
		return
	}
	if sample.CaloriesBurned, err = formInt(r, "calories_burned"); err != nil {
		app.handleError(w, r, err)
		return
	}

	outcome, err := app.tracker.SubmitWearable(r.Context(), sample)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if outcome.Adjusted != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "wearable sync adjusted the schedule",
			slog.Int("slot_id", outcome.Adjusted.ID))
		redirect(w, r, "/schedule")
		return
	}
	redirect(w, r, "/")
}
