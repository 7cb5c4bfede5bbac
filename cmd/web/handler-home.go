package main

import (
	"net/http"

	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/tracker"
)

type homeTemplateData struct {
	BaseTemplateData
	Dashboard    tracker.Dashboard
	WorkoutTypes []string
	MealTypes    []string
	Today        string
}

// workoutTypes are offered in the workout log form. The database accepts free-form types too.
func workoutTypes() []string {
	return []string{"Running", "Cycling", "Swimming", "Weightlifting", "HIIT", "Walking", "Yoga"}
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Dashboard:        tracker.Dashboard{}, //nolint:exhaustruct // filled for authenticated users
		WorkoutTypes:     workoutTypes(),
		MealTypes:        tracker.MealTypes(),
		Today:            planner.FormatDate(app.tracker.Today()),
	}

	if data.Authenticated {
		dashboard, err := app.tracker.Dashboard(r.Context())
		if err != nil {
			app.handleError(w, r, err)
			return
		}
		data.Dashboard = dashboard
	}

	app.render(w, r, http.StatusOK, "home", data)
}
