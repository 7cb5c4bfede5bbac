package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/tracker"
)

type scheduleTemplateData struct {
	BaseTemplateData
	tracker.ScheduleOverview
	Today string
}

func (app *application) scheduleGET(w http.ResponseWriter, r *http.Request) {
	overview, err := app.tracker.Schedule(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "schedule", scheduleTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		ScheduleOverview: overview,
		Today:            planner.FormatDate(app.tracker.Today()),
	})
}

func (app *application) scheduleGeneratePOST(w http.ResponseWriter, r *http.Request) {
	slots, err := app.tracker.GenerateWeek(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelInfo, "generated week", slog.Int("slots", len(slots)))
	redirect(w, r, "/schedule")
}

func (app *application) scheduleAdjustPOST(w http.ResponseWriter, r *http.Request) {
	if _, err := app.tracker.AdjustUpcoming(r.Context()); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, "/schedule")
}

func (app *application) scheduleCompletePOST(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseIDParam(w, r)
	if !ok {
		return
	}
	if _, err := app.tracker.CompleteSlot(r.Context(), id); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, "/schedule")
}
