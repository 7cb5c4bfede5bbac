package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/tracker"
)

const defaultChallengeDays = 7

type communityTemplateData struct {
	BaseTemplateData
	tracker.Community
	DefaultStartsOn string
	DefaultEndsOn   string
}

func (app *application) communityGET(w http.ResponseWriter, r *http.Request) {
	community, err := app.tracker.Community(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	today := app.tracker.Today()
	app.render(w, r, http.StatusOK, "community", communityTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Community:        community,
		DefaultStartsOn:  planner.FormatDate(today),
		DefaultEndsOn:    planner.FormatDate(today.AddDate(0, 0, defaultChallengeDays-1)),
	})
}

func (app *application) challengesPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}
	today := app.tracker.Today()
	startsOn, err := formDate(r, "starts_on", today)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	endsOn, err := formDate(r, "ends_on", startsOn.Add(time.Duration(defaultChallengeDays-1)*24*time.Hour))
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if _, err = app.tracker.CreateChallenge(r.Context(), tracker.ChallengeInput{
		Title:               strings.TrimSpace(r.PostForm.Get("title")),
		DescriptionMarkdown: r.PostForm.Get("description"),
		StartsOn:            startsOn,
		EndsOn:              endsOn,
	}); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, "/community")
}

func (app *application) challengeJoinPOST(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseIDParam(w, r)
	if !ok {
		return
	}
	if err := app.tracker.JoinChallenge(r.Context(), id); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, "/community")
}
