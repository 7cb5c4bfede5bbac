package main

import (
	"net/http"

	"github.com/myrjola/fitplan/internal/tracker"
)

type recommendationsTemplateData struct {
	BaseTemplateData
	tracker.Recommendations
}

func (app *application) recommendationsGET(w http.ResponseWriter, r *http.Request) {
	recommendations, err := app.tracker.Recommendations(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "recommendations", recommendationsTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Recommendations:  recommendations,
	})
}
