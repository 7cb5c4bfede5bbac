package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/tracker"
)

type errorTemplateData struct {
	BaseTemplateData
	Message string
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.render(w, r, http.StatusInternalServerError, "error", errorTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Message:          "Something went wrong. Please try again later.",
	})
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", newBaseTemplateData(r))
}

// clientError re-renders the error page with the validation message of a rejected form.
func (app *application) clientError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelInfo, "rejected input", errors.SlogError(err))
	app.render(w, r, http.StatusUnprocessableEntity, "error", errorTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Message:          err.Error(),
	})
}

// handleError maps the tracker sentinels to responses.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		app.notFound(w, r)
	case errors.Is(err, tracker.ErrInvalid):
		app.clientError(w, r, err)
	default:
		app.serverError(w, r, err)
	}
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}

// parseIDParam parses the "id" path parameter. On failure it responds with 404.
func (app *application) parseIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		app.notFound(w, r)
		return 0, false
	}
	return id, true
}

// formDate parses a YYYY-MM-DD form value, falling back to today when it is empty.
func formDate(r *http.Request, key string, today time.Time) (time.Time, error) {
	value := r.PostForm.Get(key)
	if value == "" {
		return today, nil
	}
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.Wrap(tracker.ErrInvalid, "invalid date", slog.String(key, value))
	}
	return date, nil
}

func formInt(r *http.Request, key string) (int, error) {
	value := r.PostForm.Get(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrap(tracker.ErrInvalid, key+" must be a whole number", slog.String(key, value))
	}
	return n, nil
}

func formFloat(r *http.Request, key string) (float64, error) {
	value := r.PostForm.Get(key)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrap(tracker.ErrInvalid, key+" must be a number", slog.String(key, value))
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "encode JSON")
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, status int) {
	_ = writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}
