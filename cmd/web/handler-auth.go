package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/fitplan/internal/errors"
)

func (app *application) beginRegistration(w http.ResponseWriter, r *http.Request) {
	out, err := app.webAuthnHandler.BeginRegistration(r.Context())
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "begin registration"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

func (app *application) finishRegistration(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.FinishRegistration(r); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "registration failed", errors.SlogError(err))
		writeJSONError(w, http.StatusBadRequest)
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelInfo, "registered athlete")
	w.WriteHeader(http.StatusOK)
}

func (app *application) beginLogin(w http.ResponseWriter, r *http.Request) {
	out, err := app.webAuthnHandler.BeginLogin(w, r)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "begin login"))
		return
	}
	_, _ = w.Write(out)
}

func (app *application) finishLogin(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.FinishLogin(r); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "login failed", errors.SlogError(err))
		writeJSONError(w, http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.Logout(r.Context()); err != nil {
		app.serverError(w, r, errors.Wrap(err, "logout"))
		return
	}
	redirect(w, r, "/")
}
