package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/tracker"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type profileTemplateData struct {
	BaseTemplateData
	Profile        tracker.Profile
	ActivityLevels []option
	Goals          []option
	Genders        []option
}

func activityOptions(selected planner.ActivityLevel) []option {
	levels := planner.ActivityLevels()
	options := make([]option, len(levels))
	for i, level := range levels {
		options[i] = option{Value: string(level), Label: level.Label(), Selected: level == selected}
	}
	return options
}

func goalOptions(selected planner.Goal) []option {
	labels := map[planner.Goal]string{
		planner.GoalMaintenance: "Maintain weight",
		planner.GoalWeightLoss:  "Lose weight",
		planner.GoalWeightGain:  "Gain weight",
	}
	goals := planner.Goals()
	options := make([]option, len(goals))
	for i, goal := range goals {
		options[i] = option{Value: string(goal), Label: labels[goal], Selected: goal == selected}
	}
	return options
}

func genderOptions(selected planner.Gender) []option {
	return []option{
		{Value: string(planner.GenderMale), Label: "Male", Selected: selected == planner.GenderMale},
		{Value: string(planner.GenderOther), Label: "Female or other", Selected: selected == planner.GenderOther},
	}
}

func (app *application) profileGET(w http.ResponseWriter, r *http.Request) {
	profile, err := app.tracker.GetProfile(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.render(w, r, http.StatusOK, "profile", profileTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Profile:          profile,
		ActivityLevels:   activityOptions(profile.ActivityLevel),
		Goals:            goalOptions(profile.Goal),
		Genders:          genderOptions(profile.Gender),
	})
}

func parseProfileForm(r *http.Request) (tracker.ProfileUpdate, error) {
	if err := r.ParseForm(); err != nil {
		return tracker.ProfileUpdate{}, fmt.Errorf("parse form: %w", err)
	}
	age, err := formInt(r, "age")
	if err != nil {
		return tracker.ProfileUpdate{}, err
	}
	weight, err := formFloat(r, "weight_kg")
	if err != nil {
		return tracker.ProfileUpdate{}, err
	}
	height, err := formInt(r, "height_cm")
	if err != nil {
		return tracker.ProfileUpdate{}, err
	}
	level, err := planner.ParseActivityLevel(r.PostForm.Get("activity_level"))
	if err != nil {
		return tracker.ProfileUpdate{}, errors.Wrap(tracker.ErrInvalid, err.Error())
	}
	goal, err := planner.ParseGoal(r.PostForm.Get("goal"))
	if err != nil {
		return tracker.ProfileUpdate{}, errors.Wrap(tracker.ErrInvalid, err.Error())
	}
	return tracker.ProfileUpdate{
		DisplayName: r.PostForm.Get("display_name"),
		Profile: planner.UserProfile{
			Age:           age,
			WeightKg:      weight,
			HeightCm:      height,
			Gender:        planner.ParseGender(r.PostForm.Get("gender")),
			ActivityLevel: level,
		},
		Goal: goal,
	}, nil
}

func (app *application) profilePOST(w http.ResponseWriter, r *http.Request) {
	update, err := parseProfileForm(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = app.tracker.UpdateProfile(r.Context(), update); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, "/profile")
}

func (app *application) deleteUserPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := app.tracker.DeleteUser(ctx); err != nil {
		app.serverError(w, r, fmt.Errorf("delete user: %w", err))
		return
	}

	if err := app.webAuthnHandler.Logout(ctx); err != nil {
		app.serverError(w, r, fmt.Errorf("logout after user deletion: %w", err))
		return
	}

	redirect(w, r, "/")
}

// exportUserDataGET streams a SQLite file with the user's rows as a download.
func (app *application) exportUserDataGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	exportPath, err := app.tracker.ExportUserData(ctx)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("export user data: %w", err))
		return
	}
	defer func() {
		if removeErr := os.Remove(exportPath); removeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "failed to remove temporary export file",
				slog.String("path", exportPath), errors.SlogError(removeErr))
		}
	}()

	file, err := os.Open(exportPath)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("open export file: %w", err))
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "failed to close export file",
				slog.String("path", exportPath), errors.SlogError(closeErr))
		}
	}()

	w.Header().Set("Content-Type", "application/x-sqlite3")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(exportPath)))
	if _, err = io.Copy(w, file); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "failed to stream export file to client",
			slog.String("path", exportPath), errors.SlogError(err))
	}
}
