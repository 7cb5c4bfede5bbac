package tracker

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/planner"
)

const (
	maxDisplayNameLength = 64
	maxWorkoutTypeLength = 64
	maxTitleLength       = 120
	maxDurationMin       = 24 * 60
)

// MealTypes lists the accepted diet entry meal types.
func MealTypes() []string {
	return []string{"breakfast", "lunch", "dinner", "snack"}
}

func invalid(msg string, attrs ...slog.Attr) error {
	return errors.Wrap(ErrInvalid, msg, attrs...)
}

func validateProfile(u ProfileUpdate) error {
	name := strings.TrimSpace(u.DisplayName)
	switch {
	case name == "" || len(name) > maxDisplayNameLength:
		return invalid("display name must be 1-64 characters")
	case u.Profile.Age < 10 || u.Profile.Age > 120:
		return invalid("age out of range", slog.Int("age", u.Profile.Age))
	case u.Profile.WeightKg < 20 || u.Profile.WeightKg > 400:
		return invalid("weight out of range", slog.Float64("weight_kg", u.Profile.WeightKg))
	case u.Profile.HeightCm < 80 || u.Profile.HeightCm > 260:
		return invalid("height out of range", slog.Int("height_cm", u.Profile.HeightCm))
	case !slices.Contains(planner.ActivityLevels(), u.Profile.ActivityLevel):
		return invalid("unknown activity level", slog.String("activity_level", string(u.Profile.ActivityLevel)))
	case !slices.Contains(planner.Goals(), u.Goal):
		return invalid("unknown goal", slog.String("goal", string(u.Goal)))
	case u.Profile.Gender != planner.GenderMale && u.Profile.Gender != planner.GenderOther:
		return invalid("unknown gender", slog.String("gender", string(u.Profile.Gender)))
	}
	return nil
}

func validateWorkout(w planner.WorkoutRecord) error {
	workoutType := strings.TrimSpace(w.WorkoutType)
	switch {
	case w.Date.IsZero():
		return invalid("workout date missing")
	case workoutType == "" || len(workoutType) > maxWorkoutTypeLength:
		return invalid("workout type must be 1-64 characters")
	case w.DurationMin < 1 || w.DurationMin > maxDurationMin:
		return invalid("duration out of range", slog.Int("duration_min", w.DurationMin))
	case w.CaloriesBurned < 0:
		return invalid("negative calories", slog.Int("calories_burned", w.CaloriesBurned))
	}
	return nil
}

func validateDiet(d planner.DietRecord) error {
	switch {
	case d.Date.IsZero():
		return invalid("diet date missing")
	case !slices.Contains(MealTypes(), d.MealType):
		return invalid("unknown meal type", slog.String("meal_type", d.MealType))
	case d.Calories < 0 || d.ProteinG < 0 || d.CarbsG < 0 || d.FatsG < 0:
		return invalid("negative nutrition values")
	}
	return nil
}

func validateWearable(s planner.WearableSample) error {
	switch {
	case s.RecordedAt.IsZero():
		return invalid("recording time missing")
	case s.Steps < 0 || s.HeartRate < 0 || s.CaloriesBurned < 0:
		return invalid("negative wearable values")
	case s.SleepHours < 0 || s.SleepHours > 24:
		return invalid("sleep hours out of range", slog.Float64("sleep_hours", s.SleepHours))
	}
	return nil
}

func validateChallenge(in ChallengeInput) error {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "" || len(title) > maxTitleLength:
		return invalid("title must be 1-120 characters")
	case in.StartsOn.IsZero() || in.EndsOn.IsZero():
		return invalid("challenge dates missing")
	case in.EndsOn.Before(in.StartsOn):
		return invalid(fmt.Sprintf("challenge ends %s before it starts %s",
			planner.FormatDate(in.EndsOn), planner.FormatDate(in.StartsOn)))
	}
	return nil
}
