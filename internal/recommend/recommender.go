// Package recommend personalises the calorie and workout recommendations with a model trained on the user's own
// history. Every prediction falls back to the rule-based formulas in package planner when no model is available.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/planner"
)

const minSamples = 3

// ErrInsufficientSamples is returned by [Recommender.Train] when the history is too short to learn from.
var ErrInsufficientSamples = errors.NewSentinel("insufficient samples")

// Source tells whether a recommendation came from the learned model or the rule-based formulas.
type Source string

const (
	SourceModel Source = "model"
	SourceRules Source = "rules"
)

// Recommendation wraps a recommended value with its provenance.
type Recommendation[T any] struct {
	Value  T
	Source Source
	// Reason explains why the rules were used. Empty for model recommendations.
	Reason string
}

// TrainOutcome describes the snapshot produced by a successful training run.
type TrainOutcome struct {
	WorkoutSamples  int
	CalorieDays     int
	HasCalorieModel bool
	TrainedAt       time.Time
}

// Model is an immutable trained snapshot.
type Model struct {
	workouts *knnClassifier
	calories *ridgeRegressor
	outcome  TrainOutcome
}

// Outcome returns the statistics of the training run that produced m.
func (m *Model) Outcome() TrainOutcome {
	return m.outcome
}

// Recommender is safe for concurrent use. Training publishes a new snapshot atomically and predictions read
// whichever snapshot is current.
type Recommender struct {
	logger *slog.Logger
	now    func() time.Time
	model  atomic.Pointer[Model]
}

// New creates a Recommender without a model. now is used for the weekday feature and defaults to [time.Now].
func New(logger *slog.Logger, now func() time.Time) *Recommender {
	if now == nil {
		now = time.Now
	}
	return &Recommender{
		logger: logger,
		now:    now,
		model:  atomic.Pointer[Model]{},
	}
}

// Model returns the current snapshot or nil when none has been trained.
func (r *Recommender) Model() *Model {
	return r.model.Load()
}

// Train fits a new snapshot on workouts and diet. On failure the previous snapshot stays in place.
func (r *Recommender) Train(
	ctx context.Context,
	profile planner.UserProfile,
	workouts []planner.WorkoutRecord,
	diet []planner.DietRecord,
) (TrainOutcome, error) {
	if err := ctx.Err(); err != nil {
		return TrainOutcome{}, fmt.Errorf("train: %w", err)
	}
	model, err := fit(profile, workouts, diet, r.now())
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "recommender training failed, keeping previous model",
			slog.Int("workouts", len(workouts)), slog.Int("diet", len(diet)), errors.SlogError(err))
		return TrainOutcome{}, err
	}
	r.model.Store(model)
	r.logger.LogAttrs(ctx, slog.LevelDebug, "recommender trained",
		slog.Int("workout_samples", model.outcome.WorkoutSamples),
		slog.Int("calorie_days", model.outcome.CalorieDays))
	return model.outcome, nil
}

func fit(
	profile planner.UserProfile,
	workouts []planner.WorkoutRecord,
	diet []planner.DietRecord,
	now time.Time,
) (*Model, error) {
	if len(workouts) < minSamples {
		return nil, errors.Wrap(ErrInsufficientSamples, "fit workout classifier",
			slog.Int("have", len(workouts)), slog.Int("need", minSamples))
	}

	sorted := slices.Clone(workouts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	rows := make([][]float64, len(sorted))
	labels := make([]string, len(sorted))
	for i, w := range sorted {
		var daysSincePrior int
		if i > 0 {
			daysSincePrior = int(planner.Day(w.Date).Sub(planner.Day(sorted[i-1].Date)).Hours() / 24) //nolint:mnd // hours per day
		}
		rows[i] = workoutFeatures(profile, daysSincePrior, w.Date)
		labels[i] = w.WorkoutType
	}

	model := &Model{
		workouts: fitKNN(rows, labels),
		calories: nil,
		outcome: TrainOutcome{
			WorkoutSamples:  len(sorted),
			CalorieDays:     0,
			HasCalorieModel: false,
			TrainedAt:       now,
		},
	}

	days := dailyCalories(diet)
	model.outcome.CalorieDays = len(days)
	if len(days) >= minSamples {
		dietRows := make([][]float64, len(days))
		for i := range days {
			dietRows[i] = profileFeatures(profile)
		}
		regressor, err := fitRidge(dietRows, days)
		if err != nil {
			return nil, errors.Wrap(err, "fit calorie regressor")
		}
		model.calories = regressor
		model.outcome.HasCalorieModel = true
	}
	return model, nil
}

// dailyCalories sums intake per calendar day, ordered by date.
func dailyCalories(diet []planner.DietRecord) []float64 {
	totals := make(map[string]float64)
	for _, d := range diet {
		totals[planner.FormatDate(d.Date)] += float64(d.Calories)
	}
	dates := make([]string, 0, len(totals))
	for date := range totals {
		dates = append(dates, date)
	}
	slices.Sort(dates)
	result := make([]float64, len(dates))
	for i, date := range dates {
		result[i] = totals[date]
	}
	return result
}

// RecommendCalories returns the learned daily calorie target adjusted for goal, or the Mifflin-St Jeor target.
func (r *Recommender) RecommendCalories(
	ctx context.Context,
	profile planner.UserProfile,
	goal planner.Goal,
) Recommendation[int] {
	model := r.model.Load()
	if model == nil || model.calories == nil {
		reason := "no trained calorie model"
		if model != nil {
			reason = fmt.Sprintf("only %d days of diet history", model.outcome.CalorieDays)
		}
		return r.ruleCalories(ctx, profile, goal, reason)
	}
	predicted := model.calories.predict(profileFeatures(profile))
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) || predicted <= 0 {
		return r.ruleCalories(ctx, profile, goal, fmt.Sprintf("calorie model predicted %v", predicted))
	}
	return Recommendation[int]{
		Value:  planner.CaloriesForGoal(int(predicted), goal),
		Source: SourceModel,
		Reason: "",
	}
}

func (r *Recommender) ruleCalories(
	ctx context.Context,
	profile planner.UserProfile,
	goal planner.Goal,
	reason string,
) Recommendation[int] {
	r.logger.LogAttrs(ctx, slog.LevelWarn, "falling back to rule-based calories", slog.String("reason", reason))
	return Recommendation[int]{
		Value:  planner.RecommendCalories(profile, goal),
		Source: SourceRules,
		Reason: reason,
	}
}

// RecommendWorkout predicts the next workout type, or picks one from the activity tier pool.
func (r *Recommender) RecommendWorkout(
	ctx context.Context,
	profile planner.UserProfile,
	recent *planner.RecentActivity,
) Recommendation[string] {
	model := r.model.Load()
	if model == nil {
		const reason = "no trained workout model"
		r.logger.LogAttrs(ctx, slog.LevelWarn, "falling back to rule-based workout", slog.String("reason", reason))
		return Recommendation[string]{
			Value:  planner.RecommendWorkout(profile, recent),
			Source: SourceRules,
			Reason: reason,
		}
	}
	daysSince := 1
	if recent != nil {
		daysSince = recent.DaysSinceLastWorkout
	}
	return Recommendation[string]{
		Value:  model.workouts.predict(workoutFeatures(profile, daysSince, r.now())),
		Source: SourceModel,
		Reason: "",
	}
}
