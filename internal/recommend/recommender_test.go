package recommend_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/recommend"
	"github.com/myrjola/fitplan/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // fixed clock for tests

func fixedNow() time.Time { return monday }

func profile() planner.UserProfile {
	return planner.UserProfile{
		Age:           25,
		WeightKg:      70,
		HeightCm:      175,
		Gender:        planner.GenderMale,
		ActivityLevel: planner.ActivityModerate,
	}
}

func workouts(types ...string) []planner.WorkoutRecord {
	records := make([]planner.WorkoutRecord, len(types))
	for i, typ := range types {
		records[i] = planner.WorkoutRecord{
			Date:           monday.AddDate(0, 0, -2*(len(types)-i)),
			WorkoutType:    typ,
			DurationMin:    planner.WorkoutDuration(typ),
			CaloriesBurned: 300,
		}
	}
	return records
}

func TestRecommender_FallsBackWithoutModel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := recommend.New(logging.NewLogger(&buf, slog.LevelDebug), fixedNow)
	ctx := t.Context()

	for _, goal := range planner.Goals() {
		got := r.RecommendCalories(ctx, profile(), goal)
		if got.Source != recommend.SourceRules {
			t.Errorf("Source = %q, want rules", got.Source)
		}
		if want := planner.RecommendCalories(profile(), goal); got.Value != want {
			t.Errorf("RecommendCalories(%s) = %d, want %d", goal, got.Value, want)
		}
	}
	recent := &planner.RecentActivity{DaysSinceLastWorkout: 2, LastWorkoutType: "Running"}
	workout := r.RecommendWorkout(ctx, profile(), recent)
	if workout.Value != "Cycling" || workout.Source != recommend.SourceRules || workout.Reason == "" {
		t.Errorf("RecommendWorkout = %+v, want rule-based Cycling with a reason", workout)
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected a warning log, got %q", buf.String())
	}
}

func TestRecommender_TrainRequiresThreeWorkouts(t *testing.T) {
	t.Parallel()
	r := recommend.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), fixedNow)
	_, err := r.Train(t.Context(), profile(), workouts("Running", "Yoga"), nil)
	if !errors.Is(err, recommend.ErrInsufficientSamples) {
		t.Fatalf("Train error = %v, want ErrInsufficientSamples", err)
	}
	if r.Model() != nil {
		t.Error("model published after failed training")
	}
}

func TestRecommender_LearnsWorkoutType(t *testing.T) {
	t.Parallel()
	r := recommend.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), fixedNow)
	outcome, err := r.Train(t.Context(), profile(), workouts("Swimming", "Swimming", "Swimming", "Swimming"), nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if outcome.WorkoutSamples != 4 || outcome.HasCalorieModel || !outcome.TrainedAt.Equal(monday) {
		t.Errorf("unexpected outcome %+v", outcome)
	}

	got := r.RecommendWorkout(t.Context(), profile(), &planner.RecentActivity{DaysSinceLastWorkout: 2})
	if got.Value != "Swimming" || got.Source != recommend.SourceModel {
		t.Errorf("RecommendWorkout = %+v, want Swimming from the model", got)
	}

	calories := r.RecommendCalories(t.Context(), profile(), planner.GoalMaintenance)
	if calories.Source != recommend.SourceRules || calories.Reason != "only 0 days of diet history" {
		t.Errorf("RecommendCalories = %+v, want rules because of missing diet history", calories)
	}
}

func TestRecommender_LearnsDailyCalories(t *testing.T) {
	t.Parallel()
	r := recommend.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), fixedNow)
	diet := []planner.DietRecord{
		{Date: monday.AddDate(0, 0, -3), MealType: "breakfast", Calories: 500},
		{Date: monday.AddDate(0, 0, -3), MealType: "dinner", Calories: 1500},
		{Date: monday.AddDate(0, 0, -2), MealType: "lunch", Calories: 2200},
		{Date: monday.AddDate(0, 0, -1), MealType: "dinner", Calories: 2400},
	}
	outcome, err := r.Train(t.Context(), profile(), workouts("Running", "Cycling", "Running"), diet)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if outcome.CalorieDays != 3 || !outcome.HasCalorieModel {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	tests := []struct {
		goal planner.Goal
		want int
	}{
		{planner.GoalMaintenance, 2200},
		{planner.GoalWeightLoss, 1700},
		{planner.GoalWeightGain, 2600},
	}
	for _, tt := range tests {
		got := r.RecommendCalories(t.Context(), profile(), tt.goal)
		if got.Value != tt.want || got.Source != recommend.SourceModel {
			t.Errorf("RecommendCalories(%s) = %+v, want %d from the model", tt.goal, got, tt.want)
		}
	}
}

func TestRecommender_FailedTrainingKeepsSnapshot(t *testing.T) {
	t.Parallel()
	r := recommend.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), fixedNow)
	if _, err := r.Train(t.Context(), profile(), workouts("HIIT", "HIIT", "HIIT"), nil); err != nil {
		t.Fatalf("Train: %v", err)
	}
	before := r.Model()
	if _, err := r.Train(t.Context(), profile(), nil, nil); err == nil {
		t.Fatal("expected training without workouts to fail")
	}
	if r.Model() != before {
		t.Error("failed training replaced the snapshot")
	}
	if got := r.RecommendWorkout(t.Context(), profile(), nil); got.Value != "HIIT" {
		t.Errorf("RecommendWorkout = %q, want HIIT", got.Value)
	}
}

func TestRecommender_ConcurrentTrainAndPredict(t *testing.T) {
	t.Parallel()
	r := recommend.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), fixedNow)
	ctx := t.Context()
	var g errgroup.Group
	for i := range 20 {
		g.Go(func() error {
			if i%2 == 0 {
				_, err := r.Train(ctx, profile(), workouts("Yoga", "Yoga", "Yoga"), nil)
				return err
			}
			got := r.RecommendWorkout(ctx, profile(), nil)
			if got.Value != "Yoga" && got.Value != "Running" {
				t.Errorf("unexpected workout %q", got.Value)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent training: %v", err)
	}
}
