package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/planner"
)

const demoDays = 14

// SeedDemo creates a user without a passkey and fills two weeks of history ending yesterday, a generated week
// and a joined challenge. It returns the new user ID.
func (s *Service) SeedDemo(ctx context.Context, displayName string) (int, error) {
	handle, err := uuid.New().MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("encode user handle: %w", err)
	}
	userID, err := s.repo.profiles.Create(ctx, handle, Profile{
		ID:          0,
		DisplayName: displayName,
		UserProfile: planner.UserProfile{
			Age:           25,  //nolint:mnd // demo
			WeightKg:      70,  //nolint:mnd // demo
			HeightCm:      175, //nolint:mnd // demo
			Gender:        planner.GenderMale,
			ActivityLevel: planner.ActivityModerate,
		},
		Goal:            planner.GoalMaintenance,
		CommunityPoints: 320, //nolint:mnd // demo
	})
	if err != nil {
		return 0, fmt.Errorf("create demo user: %w", err)
	}
	ctx = contexthelpers.WithAuthenticatedUser(ctx, userID, false)

	today := s.Today()
	workoutTypes := []string{"Running", "Cycling", "Swimming", "Weightlifting"}
	sleepHours := []float64{7.5, 8, 6.5, 7, 8.5, 7.5, 6}
	for i := range demoDays {
		day := today.AddDate(0, 0, i-demoDays)
		if i%2 == 0 {
			workoutType := workoutTypes[(i/2)%len(workoutTypes)]
			if err = s.LogWorkout(ctx, planner.WorkoutRecord{
				Date:           day,
				WorkoutType:    workoutType,
				DurationMin:    planner.WorkoutDuration(workoutType),
				CaloriesBurned: 300 + 10*i, //nolint:mnd // demo
			}); err != nil {
				return 0, err
			}
		}
		for j, meal := range []string{"breakfast", "lunch", "dinner"} {
			if err = s.LogDiet(ctx, planner.DietRecord{
				Date:     day,
				MealType: meal,
				Calories: 550 + 150*j + 5*i, //nolint:mnd // demo
				ProteinG: 25 + 5*float64(j), //nolint:mnd // demo
				CarbsG:   60,                //nolint:mnd // demo
				FatsG:    15,                //nolint:mnd // demo
			}); err != nil {
				return 0, err
			}
		}
		if i >= demoDays-wearableWindow {
			if err = s.repo.wearables.Add(ctx, planner.WearableSample{
				RecordedAt:     day.Add(8 * time.Hour), //nolint:mnd // morning sync
				Steps:          6000 + 500*i,           //nolint:mnd // demo
				HeartRate:      72,                     //nolint:mnd // demo
				SleepHours:     sleepHours[i-(demoDays-wearableWindow)],
				CaloriesBurned: 450, //nolint:mnd // demo
			}); err != nil {
				return 0, fmt.Errorf("add wearable sample: %w", err)
			}
		}
	}

	if _, err = s.GenerateWeek(ctx); err != nil {
		return 0, err
	}
	if _, err = s.CreateChallenge(ctx, ChallengeInput{
		Title:               "30-day step streak",
		DescriptionMarkdown: "Walk **10 000 steps** every day.\n\n- Sync your wearable daily\n- Rest days count too",
		StartsOn:            today,
		EndsOn:              today.AddDate(0, 0, 30), //nolint:mnd // demo
	}); err != nil {
		return 0, err
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "seeded demo user", slog.Int("user_id", userID))
	return userID, nil
}
