package planner_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitplan/internal/planner"
)

var today = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // fixed clock for tests

func daysFromToday(n int) time.Time {
	return today.AddDate(0, 0, n)
}

func TestSleepAnalyzer_Analyze(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		samples   []float64
		quality   planner.SleepQualityLevel
		score     float64
		recommend string
	}{
		{
			name:      "no data",
			samples:   nil,
			quality:   planner.SleepUnknown,
			score:     0.5,
			recommend: "No sleep data available",
		},
		{
			name:      "steady week inside the band",
			samples:   []float64{7.5, 8.0, 7.0, 7.5, 8.0, 7.0, 7.5},
			quality:   planner.SleepExcellent,
			score:     1.0,
			recommend: "Good sleep quality. You can proceed with planned workout intensity.",
		},
		{
			name:      "single short night",
			samples:   []float64{4.0},
			quality:   planner.SleepPoor,
			score:     0.24,
			recommend: "Consider reducing workout intensity today. Prioritize rest and recovery.",
		},
		{
			name:      "slightly short",
			samples:   []float64{6.5, 6.5, 6.5},
			quality:   planner.SleepModerate,
			score:     0.7,
			recommend: "Moderate intensity workout recommended. Ensure adequate hydration.",
		},
		{
			name:      "slightly long",
			samples:   []float64{9.5, 9.5},
			quality:   planner.SleepGood,
			score:     0.8,
			recommend: "Good sleep quality. You can proceed with planned workout intensity.",
		},
		{
			name:      "oversleeping",
			samples:   []float64{11, 12},
			quality:   planner.SleepIrregular,
			score:     0.5,
			recommend: "Consider reducing workout intensity today. Prioritize rest and recovery.",
		},
		{
			name:      "good average but short last night",
			samples:   []float64{8, 8, 8, 8, 8, 8, 5.5},
			quality:   planner.SleepPoor,
			score:     0.8,
			recommend: "Good sleep quality. You can proceed with planned workout intensity.",
		},
		{
			name:      "only the last seven samples count",
			samples:   []float64{2, 2, 2, 8, 8, 8, 8, 8, 8, 8},
			quality:   planner.SleepExcellent,
			score:     1.0,
			recommend: "Good sleep quality. You can proceed with planned workout intensity.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := planner.DefaultSleepAnalyzer().Analyze(tt.samples)
			if got.Quality != tt.quality {
				t.Errorf("Quality = %q, want %q", got.Quality, tt.quality)
			}
			if math.Abs(got.Score-tt.score) > 1e-9 {
				t.Errorf("Score = %v, want %v", got.Score, tt.score)
			}
			if got.Recommendation != tt.recommend {
				t.Errorf("Recommendation = %q, want %q", got.Recommendation, tt.recommend)
			}
			if got.HasData != (len(tt.samples) > 0) {
				t.Errorf("HasData = %v", got.HasData)
			}
		})
	}
}

func TestSleepAnalyzer_ScoreBounds(t *testing.T) {
	t.Parallel()
	analyzer := planner.DefaultSleepAnalyzer()
	for hours := 0.0; hours <= 16; hours += 0.25 {
		for latest := 0.0; latest <= 16; latest += 2 {
			q := analyzer.Analyze([]float64{hours, hours, latest})
			if q.Score < 0 || q.Score > 1 {
				t.Fatalf("score %v out of bounds for %v/%v", q.Score, hours, latest)
			}
		}
	}
}

func TestSleepAnalyzer_CustomBand(t *testing.T) {
	t.Parallel()
	analyzer := planner.SleepAnalyzer{MinSleepHours: 8, MaxSleepHours: 9.5}
	got := analyzer.Analyze([]float64{7.5, 7.5})
	if got.Quality != planner.SleepModerate {
		t.Errorf("Quality = %q, want moderate", got.Quality)
	}
	if got.AvgSleep != 7.5 || got.LatestSleep != 7.5 {
		t.Errorf("AvgSleep/LatestSleep = %v/%v, want 7.5/7.5", got.AvgSleep, got.LatestSleep)
	}
}

func TestSleepHoursFromSamples(t *testing.T) {
	t.Parallel()
	samples := []planner.WearableSample{
		{RecordedAt: daysFromToday(-1), SleepHours: 7},
		{RecordedAt: daysFromToday(-3), SleepHours: 5},
		{RecordedAt: daysFromToday(-2), SleepHours: 0},
		{RecordedAt: daysFromToday(0), SleepHours: 8},
	}
	got := planner.SleepHoursFromSamples(samples)
	if diff := cmp.Diff([]float64{5, 7, 8}, got); diff != "" {
		t.Errorf("SleepHoursFromSamples mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectAdherence(t *testing.T) {
	t.Parallel()

	t.Run("empty schedule", func(t *testing.T) {
		t.Parallel()
		got := planner.DetectAdherence(nil, []planner.WorkoutRecord{{Date: today, WorkoutType: "Running"}}, today)
		want := planner.AdherenceReport{Skipped: []planner.SkippedWorkout{}, AdherenceRate: 1.0}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("DetectAdherence mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("yesterday pending without workout", func(t *testing.T) {
		t.Parallel()
		schedule := []planner.ScheduleSlot{
			{ID: 7, ScheduledDate: daysFromToday(-1), WorkoutType: "Running", Status: planner.SlotPending},
		}
		got := planner.DetectAdherence(schedule, nil, today)
		want := planner.AdherenceReport{
			Skipped: []planner.SkippedWorkout{
				{SlotID: 7, Date: daysFromToday(-1), WorkoutType: "Running", DaysAgo: 1},
			},
			AdherenceRate:  0,
			TotalScheduled: 1,
			CompletedCount: 0,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("DetectAdherence mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("logged workout on the date is not skipped", func(t *testing.T) {
		t.Parallel()
		schedule := []planner.ScheduleSlot{
			{ID: 1, ScheduledDate: daysFromToday(-2), WorkoutType: "Yoga", Status: planner.SlotPending},
			{ID: 2, ScheduledDate: daysFromToday(-1), WorkoutType: "Running", Status: planner.SlotCompleted},
			{ID: 3, ScheduledDate: daysFromToday(0), WorkoutType: "HIIT", Status: planner.SlotPending},
			{ID: 4, ScheduledDate: daysFromToday(2), WorkoutType: "HIIT", Status: planner.SlotCompleted},
		}
		workouts := []planner.WorkoutRecord{{Date: daysFromToday(-2).Add(18 * time.Hour), WorkoutType: "Walking"}}
		got := planner.DetectAdherence(schedule, workouts, today.Add(9*time.Hour))
		if len(got.Skipped) != 0 {
			t.Errorf("Skipped = %v, want none", got.Skipped)
		}
		if got.CompletedCount != 2 || got.TotalScheduled != 4 || got.AdherenceRate != 0.5 {
			t.Errorf("got %d/%d rate %v, want 2/4 rate 0.5", got.CompletedCount, got.TotalScheduled, got.AdherenceRate)
		}
	})

	t.Run("rate is rounded", func(t *testing.T) {
		t.Parallel()
		schedule := []planner.ScheduleSlot{
			{ScheduledDate: daysFromToday(1), Status: planner.SlotCompleted},
			{ScheduledDate: daysFromToday(2), Status: planner.SlotPending},
			{ScheduledDate: daysFromToday(3), Status: planner.SlotPending},
		}
		got := planner.DetectAdherence(schedule, nil, today)
		if got.AdherenceRate != 0.33 {
			t.Errorf("AdherenceRate = %v, want 0.33", got.AdherenceRate)
		}
	})
}

func TestAdjustSchedule(t *testing.T) {
	t.Parallel()

	upcoming := []planner.ScheduleSlot{
		{ID: 1, ScheduledDate: daysFromToday(-1), WorkoutType: "Running", DurationMin: 35, Status: planner.SlotPending},
		{ID: 2, ScheduledDate: daysFromToday(0), WorkoutType: "Cycling", DurationMin: 40, Status: planner.SlotPending},
		{ID: 3, ScheduledDate: daysFromToday(1), WorkoutType: "HIIT", DurationMin: 20, Status: planner.SlotPending},
		{ID: 4, ScheduledDate: daysFromToday(2), WorkoutType: "Weightlifting", DurationMin: 45, Status: planner.SlotPending},
	}
	goodSleep := planner.SleepQuality{Quality: planner.SleepExcellent, Score: 0.9}
	poorSleep := planner.DefaultSleepAnalyzer().Analyze([]float64{4.0})

	t.Run("low adherence only reduces frequency", func(t *testing.T) {
		t.Parallel()
		got := planner.AdjustSchedule(planner.AdherenceReport{AdherenceRate: 0.5}, goodSleep, upcoming, nil, today)
		want := []planner.Adjustment{{
			Type:      planner.AdjustReduceFrequency,
			Message:   "Low adherence detected. Reducing workout frequency by 20%.",
			Magnitude: -0.2,
		}}
		if diff := cmp.Diff(want, got.Adjustments); diff != "" {
			t.Errorf("Adjustments mismatch (-want +got):\n%s", diff)
		}
		if got.Fired(planner.AdjustReduceIntensity) {
			t.Error("reduce_intensity fired with good sleep")
		}
		if diff := cmp.Diff(upcoming, got.Schedule); diff != "" {
			t.Errorf("Schedule changed (-want +got):\n%s", diff)
		}
		if got.AdherenceRate != 0.5 || got.SleepScore != 0.9 {
			t.Errorf("echoed inputs = %v/%v", got.AdherenceRate, got.SleepScore)
		}
	})

	t.Run("poor sleep reduces future durations", func(t *testing.T) {
		t.Parallel()
		got := planner.AdjustSchedule(planner.AdherenceReport{AdherenceRate: 1}, poorSleep, upcoming, nil, today)
		want := []planner.Adjustment{{
			Type:      planner.AdjustReduceIntensity,
			Message:   "Poor sleep quality (poor). Reducing workout intensity.",
			Magnitude: -0.3,
		}}
		if diff := cmp.Diff(want, got.Adjustments); diff != "" {
			t.Errorf("Adjustments mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{poorSleep.Recommendation}, got.Recommendations); diff != "" {
			t.Errorf("Recommendations mismatch (-want +got):\n%s", diff)
		}
		durations := []int{}
		for _, s := range got.Schedule {
			durations = append(durations, s.DurationMin)
		}
		if diff := cmp.Diff([]int{35, 28, 15, 31}, durations); diff != "" {
			t.Errorf("durations mismatch (-want +got):\n%s", diff)
		}
		if got.Schedule[0].Note != "" || got.Schedule[1].Note != planner.IntensityReducedNote {
			t.Errorf("notes = %q, %q", got.Schedule[0].Note, got.Schedule[1].Note)
		}
		if upcoming[1].DurationMin != 40 {
			t.Error("input slice was mutated")
		}
	})

	t.Run("recent workout turns tomorrow into a rest day", func(t *testing.T) {
		t.Parallel()
		recent := &planner.RecentActivity{DaysSinceLastWorkout: 0, LastWorkoutType: "Running"}
		got := planner.AdjustSchedule(planner.AdherenceReport{AdherenceRate: 0.2}, poorSleep, upcoming, recent, today)
		if len(got.Adjustments) != 3 {
			t.Fatalf("got %d adjustments, want 3", len(got.Adjustments))
		}
		if !got.Adjustments[2].RestDay || got.Adjustments[2].Type != planner.AdjustAddRecovery {
			t.Errorf("last adjustment = %+v, want add_recovery rest day", got.Adjustments[2])
		}
		tomorrow := got.Schedule[2]
		want := planner.ScheduleSlot{
			ID:            3,
			ScheduledDate: daysFromToday(1),
			WorkoutType:   planner.RestDayWorkoutType,
			DurationMin:   0,
			Status:        planner.SlotPending,
			Note:          planner.RecoveryDayNote,
		}
		if diff := cmp.Diff(want, tomorrow); diff != "" {
			t.Errorf("tomorrow mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nothing fires", func(t *testing.T) {
		t.Parallel()
		recent := &planner.RecentActivity{DaysSinceLastWorkout: 2}
		got := planner.AdjustSchedule(planner.AdherenceReport{AdherenceRate: 0.7}, goodSleep, upcoming, recent, today)
		if len(got.Adjustments) != 0 || len(got.Recommendations) != 0 {
			t.Errorf("unexpected adjustments %+v", got)
		}
	})
}

func TestGenerateWeek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level planner.ActivityLevel
		types []string
	}{
		{planner.ActivitySedentary, []string{"Walking", "Yoga", "Cycling"}},
		{planner.ActivityLight, []string{"Walking", "Yoga", "Cycling"}},
		{planner.ActivityModerate, []string{"Running", "Cycling", "Swimming", "Weightlifting"}},
		{planner.ActivityActive, []string{"Running", "HIIT", "Weightlifting", "Cycling", "Running"}},
		{planner.ActivityVeryActive, []string{"Running", "HIIT", "Weightlifting", "Cycling", "Running"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()
			profile := planner.DefaultProfile()
			profile.ActivityLevel = tt.level
			slots := planner.GenerateWeek(profile, today.Add(15*time.Hour))

			var types []string
			for i, slot := range slots {
				types = append(types, slot.WorkoutType)
				if slot.Status != planner.SlotPending {
					t.Errorf("slot %d status = %q", i, slot.Status)
				}
				if slot.DurationMin != planner.WorkoutDuration(slot.WorkoutType) {
					t.Errorf("slot %d duration = %d", i, slot.DurationMin)
				}
				if slot.ScheduledDate.Before(today) || !slot.ScheduledDate.Before(daysFromToday(7)) {
					t.Errorf("slot %d date %v outside the week", i, slot.ScheduledDate)
				}
			}
			if diff := cmp.Diff(tt.types, types); diff != "" {
				t.Errorf("workout types mismatch (-want +got):\n%s", diff)
			}
			if !slots[0].ScheduledDate.Equal(today) {
				t.Errorf("first slot on %v, want today", slots[0].ScheduledDate)
			}
		})
	}
}

func TestGenerateWeek_BeginnerRestsBetweenSessions(t *testing.T) {
	t.Parallel()
	profile := planner.DefaultProfile()
	profile.ActivityLevel = planner.ActivitySedentary
	slots := planner.GenerateWeek(profile, today)
	if len(slots) > 3 {
		t.Fatalf("got %d slots, want at most 3", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		gap := slots[i].ScheduledDate.Sub(slots[i-1].ScheduledDate)
		if gap <= 24*time.Hour {
			t.Errorf("slots %d and %d are on consecutive days", i-1, i)
		}
	}
}

func TestWorkoutDuration(t *testing.T) {
	t.Parallel()
	for workoutType, want := range map[string]int{
		"Walking": 30, "Yoga": 45, "Cycling": 40, "Running": 35,
		"Swimming": 40, "Weightlifting": 45, "HIIT": 30, "Climbing": 30,
	} {
		if got := planner.WorkoutDuration(workoutType); got != want {
			t.Errorf("WorkoutDuration(%q) = %d, want %d", workoutType, got, want)
		}
	}
}

func TestRecommendCalories(t *testing.T) {
	t.Parallel()
	profile := planner.UserProfile{
		Age:           25,
		WeightKg:      70,
		HeightCm:      175,
		Gender:        planner.GenderMale,
		ActivityLevel: planner.ActivityModerate,
	}
	if got := planner.BMR(profile); got != 1673.75 {
		t.Errorf("BMR = %v, want 1673.75", got)
	}
	tests := []struct {
		goal planner.Goal
		want int
	}{
		{planner.GoalMaintenance, 2594},
		{planner.GoalWeightLoss, 2094},
		{planner.GoalWeightGain, 2994},
	}
	for _, tt := range tests {
		first := planner.RecommendCalories(profile, tt.goal)
		second := planner.RecommendCalories(profile, tt.goal)
		if first != tt.want || second != first {
			t.Errorf("RecommendCalories(%s) = %d then %d, want %d", tt.goal, first, second, tt.want)
		}
	}
}

func TestRecommendCalories_WeightLossFloor(t *testing.T) {
	t.Parallel()
	profile := planner.UserProfile{
		Age:           80,
		WeightKg:      40,
		HeightCm:      140,
		Gender:        planner.GenderOther,
		ActivityLevel: planner.ActivitySedentary,
	}
	if got := planner.RecommendCalories(profile, planner.GoalWeightLoss); got != 1200 {
		t.Errorf("RecommendCalories = %d, want 1200", got)
	}
}

func TestActivityMultiplier(t *testing.T) {
	t.Parallel()
	want := map[planner.ActivityLevel]float64{
		planner.ActivitySedentary:  1.2,
		planner.ActivityLight:      1.375,
		planner.ActivityModerate:   1.55,
		planner.ActivityActive:     1.725,
		planner.ActivityVeryActive: 1.9,
		"couch potato":             1.55,
	}
	for level, m := range want {
		if got := planner.ActivityMultiplier(level); got != m {
			t.Errorf("ActivityMultiplier(%q) = %v, want %v", level, got, m)
		}
	}
}

func TestRecommendWorkout(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		level  planner.ActivityLevel
		recent *planner.RecentActivity
		want   string
	}{
		{"beginner without history", planner.ActivityLight, nil, "Walking"},
		{"beginner after walking", planner.ActivitySedentary, &planner.RecentActivity{LastWorkoutType: "Walking"}, "Yoga"},
		{"moderate after running", planner.ActivityModerate, &planner.RecentActivity{LastWorkoutType: "Running"}, "Cycling"},
		{"advanced after unrelated", planner.ActivityActive, &planner.RecentActivity{LastWorkoutType: "Yoga"}, "Running"},
		{"advanced after running", planner.ActivityVeryActive, &planner.RecentActivity{LastWorkoutType: "Running"}, "HIIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			profile := planner.DefaultProfile()
			profile.ActivityLevel = tt.level
			if got := planner.RecommendWorkout(profile, tt.recent); got != tt.want {
				t.Errorf("RecommendWorkout = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdjustDiet(t *testing.T) {
	t.Parallel()
	profile := planner.UserProfile{
		Age:           25,
		WeightKg:      70,
		HeightCm:      175,
		Gender:        planner.GenderMale,
		ActivityLevel: planner.ActivityModerate,
	}
	tests := []struct {
		name  string
		sleep planner.SleepQuality
		steps []int
		want  planner.DietPlan
	}{
		{
			name:  "rested and very active",
			sleep: planner.SleepQuality{Score: 1},
			steps: []int{12000, 11000},
			want: planner.DietPlan{
				MaintenanceCalories: 2594,
				ProteinGPerKg:       2.0,
				ProteinG:            140,
				AvgSteps:            11500,
			},
		},
		{
			name:  "poor sleep and moderate steps",
			sleep: planner.SleepQuality{Score: 0.3},
			steps: []int{6000, 8000},
			want: planner.DietPlan{
				MaintenanceCalories: 2464,
				ProteinGPerKg:       1.8,
				ProteinG:            126,
				AvgSteps:            7000,
				Note:                planner.PoorSleepCaloriesNote,
			},
		},
		{
			// Callers pass unknown sleep with a neutral score.
			name:  "no wearable data",
			sleep: planner.SleepQuality{Score: 0.8, Quality: planner.SleepUnknown},
			want: planner.DietPlan{
				MaintenanceCalories: 2594,
				ProteinGPerKg:       1.6,
				ProteinG:            112,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var samples []planner.WearableSample
			for _, s := range tt.steps {
				samples = append(samples, planner.WearableSample{Steps: s})
			}
			got := planner.AdjustDiet(profile, tt.sleep, samples)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AdjustDiet mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseActivityLevel(t *testing.T) {
	t.Parallel()
	for input, want := range map[string]planner.ActivityLevel{
		"sedentary":   planner.ActivitySedentary,
		"Very Active": planner.ActivityVeryActive,
		"very_active": planner.ActivityVeryActive,
		" MODERATE ":  planner.ActivityModerate,
	} {
		got, err := planner.ParseActivityLevel(input)
		if err != nil || got != want {
			t.Errorf("ParseActivityLevel(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := planner.ParseActivityLevel("athlete"); err == nil {
		t.Error("expected error for unknown level")
	}
	if planner.ActivityVeryActive.Code() != 5 || planner.ActivitySedentary.Code() != 1 {
		t.Error("unexpected activity codes")
	}
}
