// Package tracker stores a user's fitness history and runs the planner computations over it.
//
// Every method scopes its queries to the user authenticated in the context. See
// [contexthelpers.WithAuthenticatedUser].
package tracker

import (
	"time"

	"github.com/myrjola/fitplan/internal/coach"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/recommend"
)

var (
	// ErrNotFound is returned when the requested record does not exist or belongs to another user.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrInvalid is returned for records that fail validation.
	ErrInvalid = errors.NewSentinel("invalid input")
)

// CompletionPoints are awarded for every completed schedule slot.
const CompletionPoints = 10

// Profile is the stored user together with the attributes the formulas need.
type Profile struct {
	ID          int
	DisplayName string
	planner.UserProfile
	Goal            planner.Goal
	CommunityPoints int
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	DisplayName string
	Profile     planner.UserProfile
	Goal        planner.Goal
}

// DietTotals sums the macros of a set of diet entries.
type DietTotals struct {
	Calories int
	ProteinG float64
	CarbsG   float64
	FatsG    float64
}

// Dashboard is the front page snapshot.
type Dashboard struct {
	Profile        Profile
	RecentWorkouts []planner.WorkoutRecord
	RecentDiet     []planner.DietRecord
	// Wearables holds the latest samples, oldest first.
	Wearables   []planner.WearableSample
	Sleep       planner.SleepQuality
	Upcoming    []planner.ScheduleSlot
	Adherence   planner.AdherenceReport
	TodayIntake DietTotals
}

// ScheduleOverview is the schedule page with a preview of the adjustments AdjustUpcoming would apply.
type ScheduleOverview struct {
	Slots      []planner.ScheduleSlot
	Adherence  planner.AdherenceReport
	Sleep      planner.SleepQuality
	Adjustment planner.ScheduleAdjustment
	CoachNote  coach.Note
}

// WearableOutcome reports what happened after a wearable sample was stored.
type WearableOutcome struct {
	Sleep planner.SleepQuality
	// Adjusted is the slot whose intensity was reduced, nil if none was.
	Adjusted *planner.ScheduleSlot
}

type WorkoutCount struct {
	WorkoutType string
	Count       int
}

// Recommendations combines the learned and rule-based suggestions for the recommendations page.
type Recommendations struct {
	Profile     Profile
	Maintenance recommend.Recommendation[int]
	WeightLoss  recommend.Recommendation[int]
	WeightGain  recommend.Recommendation[int]
	Workout     recommend.Recommendation[string]
	// ProteinGPerDay is the baseline 1.6 g/kg target.
	ProteinGPerDay float64
	TopWorkouts    []WorkoutCount
	Diet           planner.DietPlan
	Sleep          planner.SleepQuality
	Skipped        []planner.SkippedWorkout
	// Model is nil until the user has enough history to train on.
	Model *recommend.TrainOutcome
}

type Challenge struct {
	ID                  int
	Title               string
	DescriptionMarkdown string
	StartsOn            time.Time
	EndsOn              time.Time
	CreatedBy           string
	Participants        int
	Joined              bool
}

// ChallengeInput is a challenge to be created.
type ChallengeInput struct {
	Title               string
	DescriptionMarkdown string
	StartsOn            time.Time
	EndsOn              time.Time
}

type LeaderboardEntry struct {
	Rank          int
	DisplayName   string
	Points        int
	IsCurrentUser bool
}

// Community is the leaderboard and the challenges that have not ended yet.
type Community struct {
	Points      int
	Leaderboard []LeaderboardEntry
	Challenges  []Challenge
}
