package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/myrjola/fitplan/internal/coach"
	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/recommend"
	"github.com/myrjola/fitplan/internal/sqlite"
)

const (
	wearableWindow       = 7
	historyWindow        = 50
	dashboardListLength  = 6
	leaderboardLength    = 10
	topWorkoutTypes      = 3
	baselineProteinPerKg = 1.6
	// neutralSleepScore stands in for missing sleep data in the adjustment and diet rules.
	neutralSleepScore = 0.8
)

// Config holds the optional collaborators of the Service.
type Config struct {
	// SleepAnalyzer defaults to [planner.DefaultSleepAnalyzer] when its band is empty.
	SleepAnalyzer planner.SleepAnalyzer
	// Coach writes the schedule note. Nil falls back to the rule-based note.
	Coach *coach.Writer
	// Now defaults to [time.Now].
	Now func() time.Time
	// ExportDir is where data exports are written. Defaults to [os.TempDir].
	ExportDir string
}

// Service handles the business logic of the fitness tracker.
type Service struct {
	db            *sqlite.Database
	repo          *repository
	logger        *slog.Logger
	now           func() time.Time
	sleepAnalyzer planner.SleepAnalyzer
	coach         *coach.Writer
	exportDir     string

	mu           sync.Mutex
	recommenders map[int]*recommend.Recommender
	coachNotes   map[int]coach.Note
}

// NewService creates a new tracker service.
func NewService(db *sqlite.Database, logger *slog.Logger, cfg Config) *Service {
	if cfg.SleepAnalyzer.MinSleepHours == 0 && cfg.SleepAnalyzer.MaxSleepHours == 0 {
		cfg.SleepAnalyzer = planner.DefaultSleepAnalyzer()
	}
	if cfg.Coach == nil {
		cfg.Coach = coach.New(logger, "", "")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = os.TempDir()
	}
	return &Service{
		db:            db,
		repo:          newRepository(db, logger),
		logger:        logger,
		now:           cfg.Now,
		sleepAnalyzer: cfg.SleepAnalyzer,
		coach:         cfg.Coach,
		exportDir:     cfg.ExportDir,
		mu:            sync.Mutex{},
		recommenders:  make(map[int]*recommend.Recommender),
		coachNotes:    make(map[int]coach.Note),
	}
}

// Today is the current calendar day in UTC.
func (s *Service) Today() time.Time {
	return planner.Day(s.now())
}

// GetProfile returns the authenticated user's profile.
func (s *Service) GetProfile(ctx context.Context) (Profile, error) {
	p, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile validates and stores the editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	if err := validateProfile(update); err != nil {
		return err
	}
	if err := s.repo.profiles.Update(ctx, func(p *Profile) (bool, error) {
		p.DisplayName = strings.TrimSpace(update.DisplayName)
		p.UserProfile = update.Profile
		p.Goal = update.Goal
		return true, nil
	}); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// LogWorkout appends a workout to the history.
func (s *Service) LogWorkout(ctx context.Context, w planner.WorkoutRecord) error {
	if err := validateWorkout(w); err != nil {
		return err
	}
	if err := s.repo.workouts.Add(ctx, w); err != nil {
		return fmt.Errorf("log workout: %w", err)
	}
	return nil
}

// LogDiet appends a diet entry to the history.
func (s *Service) LogDiet(ctx context.Context, d planner.DietRecord) error {
	if err := validateDiet(d); err != nil {
		return err
	}
	if err := s.repo.diet.Add(ctx, d); err != nil {
		return fmt.Errorf("log diet entry: %w", err)
	}
	return nil
}

// SubmitWearable stores the sample and reduces the intensity of the next pending slot when the recent sleep
// is poor.
func (s *Service) SubmitWearable(ctx context.Context, sample planner.WearableSample) (WearableOutcome, error) {
	if err := validateWearable(sample); err != nil {
		return WearableOutcome{}, err
	}
	if err := s.repo.wearables.Add(ctx, sample); err != nil {
		return WearableOutcome{}, fmt.Errorf("store wearable sample: %w", err)
	}

	samples, err := s.repo.wearables.ListRecentSleep(ctx, wearableWindow)
	if err != nil {
		return WearableOutcome{}, fmt.Errorf("list sleep samples: %w", err)
	}
	outcome := WearableOutcome{
		Sleep:    s.sleepAnalyzer.Analyze(planner.SleepHoursFromSamples(samples)),
		Adjusted: nil,
	}
	// Only a sync that reports a night can trigger the reduction.
	if sample.SleepHours <= 0 || !outcome.Sleep.HasData || !outcome.Sleep.IsPoor() {
		return outcome, nil
	}

	next, err := s.repo.schedule.NextPending(ctx, s.Today())
	if errors.Is(err, ErrNotFound) {
		return outcome, nil
	}
	if err != nil {
		return WearableOutcome{}, fmt.Errorf("find next pending slot: %w", err)
	}
	if !reducible(next) {
		return outcome, nil
	}
	reduced := planner.ReduceIntensity(next)
	if err = s.repo.schedule.Save(ctx, []planner.ScheduleSlot{reduced}); err != nil {
		return WearableOutcome{}, fmt.Errorf("save reduced slot: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "reduced intensity after poor sleep",
		slog.Int("slot_id", reduced.ID),
		slog.Int("duration_min", reduced.DurationMin),
		slog.Float64("sleep_score", outcome.Sleep.Score))
	outcome.Adjusted = &reduced
	return outcome, nil
}

type snapshot struct {
	profile   Profile
	workouts  []planner.WorkoutRecord
	diet      []planner.DietRecord
	wearables []planner.WearableSample
	nights    []planner.WearableSample
	schedule  []planner.ScheduleSlot
}

// loadSnapshot reads everything the computations need concurrently from the read-only pool.
func (s *Service) loadSnapshot(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if snap.profile, err = s.repo.profiles.Get(gctx); err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.workouts, err = s.repo.workouts.ListRecent(gctx, historyWindow); err != nil {
			return fmt.Errorf("list workouts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.diet, err = s.repo.diet.ListRecent(gctx, historyWindow); err != nil {
			return fmt.Errorf("list diet entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.wearables, err = s.repo.wearables.ListRecent(gctx, wearableWindow); err != nil {
			return fmt.Errorf("list wearable samples: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.nights, err = s.repo.wearables.ListRecentSleep(gctx, wearableWindow); err != nil {
			return fmt.Errorf("list sleep samples: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.schedule, err = s.repo.schedule.List(gctx); err != nil {
			return fmt.Errorf("list schedule: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err //nolint:wrapcheck // wrapped in the goroutines
	}
	return snap, nil
}

func (snap snapshot) sleep(analyzer planner.SleepAnalyzer) planner.SleepQuality {
	return analyzer.Analyze(planner.SleepHoursFromSamples(snap.nights))
}

// forRules gives unknown sleep a neutral score so that missing data neither reduces intensity nor calories.
func forRules(sleep planner.SleepQuality) planner.SleepQuality {
	if !sleep.HasData {
		sleep.Score = neutralSleepScore
	}
	return sleep
}

// reducible reports whether poor sleep may still shorten the slot. Rest days and slots reduced earlier
// are left alone.
func reducible(slot planner.ScheduleSlot) bool {
	return slot.DurationMin > 0 && slot.WorkoutType != planner.RestDayWorkoutType &&
		slot.Note != planner.IntensityReducedNote
}

// recent summarises the latest logged workout, nil without history.
func (snap snapshot) recent(today time.Time) *planner.RecentActivity {
	if len(snap.workouts) == 0 {
		return nil
	}
	latest := snap.workouts[0]
	const hoursPerDay = 24
	return &planner.RecentActivity{
		DaysSinceLastWorkout: int(today.Sub(planner.Day(latest.Date)).Hours() / hoursPerDay),
		LastWorkoutType:      latest.WorkoutType,
	}
}

func upcoming(slots []planner.ScheduleSlot, today time.Time) []planner.ScheduleSlot {
	var result []planner.ScheduleSlot
	for _, slot := range slots {
		if slot.Status == planner.SlotPending && !planner.Day(slot.ScheduledDate).Before(today) {
			result = append(result, slot)
		}
	}
	return result
}

func (snap snapshot) adjustment(
	analyzer planner.SleepAnalyzer,
	today time.Time,
) (planner.AdherenceReport, planner.SleepQuality, planner.ScheduleAdjustment) {
	adherence := planner.DetectAdherence(snap.schedule, snap.workouts, today)
	sleep := snap.sleep(analyzer)
	pending := upcoming(snap.schedule, today)
	adjustment := planner.AdjustSchedule(adherence, forRules(sleep), pending, snap.recent(today), today)

	// Repeated runs must not shorten the same slot twice.
	for i, slot := range adjustment.Schedule {
		before := pending[i]
		if !reducible(before) && slot.Note == planner.IntensityReducedNote {
			adjustment.Schedule[i] = before
		}
	}
	return adherence, sleep, adjustment
}

// Dashboard returns the front page snapshot.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load snapshot: %w", err)
	}
	today := s.Today()
	return Dashboard{
		Profile:        snap.profile,
		RecentWorkouts: snap.workouts[:min(len(snap.workouts), dashboardListLength)],
		RecentDiet:     snap.diet[:min(len(snap.diet), dashboardListLength)],
		Wearables:      snap.wearables,
		Sleep:          snap.sleep(s.sleepAnalyzer),
		Upcoming:       upcoming(snap.schedule, today),
		Adherence:      planner.DetectAdherence(snap.schedule, snap.workouts, today),
		TodayIntake:    sumDiet(snap.diet, today),
	}, nil
}

// Schedule returns the schedule with the adjustment AdjustUpcoming would apply. The coach note is the one
// written by the last AdjustUpcoming, or the rule-based note before that.
func (s *Service) Schedule(ctx context.Context) (ScheduleOverview, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return ScheduleOverview{}, fmt.Errorf("load snapshot: %w", err)
	}
	adherence, sleep, adjustment := snap.adjustment(s.sleepAnalyzer, s.Today())
	s.mu.Lock()
	note, ok := s.coachNotes[snap.profile.ID]
	s.mu.Unlock()
	if !ok {
		note = coach.RuleNote(adjustment)
	}
	return ScheduleOverview{
		Slots:      snap.schedule,
		Adherence:  adherence,
		Sleep:      sleep,
		Adjustment: adjustment,
		CoachNote:  note,
	}, nil
}

// AdjustUpcoming runs the adjustment rules over the stored history and persists the changed slots.
func (s *Service) AdjustUpcoming(ctx context.Context) (planner.ScheduleAdjustment, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return planner.ScheduleAdjustment{}, fmt.Errorf("load snapshot: %w", err)
	}
	today := s.Today()
	_, sleep, adjustment := snap.adjustment(s.sleepAnalyzer, today)

	original := make(map[int]planner.ScheduleSlot, len(snap.schedule))
	for _, slot := range snap.schedule {
		original[slot.ID] = slot
	}
	var changed []planner.ScheduleSlot
	for _, slot := range adjustment.Schedule {
		if slotChanged(original[slot.ID], slot) {
			changed = append(changed, slot)
		}
	}
	if len(changed) > 0 {
		if err = s.repo.schedule.Save(ctx, changed); err != nil {
			return planner.ScheduleAdjustment{}, fmt.Errorf("save adjusted slots: %w", err)
		}
	}

	attrs := []slog.Attr{slog.Int("changed_slots", len(changed))}
	for _, adj := range adjustment.Adjustments {
		attrs = append(attrs, slog.String("adjustment", string(adj.Type)))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "adjusted upcoming schedule", attrs...)

	note := s.coach.Write(ctx, adjustment, sleep)
	s.mu.Lock()
	s.coachNotes[snap.profile.ID] = note
	s.mu.Unlock()
	return adjustment, nil
}

func slotChanged(before, after planner.ScheduleSlot) bool {
	return before.WorkoutType != after.WorkoutType ||
		before.DurationMin != after.DurationMin ||
		before.Note != after.Note
}

// GenerateWeek replaces the pending slots from today on with a fresh week for the user's activity level.
func (s *Service) GenerateWeek(ctx context.Context) ([]planner.ScheduleSlot, error) {
	profile, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	today := s.Today()
	slots, err := s.repo.schedule.ReplacePending(ctx, today, planner.GenerateWeek(profile.UserProfile, today))
	if err != nil {
		return nil, fmt.Errorf("replace pending slots: %w", err)
	}
	s.mu.Lock()
	delete(s.coachNotes, profile.ID)
	s.mu.Unlock()
	return slots, nil
}

// CompleteSlot marks the slot completed, logs it as a workout and awards [CompletionPoints].
func (s *Service) CompleteSlot(ctx context.Context, slotID int) (planner.ScheduleSlot, error) {
	slot, err := s.repo.schedule.Complete(ctx, slotID, s.Today(), CompletionPoints)
	if err != nil {
		return planner.ScheduleSlot{}, fmt.Errorf("complete slot %d: %w", slotID, err)
	}
	return slot, nil
}

// recommender returns the user's recommender, creating it on first use.
func (s *Service) recommender(userID int) *recommend.Recommender {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recommenders[userID]
	if !ok {
		r = recommend.New(s.logger, s.now)
		s.recommenders[userID] = r
	}
	return r
}

// Recommendations retrains the user's model on the latest history and returns the suggestions. Without enough
// history the rule-based formulas are used.
func (s *Service) Recommendations(ctx context.Context) (Recommendations, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return Recommendations{}, fmt.Errorf("load snapshot: %w", err)
	}
	topWorkouts, err := s.repo.workouts.CountByType(ctx, topWorkoutTypes)
	if err != nil {
		return Recommendations{}, fmt.Errorf("count workout types: %w", err)
	}

	r := s.recommender(snap.profile.ID)
	// Failures are logged and keep the previous model.
	_, _ = r.Train(ctx, snap.profile.UserProfile, snap.workouts, snap.diet)

	today := s.Today()
	recent := snap.recent(today)
	sleep := snap.sleep(s.sleepAnalyzer)
	result := Recommendations{
		Profile:        snap.profile,
		Maintenance:    r.RecommendCalories(ctx, snap.profile.UserProfile, planner.GoalMaintenance),
		WeightLoss:     r.RecommendCalories(ctx, snap.profile.UserProfile, planner.GoalWeightLoss),
		WeightGain:     r.RecommendCalories(ctx, snap.profile.UserProfile, planner.GoalWeightGain),
		Workout:        r.RecommendWorkout(ctx, snap.profile.UserProfile, recent),
		ProteinGPerDay: math.Round(baselineProteinPerKg*snap.profile.WeightKg*10) / 10, //nolint:mnd // one decimal
		TopWorkouts:    topWorkouts,
		Diet:           planner.AdjustDiet(snap.profile.UserProfile, forRules(sleep), snap.wearables),
		Sleep:          sleep,
		Skipped:        planner.DetectAdherence(snap.schedule, snap.workouts, today).Skipped,
		Model:          nil,
	}
	if model := r.Model(); model != nil {
		outcome := model.Outcome()
		result.Model = &outcome
	}
	return result, nil
}

// Community returns the leaderboard and the active challenges.
func (s *Service) Community(ctx context.Context) (Community, error) {
	var community Community
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := s.repo.profiles.Get(gctx)
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		community.Points = profile.CommunityPoints
		return nil
	})
	g.Go(func() error {
		var err error
		if community.Leaderboard, err = s.repo.community.Leaderboard(gctx, leaderboardLength); err != nil {
			return fmt.Errorf("get leaderboard: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if community.Challenges, err = s.repo.community.ListActive(gctx, s.Today()); err != nil {
			return fmt.Errorf("list challenges: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Community{}, err //nolint:wrapcheck // wrapped in the goroutines
	}
	return community, nil
}

// CreateChallenge creates a challenge the user automatically joins.
func (s *Service) CreateChallenge(ctx context.Context, in ChallengeInput) (int, error) {
	if err := validateChallenge(in); err != nil {
		return 0, err
	}
	id, err := s.repo.community.Create(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("create challenge: %w", err)
	}
	return id, nil
}

// JoinChallenge adds the user to the challenge.
func (s *Service) JoinChallenge(ctx context.Context, challengeID int) error {
	if err := s.repo.community.Join(ctx, challengeID); err != nil {
		return fmt.Errorf("join challenge %d: %w", challengeID, err)
	}
	return nil
}

// ExportUserData writes the user's rows to a new SQLite file and returns its path. The caller removes the file.
func (s *Service) ExportUserData(ctx context.Context) (string, error) {
	path, err := s.db.ExportUserData(ctx, contexthelpers.AuthenticatedUserID(ctx), s.exportDir)
	if err != nil {
		return "", fmt.Errorf("export user data: %w", err)
	}
	return path, nil
}

// DeleteUser deletes the user and all their data.
func (s *Service) DeleteUser(ctx context.Context) error {
	if err := s.repo.profiles.Delete(ctx); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	userID := contexthelpers.AuthenticatedUserID(ctx)
	s.mu.Lock()
	delete(s.recommenders, userID)
	delete(s.coachNotes, userID)
	s.mu.Unlock()
	return nil
}
