// Command fitctl runs the planner computations offline against a TOML profile and seeds demo data.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/sqlite"
	"github.com/myrjola/fitplan/internal/tracker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are shared by every subcommand.
type rootOptions struct {
	profilePath string
	now         func() time.Time
}

func (o *rootOptions) settings() (settings, error) {
	return loadSettings(o.profilePath)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{profilePath: defaultProfilePath(), now: time.Now}
	rootCmd := &cobra.Command{
		Use:           "fitctl",
		Short:         "Fitness planning from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.profilePath, "profile", opts.profilePath, "path to the TOML profile")

	rootCmd.AddCommand(newProfileCmd(opts))
	rootCmd.AddCommand(newCaloriesCmd(opts))
	rootCmd.AddCommand(newWorkoutCmd(opts))
	rootCmd.AddCommand(newWeekCmd(opts))
	rootCmd.AddCommand(newSleepCmd(opts))
	rootCmd.AddCommand(newSeedDemoCmd(opts))
	return rootCmd
}

func newProfileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the effective profile, writing a template first if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.profilePath == "" {
				return errors.New("no profile path, pass --profile")
			}
			if _, err := os.Stat(opts.profilePath); os.IsNotExist(err) {
				if err = writeProfileTemplate(opts.profilePath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", opts.profilePath)
			}
			s, err := opts.settings()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
			fmt.Fprintf(w, "age\t%d\n", s.Profile.Age)
			fmt.Fprintf(w, "weight\t%s kg\n", strconv.FormatFloat(s.Profile.WeightKg, 'f', -1, 64))
			fmt.Fprintf(w, "height\t%d cm\n", s.Profile.HeightCm)
			fmt.Fprintf(w, "gender\t%s\n", s.Profile.Gender)
			fmt.Fprintf(w, "activity level\t%s\n", s.Profile.ActivityLevel.Label())
			fmt.Fprintf(w, "goal\t%s\n", s.Goal)
			fmt.Fprintf(w, "sleep band\t%.1f-%.1f h\n", s.Analyzer.MinSleepHours, s.Analyzer.MaxSleepHours)
			return w.Flush()
		},
	}
}

func newCaloriesCmd(opts *rootOptions) *cobra.Command {
	var goal string
	cmd := &cobra.Command{
		Use:   "calories",
		Short: "Print BMR, maintenance calories and the goal target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("goal") {
				if s.Goal, err = planner.ParseGoal(goal); err != nil {
					return err //nolint:wrapcheck // message names the flag value
				}
			}
			maintenance := planner.MaintenanceCalories(s.Profile)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
			fmt.Fprintf(w, "BMR\t%s kcal\n", strconv.FormatFloat(planner.BMR(s.Profile), 'f', -1, 64))
			fmt.Fprintf(w, "maintenance\t%d kcal\n", maintenance)
			fmt.Fprintf(w, "%s\t%d kcal\n", s.Goal, planner.CaloriesForGoal(maintenance, s.Goal))
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&goal, "goal", "", "override the profile goal (maintenance, weight_loss, weight_gain)")
	return cmd
}

func newWorkoutCmd(opts *rootOptions) *cobra.Command {
	var (
		last      string
		daysSince int
	)
	cmd := &cobra.Command{
		Use:   "workout",
		Short: "Recommend the next workout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			var recent *planner.RecentActivity
			if last != "" {
				recent = &planner.RecentActivity{DaysSinceLastWorkout: daysSince, LastWorkoutType: last}
			}
			workoutType := planner.RecommendWorkout(s.Profile, recent)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d min)\n", workoutType, planner.WorkoutDuration(workoutType))
			return nil
		},
	}
	cmd.Flags().StringVar(&last, "last", "", "type of the last logged workout")
	cmd.Flags().IntVar(&daysSince, "days-since", 1, "days since the last logged workout")
	return cmd
}

func newWeekCmd(opts *rootOptions) *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Generate a week of workouts for the profile's activity level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			day := opts.now()
			if start != "" {
				if day, err = time.Parse(time.DateOnly, start); err != nil {
					return fmt.Errorf("parse --start: %w", err)
				}
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
			fmt.Fprintln(w, "DATE\tWORKOUT\tMINUTES")
			for _, slot := range planner.GenerateWeek(s.Profile, day) {
				fmt.Fprintf(w, "%s\t%s\t%d\n", planner.FormatDate(slot.ScheduledDate), slot.WorkoutType, slot.DurationMin)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day of the week as YYYY-MM-DD (default today)")
	return cmd
}

func newSleepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sleep HOURS...",
		Short: "Score the sleep of the last nights, oldest first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			hours := make([]float64, len(args))
			for i, arg := range args {
				if hours[i], err = strconv.ParseFloat(arg, 64); err != nil || hours[i] < 0 || hours[i] > 24 {
					return fmt.Errorf("invalid sleep duration %q", arg)
				}
			}
			q := s.Analyzer.Analyze(hours)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
			fmt.Fprintf(w, "quality\t%s\n", q.Quality)
			fmt.Fprintf(w, "score\t%s\n", strconv.FormatFloat(q.Score, 'f', -1, 64))
			fmt.Fprintf(w, "average\t%.1f h\n", q.AvgSleep)
			fmt.Fprintf(w, "last night\t%.1f h\n", q.LatestSleep)
			fmt.Fprintf(w, "advice\t%s\n", q.Recommendation)
			return w.Flush()
		},
	}
}

func newSeedDemoCmd(opts *rootOptions) *cobra.Command {
	var (
		dbURL string
		name  string
	)
	cmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Insert a demo user with two weeks of history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.NewLogger(cmd.ErrOrStderr(), slog.LevelInfo)
			id, err := seedDemo(cmd.Context(), logger, dbURL, name, opts.now)
			if err != nil {
				logger.LogAttrs(cmd.Context(), slog.LevelError, "seed demo", errors.SlogError(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded demo user %d\n", id)
			return nil
		},
	}
	dbDefault := "./fitplan.sqlite3"
	if env, ok := os.LookupEnv("FITPLAN_SQLITE_URL"); ok && env != "" {
		dbDefault = env
	}
	cmd.Flags().StringVar(&dbURL, "db", dbDefault, "SQLite database to seed")
	cmd.Flags().StringVar(&name, "name", "Demo athlete", "display name of the demo user")
	return cmd
}

func seedDemo(ctx context.Context, logger *slog.Logger, dbURL, name string, now func() time.Time) (int, error) {
	db, err := sqlite.NewDatabase(ctx, dbURL, logger)
	if err != nil {
		return 0, errors.Wrap(err, "open db", slog.String("url", dbURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	svc := tracker.NewService(db, logger, tracker.Config{ //nolint:exhaustruct // defaults for the rest
		Now: now,
	})
	id, err := svc.SeedDemo(ctx, name)
	if err != nil {
		return 0, errors.Wrap(err, "seed demo user")
	}
	return id, nil
}

func writeProfileTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd,gosec // user config directory
		return fmt.Errorf("create profile directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(profileTemplate), 0o600); err != nil { //nolint:mnd // owner only
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
