// Command stresstest registers a crowd of athletes with history and then drives the planning flows concurrently.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

const (
	testTimeout                = 10 * time.Second
	userRegistrationTimeout    = 30 * time.Second
	scenarioTimeout            = 30 * time.Second
	historyTimeout             = 5 * time.Minute
	maxConcurrentRegistrations = 10
	maxConcurrentOperations    = 20
	historyDays                = 21
	successRateThreshold       = 95.0
	expectedArgsCount          = 2
	percentageMultiplier       = 100
	numUsers                   = 10
)

// athlete is a registered client with a valid session.
type athlete struct {
	client *e2etest.Client
	name   string
}

func testAuth(client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	if _, err := client.Register(ctx); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if _, err := client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	if _, err := client.Login(ctx); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	return nil
}

// setupAthletes registers n athletes, each with their own session.
func setupAthletes(ctx context.Context, url, hostname string, n int, logger *slog.Logger) ([]*athlete, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting user registration", slog.Int("num_users", n))

	var (
		athletes   = make([]*athlete, 0, n)
		athletesMu sync.Mutex
		failures   atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRegistrations)
	for i := range n {
		g.Go(func() error {
			userCtx, cancel := context.WithTimeout(gctx, userRegistrationTimeout)
			defer cancel()

			client, err := e2etest.NewClient(url, hostname, url)
			if err != nil {
				return fmt.Errorf("create client for user %d: %w", i, err)
			}
			if _, err = client.Register(userCtx); err != nil {
				failures.Add(1)
				logger.LogAttrs(userCtx, slog.LevelWarn, "registration failed",
					slog.Int("user_index", i), slog.Any("error", err))
				return nil
			}
			athletesMu.Lock()
			athletes = append(athletes, &athlete{client: client, name: "athlete_" + strconv.Itoa(i)})
			athletesMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped
	}
	if failures.Load() > 0 {
		return athletes, fmt.Errorf("%d registrations failed", failures.Load())
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "All users registered successfully", slog.Int("total_users", len(athletes)))
	return athletes, nil
}

// generateHistory logs workouts, meals and wearable syncs for the past weeks so that the learned
// recommendations have data to fit.
func generateHistory(ctx context.Context, a *athlete) error {
	today := time.Now().UTC()
	workoutTypes := []string{"Running", "Cycling", "Swimming", "Weightlifting"}
	for day := historyDays; day > 0; day-- {
		date := planner.FormatDate(today.AddDate(0, 0, -day))
		doc, err := a.client.GetDoc(ctx, "/")
		if err != nil {
			return fmt.Errorf("get home: %w", err)
		}
		if day%2 == 0 {
			workoutType := workoutTypes[(day/2)%len(workoutTypes)]
			if _, err = a.client.SubmitForm(ctx, doc, "/workouts", map[string]string{
				"Date":            date,
				"Workout type":    workoutType,
				"Calories burned": strconv.Itoa(250 + rand.IntN(200)), //nolint:gosec,mnd // load data
			}); err != nil {
				return fmt.Errorf("log workout on %s: %w", date, err)
			}
		}
		if _, err = a.client.SubmitForm(ctx, doc, "/diet", map[string]string{
			"Date":          date,
			"Meal":          "dinner",
			"Energy (kcal)": strconv.Itoa(1800 + rand.IntN(900)), //nolint:gosec,mnd // load data
			"Protein (g)":   "90",
		}); err != nil {
			return fmt.Errorf("log meal on %s: %w", date, err)
		}
	}
	return nil
}

func generateHistoryForAthletes(ctx context.Context, athletes []*athlete, logger *slog.Logger) error {
	var failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRegistrations)
	for _, a := range athletes {
		g.Go(func() error {
			historyCtx, cancel := context.WithTimeout(gctx, historyTimeout)
			defer cancel()
			if err := generateHistory(historyCtx, a); err != nil {
				failures.Add(1)
				logger.LogAttrs(historyCtx, slog.LevelWarn, "history generation failed",
					slog.String("athlete", a.name), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	if n := failures.Load(); n > 0 {
		return fmt.Errorf("history generation failed for %d athletes", n)
	}
	return nil
}

// planningScenario is the daily loop: generate a week, sync the wearable, complete a session and read
// the recommendations, community and JSON API.
func planningScenario(ctx context.Context, a *athlete, logger *slog.Logger) error {
	client := a.client

	doc, err := client.GetDoc(ctx, "/schedule")
	if err != nil {
		return fmt.Errorf("get schedule: %w", err)
	}
	if doc, err = client.SubmitForm(ctx, doc, "/schedule/generate", nil); err != nil {
		return fmt.Errorf("generate week: %w", err)
	}
	action, ok := doc.Find("[data-test=slot] form").First().Attr("action")
	if !ok {
		return errors.New("no completable slot in generated week")
	}

	home, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	if _, err = client.SubmitForm(ctx, home, "/wearables", map[string]string{
		"Steps":         strconv.Itoa(4000 + rand.IntN(8000)),                     //nolint:gosec,mnd // load data
		"Sleep (hours)": strconv.FormatFloat(5+rand.Float64()*4, 'f', 1, 64), //nolint:gosec,mnd // load data
	}); err != nil {
		return fmt.Errorf("sync wearable: %w", err)
	}

	if doc, err = client.GetDoc(ctx, "/schedule"); err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	if _, err = client.SubmitForm(ctx, doc, action, nil); err != nil {
		return fmt.Errorf("complete slot: %w", err)
	}
	if doc, err = client.GetDoc(ctx, "/schedule"); err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	if _, err = client.SubmitForm(ctx, doc, "/schedule/adjust", nil); err != nil {
		return fmt.Errorf("adjust schedule: %w", err)
	}

	for _, path := range []string{"/recommendations", "/community"} {
		if _, err = client.GetDoc(ctx, path); err != nil {
			return fmt.Errorf("get %s: %w", path, err)
		}
	}
	for _, path := range []string{"/api/v1/schedule", "/api/v1/recommendations"} {
		resp, getErr := client.Get(ctx, path)
		if getErr != nil {
			return fmt.Errorf("get %s: %w", path, getErr)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("get %s: unexpected status code: %d", path, resp.StatusCode)
		}
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Planning scenario completed", slog.String("athlete", a.name))
	return nil
}

func runLoadTest(ctx context.Context, athletes []*athlete, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", len(athletes)))

	var successCount, failureCount atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)
	for _, a := range athletes {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(gctx, scenarioTimeout)
			defer cancel()

			if err := planningScenario(scenarioCtx, a, logger); err != nil {
				failureCount.Add(1)
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.String("athlete", a.name), slog.Any("error", err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(len(athletes)) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))
	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
		hostname = "localhost"
	}

	client, err := e2etest.NewClient(url, hostname, url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = testAuth(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", slog.Any("error", err))
		os.Exit(1)
	}

	setupStart := time.Now()
	athletes, err := setupAthletes(ctx, url, hostname, numUsers, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to setup users", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "User setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)))

	historyStart := time.Now()
	if err = generateHistoryForAthletes(ctx, athletes, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "some history generation failed, continuing with load test",
			slog.Any("error", err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "History generation completed",
		slog.Duration("history_duration", time.Since(historyStart)),
		slog.Int("days_per_user", historyDays))

	loadTestStart := time.Now()
	if err = runLoadTest(ctx, athletes, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)))
}
