// Command smoketest checks a deployed fitplan instance end to end with a virtual authenticator.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func testAuth(ctx context.Context, client *e2etest.Client) error {
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

// testPlanning generates a week, logs a workout and reads the schedule back through the JSON API.
func testPlanning(ctx context.Context, client *e2etest.Client) error {
	doc, err := client.GetDoc(ctx, "/schedule")
	if err != nil {
		return fmt.Errorf("get schedule: %w", err)
	}
	if doc, err = client.SubmitForm(ctx, doc, "/schedule/generate", nil); err != nil {
		return fmt.Errorf("generate week: %w", err)
	}
	if doc.Find("[data-test=slot]").Length() == 0 {
		return fmt.Errorf("generated week has no slots")
	}

	if doc, err = client.GetDoc(ctx, "/"); err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	if _, err = client.SubmitForm(ctx, doc, "/workouts", map[string]string{
		"Workout type":    "Running",
		"Calories burned": "320",
	}); err != nil {
		return fmt.Errorf("log workout: %w", err)
	}

	resp, err := client.Get(ctx, "/api/v1/schedule")
	if err != nil {
		return fmt.Errorf("get schedule json: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("schedule json: unexpected status code: %d", resp.StatusCode)
	}
	var schedule struct {
		Slots []json.RawMessage `json:"slots"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&schedule); err != nil {
		return fmt.Errorf("decode schedule json: %w", err)
	}
	if len(schedule.Slots) == 0 {
		return fmt.Errorf("schedule json has no slots")
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
		hostname = "localhost"
	}

	if client, err = e2etest.NewClient(url, hostname, url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second) //nolint:mnd // whole flow
	defer cancel()
	if err = testAuth(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing auth", slog.Any("error", err))
		os.Exit(1) //nolint:gocritic // exiting without cancel is fine
	}
	if err = testPlanning(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing planning", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
}
