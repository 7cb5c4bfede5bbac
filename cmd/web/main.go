package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/yuin/goldmark"

	"github.com/myrjola/fitplan/internal/coach"
	"github.com/myrjola/fitplan/internal/envstruct"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/flightrecorder"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/myrjola/fitplan/internal/sqlite"
	"github.com/myrjola/fitplan/internal/tracker"
	"github.com/myrjola/fitplan/internal/webauthnhandler"
)

type application struct {
	logger          *slog.Logger
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	sessionManager  *scs.SessionManager
	templateFS      fs.FS
	tracker         *tracker.Service
	markdown        goldmark.Markdown
	flightRecorder  *flightrecorder.Recorder
	corsOrigins     []string
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"FITPLAN_ADDR" envDefault:"localhost:8081"`
	// FQDN is the fully qualified domain name of the server used for WebAuthn Relying Party configuration.
	FQDN string `env:"FITPLAN_FQDN" envDefault:"localhost"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FITPLAN_SQLITE_URL" envDefault:"./fitplan.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"FITPLAN_TEMPLATE_PATH" envDefault:""`
	// OpenAIAPIKey enables the LLM written coach notes. Without it the notes are rule-based.
	OpenAIAPIKey string `env:"FITPLAN_OPENAI_API_KEY" envDefault:""`
	OpenAIModel  string `env:"FITPLAN_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	// CORSOrigins is a comma separated list of origins allowed to call the /api/v1 JSON endpoints.
	CORSOrigins string `env:"FITPLAN_CORS_ORIGINS" envDefault:""`
	// SleepMinHours and SleepMaxHours bound the optimal nightly sleep.
	SleepMinHours float64 `env:"FITPLAN_SLEEP_MIN_HOURS" envDefault:"7"`
	SleepMaxHours float64 `env:"FITPLAN_SLEEP_MAX_HOURS" envDefault:"9"`
	// TracesDir enables the flight recorder that captures an execution trace when a request times out.
	TracesDir string `env:"FITPLAN_TRACES_DIR" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if cfg.SleepMinHours <= 0 || cfg.SleepMaxHours < cfg.SleepMinHours {
		return errors.New("invalid sleep band")
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	sessionManager := initializeSessionManager(db)

	var webAuthnHandler *webauthnhandler.WebAuthnHandler
	if webAuthnHandler, err = webauthnhandler.New(cfg.Addr, cfg.FQDN, logger, sessionManager, db); err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	var recorder *flightrecorder.Recorder
	if cfg.TracesDir != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{
			Logger:   logger,
			Dir:      cfg.TracesDir,
			MinAge:   0,
			MaxBytes: 0,
			Cooldown: 0,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(context.WithoutCancel(ctx))
	}

	app := application{
		logger:          logger,
		webAuthnHandler: webAuthnHandler,
		sessionManager:  sessionManager,
		templateFS:      os.DirFS(htmlTemplatePath),
		tracker: tracker.NewService(db, logger, tracker.Config{
			SleepAnalyzer: planner.SleepAnalyzer{MinSleepHours: cfg.SleepMinHours, MaxSleepHours: cfg.SleepMaxHours},
			Coach:         coach.New(logger, cfg.OpenAIAPIKey, cfg.OpenAIModel),
			Now:           time.Now,
			ExportDir:     "",
		}),
		markdown:       newMarkdown(),
		flightRecorder: recorder,
		corsOrigins:    splitOrigins(cfg.CORSOrigins),
	}

	var handler http.Handler
	if handler, err = app.routes(); err != nil {
		return errors.Wrap(err, "routes")
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, handler); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func splitOrigins(s string) []string {
	var origins []string
	for origin := range strings.SplitSeq(s, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func initializeSessionManager(dbs *sqlite.Database) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = 12 * time.Hour                                                //nolint:mnd // half a day
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	// A missing .env file is fine, the environment is used as is.
	envErr := godotenv.Load()

	level := slog.LevelDebug
	if s, ok := os.LookupEnv("FITPLAN_LOG_LEVEL"); ok {
		level = logging.ParseLevel(s)
	}
	logger := logging.NewLogger(os.Stdout, level)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelWarn, "could not load .env file", errors.SlogError(envErr))
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
