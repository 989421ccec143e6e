package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"filebot/internal/bot"
	"filebot/internal/config"
	"filebot/internal/gateway"
	"filebot/internal/metrics"
	"filebot/internal/storage"
	"filebot/internal/storage/ch"
	"filebot/internal/storage/mdb"
	"filebot/internal/storage/stubs"
)

// App represents the application
type App struct {
	config   *config.Config
	logger   *zap.Logger
	db       storage.Storage
	activity storage.ActivityLog
	bot      *bot.Bot
	server   *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	app := &App{config: cfg, logger: logger}
	logger.Info("Starting File Bot...")

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initActivityLog(); err != nil {
		return nil, err
	}
	if err := app.initBot(ctx); err != nil {
		return nil, err
	}
	app.initHTTPServer()

	return app, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// initDatabase connects the primary store and makes sure its indexes exist
func (a *App) initDatabase(ctx context.Context) error {
	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	} else {
		a.logger.Info("Connecting to MongoDB", zap.String("database", a.config.MongoDatabase))
		mongoDB, err := mdb.NewMongoDB(a.config.MongoURI, a.config.MongoDatabase)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db = mongoDB
	}

	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initActivityLog connects ClickHouse when configured
func (a *App) initActivityLog() error {
	if !a.config.ActivityLogEnabled() {
		a.logger.Info("Activity log disabled (CLICKHOUSE_HOST not set)")
		a.activity = storage.NopActivityLog{}
		return nil
	}

	a.logger.Info("Connecting to ClickHouse",
		zap.String("host", a.config.ClickHouseHost),
		zap.Int("port", a.config.ClickHousePort),
		zap.String("database", a.config.ClickHouseDatabase),
		zap.Bool("tls", a.config.ClickHouseUseTLS),
	)
	activity, err := ch.NewClickHouseDB(
		a.config.ClickHouseHost,
		a.config.ClickHousePort,
		a.config.ClickHouseDatabase,
		a.config.ClickHouseUser,
		a.config.ClickHousePassword,
		a.config.ClickHouseUseTLS,
	)
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	a.activity = activity
	return nil
}

// initBot creates the Telegram client and seeds admins and channels
func (a *App) initBot(ctx context.Context) error {
	tg, err := gateway.NewTelegram(a.config.TelegramToken, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	a.bot = bot.NewBot(tg.API(), tg, a.db, a.activity, bot.Options{
		OwnerID:        a.config.OwnerID(),
		StorageGroupID: a.config.StorageGroupID,
		WebhookSecret:  a.config.WebhookSecret,
	}, a.logger)

	if err := a.bot.Authorizer().Seed(ctx, a.config.AdminIDs[1:]); err != nil {
		return err
	}
	if a.config.ChannelID != "" {
		if _, err := a.db.AddForceSubChannel(ctx, a.config.ChannelID); err != nil {
			return fmt.Errorf("failed to seed force-sub channel: %w", err)
		}
	}
	a.logger.Info("Bot ready", zap.Int64s("admin_ids", a.config.AdminIDs))
	return nil
}

func (a *App) initHTTPServer() {
	mode := "polling"
	if a.config.WebhookMode {
		mode = "webhook"
	}
	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      newRouter(a.bot, mode),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// newRouter serves health checks, metrics and the webhook
func newRouter(b *bot.Bot, mode string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "File Bot is running (mode: %s)", mode)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post(bot.WebhookPath, b.WebhookHandler())
	r.Post(bot.WebhookPath+"/{secret}", b.WebhookHandler())

	return r
}

// Run starts the application and blocks until a shutdown signal
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := a.serve(ctx)
	if closeErr := a.Shutdown(); err == nil {
		err = closeErr
	}
	return err
}

// serve runs the HTTP server next to update delivery. The first failure
// cancels the group, which shuts the HTTP server down as well.
func (a *App) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.config.WebhookMode {
		g.Go(func() error {
			a.logger.Info("Starting bot in WEBHOOK mode", zap.String("webhook_url", a.config.WebhookURL))
			if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
				return fmt.Errorf("failed to setup webhook: %w", err)
			}
			return nil
		})
	} else {
		g.Go(func() error {
			return a.bot.Start(ctx)
		})
	}

	return g.Wait()
}

// Shutdown releases the storage connections
func (a *App) Shutdown() error {
	var errs []error
	if err := a.activity.Close(); err != nil {
		a.logger.Error("Error closing activity log", zap.Error(err))
		errs = append(errs, err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		errs = append(errs, err)
	}
	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
