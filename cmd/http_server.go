package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/auth"
	authPostgres "github.com/frahmantamala/leave-management/internal/auth/postgres"
	"github.com/frahmantamala/leave-management/internal/leave"
	leavePostgres "github.com/frahmantamala/leave-management/internal/leave/postgres"
	"github.com/frahmantamala/leave-management/internal/notification"
	"github.com/frahmantamala/leave-management/internal/transport/rest"
	"github.com/frahmantamala/leave-management/internal/user"
	userPostgres "github.com/frahmantamala/leave-management/internal/user/postgres"
	"github.com/frahmantamala/leave-management/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const openAPIPath = "./api/openapi.yml"

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *gorm.DB
	SQL        *sql.DB
	Redis      *redis.Client
	Dispatcher *notification.Dispatcher
	Router     *chi.Mux
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.close(ctx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close(context.Background())
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// close releases resources in dependency order: queued emails are flushed
// before the database goes away.
func (d *Dependencies) close(ctx context.Context) {
	if err := d.Dispatcher.Shutdown(ctx); err != nil {
		d.Logger.Error("Notification dispatcher shutdown error", "error", err)
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.SQL.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}

	redisClient, err := initRedis(config.Redis)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	openAPI, err := rest.NewOpenAPIHandler(openAPIPath)
	if err != nil {
		lg.Warn("API docs disabled", "error", err)
	}

	dispatcher := notification.NewDispatcher(newMailer(config.Mail, lg), notification.DispatcherConfig{
		Workers:     config.Mail.Workers,
		QueueSize:   config.Mail.QueueSize,
		SendTimeout: config.Mail.SendTimeout,
	}, lg)
	notifier := notification.NewNotifier(dispatcher, lg)

	var tokens auth.TokenStore = auth.NewMemoryTokenStore()
	healthChecks := map[string]rest.Check{}
	if redisClient != nil {
		redisStore := auth.NewRedisTokenStore(redisClient, lg)
		tokens = redisStore
		healthChecks["redis"] = redisStore.Ping
	}

	userService := user.NewService(userPostgres.NewUserRepository(db))
	authService := auth.NewService(
		authPostgres.NewRepository(db),
		auth.NewJWTTokenGenerator(config.Security.JWTSecret, config.Security.AccessTokenDuration),
		tokens,
		notifier,
		config.Security.BCryptCost,
		lg,
	)
	leaveService := leave.NewService(leavePostgres.NewLeaveRepository(db), userService, notifier, lg)

	routes := rest.Routes{
		Health:         rest.NewHealthHandler(sqlDB, healthChecks),
		Auth:           auth.NewHandler(authService),
		RBAC:           auth.NewRBACAuthorization(lg),
		User:           user.NewHandler(userService),
		Leave:          leave.NewHandler(leaveService),
		AllowedOrigins: config.Server.Origins(),
		Logger:         lg,
	}
	if openAPI != nil {
		routes.OpenAPI = openAPI
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, routes)

	return &Dependencies{
		Config:     config,
		DB:         db,
		SQL:        sqlDB,
		Redis:      redisClient,
		Dispatcher: dispatcher,
		Router:     router,
		Logger:     lg,
	}, nil
}

// initDB opens the GORM connection with driver errors translated, so unique
// violations surface as gorm.ErrDuplicatedKey.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis returns nil when no address is configured.
func initRedis(cfg internal.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := internal.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func newMailer(cfg internal.MailConfig, lg *slog.Logger) notification.Mailer {
	if !cfg.Enabled() {
		lg.Warn("SMTP host not configured, emails will only be logged")
		return notification.NewLogMailer(lg)
	}
	return notification.NewSMTPMailer(cfg)
}
