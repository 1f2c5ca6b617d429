package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/expense-tickets/api"
	"github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/audit"
	"github.com/frahmantamala/expense-tickets/internal/auth"
	authPostgres "github.com/frahmantamala/expense-tickets/internal/auth/postgres"
	"github.com/frahmantamala/expense-tickets/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tickets/internal/category/postgres"
	"github.com/frahmantamala/expense-tickets/internal/core/events"
	"github.com/frahmantamala/expense-tickets/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-tickets/internal/expense/postgres"
	"github.com/frahmantamala/expense-tickets/internal/media"
	"github.com/frahmantamala/expense-tickets/internal/role"
	rolePostgres "github.com/frahmantamala/expense-tickets/internal/role/postgres"
	"github.com/frahmantamala/expense-tickets/internal/siteconfig"
	siteconfigPostgres "github.com/frahmantamala/expense-tickets/internal/siteconfig/postgres"
	"github.com/frahmantamala/expense-tickets/internal/transport"
	"github.com/frahmantamala/expense-tickets/internal/transport/rest"
	"github.com/frahmantamala/expense-tickets/internal/user"
	userPostgres "github.com/frahmantamala/expense-tickets/internal/user/postgres"
	"github.com/frahmantamala/expense-tickets/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *gorm.DB
	SQL      *sqlx.DB
	Redis    *redis.Client
	EventBus *events.EventBus
	Media    *media.Cleaner
	Router   *chi.Mux
	Logger   *slog.Logger
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

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), deps.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.close(ctx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// close releases background resources in dependency order: pending events
// may still queue attachment removals, which must finish before the database
// goes away.
func (d *Dependencies) close(ctx context.Context) {
	d.EventBus.Wait()
	if err := d.Media.Shutdown(ctx); err != nil {
		d.Logger.Error("Media cleaner shutdown error", "error", err)
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
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()
	ctx := context.Background()

	db, sqlDB, err := initDB(cfg.Database, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if _, err := api.Load(ctx); err != nil {
		return nil, err
	}

	eventBus := events.NewEventBus(lg)
	audit.NewEventHandler(lg).RegisterEventHandlers(eventBus)

	roles, err := BootstrapRoles(ctx, db, cfg.RoleCache.Size, lg)
	if err != nil {
		return nil, err
	}

	var (
		revoker     auth.Revoker
		redisClient *redis.Client
	)
	checks := map[string]rest.Check{
		"postgres": sqlDB.PingContext,
	}
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		revoker = auth.NewRedisRevoker(redisClient)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		lg.Warn("redis not configured, token revocation is kept in process")
		revoker = auth.NewMemoryRevoker(cfg.Security.RevocationCacheSize, cfg.Security.AccessTokenDuration, lg)
	}

	codec := auth.NewTokenCodec(cfg.Security.JWTSecret)
	accounts := authPostgres.NewAccountRepository(db)
	guard := auth.NewGuard(codec, revoker, accounts, roles, eventBus, lg)
	authService := auth.NewService(accounts, codec, revoker, guard, cfg.Security.AccessTokenDuration, lg)

	categoryService := category.NewService(categoryPostgres.NewCategoryRepository(db), lg)
	configService := siteconfig.NewService(siteconfigPostgres.NewSiteConfigRepository(db), lg)
	userService := user.NewService(userPostgres.NewUserRepository(db), roles, cfg.Security.BCryptCost, lg)

	cleaner := media.NewCleaner(afero.NewBasePathFs(afero.NewOsFs(), cfg.Media.UploadDir), media.Config{
		Workers:        cfg.Media.Workers,
		QueueSize:      cfg.Media.QueueSize,
		MaxRetries:     cfg.Media.MaxRetries,
		RetryBaseDelay: cfg.Media.RetryBaseDelay,
	}, lg)

	expenseService := expense.NewService(
		expensePostgres.NewExpenseRepository(db),
		expensePostgres.NewReportRepository(sqlDB),
		categoryService,
		guard,
		lg,
		expense.WithPublisher(eventBus),
		expense.WithMedia(cleaner),
	)

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Auth:       auth.NewHandler(authService, cfg.Security.CookieName, cfg.Security.CookieSecure, lg),
		Users:      user.NewHandler(userService, lg),
		Roles:      role.NewHandler(roles, lg),
		Categories: category.NewHandler(transport.NewBaseHandler(lg), categoryService),
		Config:     siteconfig.NewHandler(configService, lg),
		Tickets:    expense.NewHandler(expenseService, lg),
	}, rest.Options{
		Authenticator: guard,
		Authorizer:    guard,
		CookieName:    cfg.Security.CookieName,
		HealthChecks:  checks,
		MetricsPath:   metricsPath,
		OpenAPI:       api.Spec(),
		BaseURL:       cfg.Server.BaseURL,
		Logger:        lg,
	})

	return &Dependencies{
		Config:   cfg,
		DB:       db,
		SQL:      sqlDB,
		Redis:    redisClient,
		EventBus: eventBus,
		Media:    cleaner,
		Router:   router,
		Logger:   lg,
	}, nil
}

// BootstrapRoles builds the role registry and upserts the baseline roles so
// every canonical role resolves from the first request on.
func BootstrapRoles(ctx context.Context, db *gorm.DB, cacheSize int, lg *slog.Logger) (*role.Registry, error) {
	roles, err := role.NewRegistry(rolePostgres.NewRoleRepository(db), cacheSize, lg)
	if err != nil {
		return nil, err
	}
	if err := roles.EnsureBaseline(ctx); err != nil {
		return nil, fmt.Errorf("seed baseline roles: %w", err)
	}
	return roles, nil
}

// initDB opens the gorm connection and shares its pool with sqlx for the
// report queries.
func initDB(cfg internal.DatabaseConfig, lg *slog.Logger) (*gorm.DB, *sqlx.DB, error) {
	const driver = "pgx"

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:        cfg.GetDSN(),
		DriverName: driver,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	lg.Info("database connected", "max_open_conns", cfg.MaxOpenConns)
	return db, sqlx.NewDb(sqlDB, driver), nil
}
