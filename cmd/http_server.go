package cmd

import (
	"context"
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
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/auth"
	authPostgres "github.com/trackifyhq/trackify/internal/auth/postgres"
	"github.com/trackifyhq/trackify/internal/billing"
	billingPostgres "github.com/trackifyhq/trackify/internal/billing/postgres"
	"github.com/trackifyhq/trackify/internal/company"
	companyPostgres "github.com/trackifyhq/trackify/internal/company/postgres"
	"github.com/trackifyhq/trackify/internal/core/events"
	"github.com/trackifyhq/trackify/internal/department"
	departmentPostgres "github.com/trackifyhq/trackify/internal/department/postgres"
	"github.com/trackifyhq/trackify/internal/evaluation"
	evaluationPostgres "github.com/trackifyhq/trackify/internal/evaluation/postgres"
	"github.com/trackifyhq/trackify/internal/mercadopago"
	"github.com/trackifyhq/trackify/internal/notification"
	notificationPostgres "github.com/trackifyhq/trackify/internal/notification/postgres"
	"github.com/trackifyhq/trackify/internal/passwordreset"
	passwordresetPostgres "github.com/trackifyhq/trackify/internal/passwordreset/postgres"
	"github.com/trackifyhq/trackify/internal/report"
	reportPostgres "github.com/trackifyhq/trackify/internal/report/postgres"
	"github.com/trackifyhq/trackify/internal/sms"
	"github.com/trackifyhq/trackify/internal/task"
	taskPostgres "github.com/trackifyhq/trackify/internal/task/postgres"
	"github.com/trackifyhq/trackify/internal/transport/rest"
	"github.com/trackifyhq/trackify/internal/user"
	userPostgres "github.com/trackifyhq/trackify/internal/user/postgres"
	"github.com/trackifyhq/trackify/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	sqlDB, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize ORM: %v\n", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	handlers, subscriptions := buildHandlers(config, gormDB, lg)
	rest.RegisterAllRoutes(router, sqlDB.DB, handlers, subscriptions, lg)

	addr := fmt.Sprintf(":%d", config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
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
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := sqlDB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

// buildHandlers wires every feature: repositories over GORM, services,
// the event bus with the notification handlers, the payment gateway client
// and the SMS backend.
func buildHandlers(config *internal.Config, db *gorm.DB, lg *slog.Logger) (rest.Handlers, billing.SubscriptionChecker) {
	eventBus := events.NewEventBus(lg)

	// auth
	tokenGen := auth.NewJWTTokenGenerator(config.Security.AccessTokenSecret, config.Security.RefreshTokenSecret)
	authService := auth.NewService(authPostgres.NewRepository(db), tokenGen)
	authHandler := auth.NewHandler(authService)

	// tenant registration
	companyService := company.NewService(companyPostgres.NewCompanyRepository(db), company.SubscriptionDefaults{
		Plan:          config.Billing.PlanName,
		Currency:      config.Billing.Currency,
		MonthlyAmount: config.Billing.MonthlyAmount,
		AnnualAmount:  config.Billing.AnnualAmount,
	}, lg)

	userService := user.NewService(userPostgres.NewUserRepository(db), lg)
	departmentService := department.NewService(departmentPostgres.NewDepartmentRepository(db), lg)
	taskService := task.NewService(taskPostgres.NewTaskRepository(db), eventBus, lg)
	evaluationService := evaluation.NewService(evaluationPostgres.NewEvaluationRepository(db), eventBus, lg)

	notificationService := notification.NewService(notificationPostgres.NewNotificationRepository(db), lg)
	notification.NewEventHandler(notificationService, lg).RegisterEventHandlers(eventBus)

	// billing against Mercado Pago
	gateway := mercadopago.NewClient(mercadopago.Config{
		AccessToken:    config.Billing.AccessToken,
		Env:            config.Billing.Env,
		TestBuyerEmail: config.Billing.TestBuyerEmail,
	}, lg)
	billingService := billing.NewService(billingPostgres.NewBillingRepository(db), gateway, config.Billing.SuccessURL, lg)

	// password reset over SMS, rate limited in Redis when configured
	smsBackend, err := sms.NewBackend(config.SMS, lg)
	if err != nil {
		lg.Error("sms backend init failed, falling back to console", "error", err)
		smsBackend, _ = sms.NewBackend(internal.SMSConfig{Backend: "console"}, lg)
	}
	var limiter passwordreset.RateLimiter
	if config.Redis.Addr != "" {
		limiter = passwordreset.NewRedisRateLimiter(redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		}))
	} else {
		limiter = passwordreset.NewMemoryRateLimiter()
	}
	resetService := passwordreset.NewService(
		passwordresetPostgres.NewPasswordResetRepository(db),
		limiter, smsBackend, config.Security.BCryptCost, lg)

	reportService := report.NewService(reportPostgres.NewReportRepository(db), lg)

	handlers := rest.Handlers{
		Auth:          authHandler,
		Company:       company.NewHandler(companyService),
		User:          user.NewHandler(userService),
		Department:    department.NewHandler(departmentService),
		Task:          task.NewHandler(taskService),
		Evaluation:    evaluation.NewHandler(evaluationService),
		Notification:  notification.NewHandler(notificationService),
		Billing:       billing.NewHandler(billingService),
		PasswordReset: passwordreset.NewHandler(resetService),
		Report:        report.NewHandler(reportService),
	}
	return handlers, billingService
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
