package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"payledger/internal/domain/attendance"
	"payledger/internal/domain/employee"
	"payledger/internal/domain/leave"
	"payledger/internal/domain/payroll"
	"payledger/internal/platform/config"
	"payledger/internal/platform/db"
	"payledger/internal/platform/metrics"
	"payledger/internal/requestctx"
	"payledger/internal/transport/http/api"
	attendancehandler "payledger/internal/transport/http/handlers/attendance"
	authhandler "payledger/internal/transport/http/handlers/auth"
	leavehandler "payledger/internal/transport/http/handlers/leave"
	payrollhandler "payledger/internal/transport/http/handlers/payroll"
	"payledger/internal/transport/http/middleware"

	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// New connects, migrates, seeds and wires the router. The returned App owns
// the database pool; call Close when done.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	collector := metrics.New()

	employeeStore := employee.NewStore(pool)
	leaveStore := leave.NewStore(pool)
	attendanceStore := attendance.NewStore(pool)
	payrollStore := payroll.NewStore(pool)

	calc := &leave.DayCalculator{
		Weekend:         leave.StandardWeekend,
		Calendar:        leaveStore,
		ExcludeHolidays: cfg.LeaveExcludeHolidays,
	}
	carryOver := leave.ZeroCarryForward
	if cfg.LeaveCarryOverCap > 0 {
		carryOver = leave.CappedCarryForward(cfg.LeaveCarryOverCap)
	}
	ledger := leave.NewLedger(leaveStore, employeeStore, carryOver, collector, logger)
	leaveService := leave.NewService(leaveStore, employeeStore, calc, collector, logger)

	aggregator := attendance.NewService(attendanceStore, leaveStore, leave.StandardWeekend)
	engine := payroll.NewEngine(payrollStore, employeeStore, aggregator, collector, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger, collector))
	router.Use(middleware.Recover(logger))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), requestctx.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(pool, cfg.JWTSecret).RegisterRoutes(r)
		leavehandler.NewHandler(leaveService, ledger, leaveStore).RegisterRoutes(r)
		attendancehandler.NewHandler(attendanceStore, aggregator).RegisterRoutes(r)
		payrollhandler.NewHandler(engine, payrollStore).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Logger:  logger,
		Metrics: collector,
	}, nil
}

func (a *App) Run() error {
	a.Logger.Info("server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
	return http.ListenAndServe(a.Config.Addr, a.Router)
}

func (a *App) Close() {
	a.DB.Close()
}
