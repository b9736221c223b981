package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medops/hospitalops/internal/config"
	"github.com/medops/hospitalops/internal/domain/admission"
	"github.com/medops/hospitalops/internal/domain/appointment"
	"github.com/medops/hospitalops/internal/domain/consultation"
	"github.com/medops/hospitalops/internal/domain/history"
	"github.com/medops/hospitalops/internal/platform/db"
	"github.com/medops/hospitalops/internal/platform/jobs"
	"github.com/medops/hospitalops/internal/platform/middleware"
	"github.com/medops/hospitalops/internal/platform/openapi"
	"github.com/medops/hospitalops/internal/platform/reporting"
	"github.com/medops/hospitalops/internal/platform/restdb"
	"github.com/medops/hospitalops/internal/platform/websocket"
	"github.com/medops/hospitalops/internal/store"
)

func newLogger(w io.Writer, dev bool) zerolog.Logger {
	if dev {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// lifecycle is the part of a record store the process manages.
type lifecycle interface {
	Name() string
	Init(ctx context.Context) error
	Dispose()
	OnChange(fn func(store.Change))
}

// app holds everything built from the configuration: the backend
// connection, the three record stores with their services, and the board.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	pool *pgxpool.Pool

	pinger db.Pinger
	stores []lifecycle

	patients      *admission.Service
	consultations *consultation.Service
	appointments  *appointment.Service
	board         *history.Board
}

type repositories struct {
	patients      admission.Repository
	consultations consultation.Repository
	appointments  appointment.Repository
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger}

	var repos repositories
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, db.PoolOptions{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, err
		}
		a.pool, a.pinger = pool, pool
		repos = repositories{
			patients:      admission.NewRepoPG(pool),
			consultations: consultation.NewRepoPG(pool),
			appointments:  appointment.NewRepoPG(pool),
		}
		logger.Info().Msg("connected to database")
	case config.BackendREST:
		client := restdb.New(cfg.RESTURL, cfg.RESTAPIKey, restdb.WithLogger(logger))
		a.pinger = client
		repos = repositories{
			patients:      admission.NewRepoREST(client),
			consultations: consultation.NewRepoREST(client),
			appointments:  appointment.NewRepoREST(client),
		}
		logger.Info().Str("url", cfg.RESTURL).Msg("using REST table backend")
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	patients := store.New[admission.Patient, admission.Patch]("patients", repos.patients,
		store.WithLogger(logger))
	consultations := store.New[consultation.Consultation, consultation.Patch]("consultations", repos.consultations,
		store.WithLogger(logger))
	appointments := store.New[appointment.Appointment, appointment.Patch]("appointments", repos.appointments,
		store.WithLogger(logger), store.WithRetention(cfg.AppointmentRetention))
	a.stores = []lifecycle{patients, consultations, appointments}

	a.patients = admission.NewService(patients)
	a.consultations = consultation.NewService(consultations)
	a.appointments = appointment.NewService(appointments)
	a.board = history.NewBoard(cfg.HospitalName, a.patients, a.consultations, a.appointments)
	return a, nil
}

// load performs the first fetch of every store. A store that fails keeps
// its error for the dashboard; the joined error is returned.
func (a *app) load(ctx context.Context) error {
	var errs []error
	for _, s := range a.stores {
		if err := s.Init(ctx); err != nil {
			a.log.Warn().Err(err).Str("store", s.Name()).Msg("initial fetch failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) close() {
	for _, s := range a.stores {
		s.Dispose()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// sweep removes expired appointments and logs how many went.
func (a *app) sweep(ctx context.Context) error {
	n, err := a.appointments.Sweep(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		a.log.Info().Int("removed", n).Msg("appointment retention sweep")
	}
	return nil
}

func (a *app) scheduler() (*jobs.Scheduler, error) {
	s := jobs.New(a.log)
	if err := s.Every(a.cfg.RefreshSchedule, "dashboard-refresh", a.board.Refresh); err != nil {
		return nil, err
	}
	if err := s.Every(a.cfg.SweepSchedule, "appointment-sweep", a.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// server builds the HTTP surface and connects every store to the hub.
func (a *app) server(hub *websocket.Hub) *echo.Echo {
	cfg := a.cfg
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.log))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	e.Use(middleware.RateLimit(rateLimitCfg))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(cfg.StoreBackend, a.pinger))

	apiV1 := e.Group("/api/v1")
	admission.NewHandler(a.patients).RegisterRoutes(apiV1)
	consultation.NewHandler(a.consultations).RegisterRoutes(apiV1)
	appointment.NewHandler(a.appointments).RegisterRoutes(apiV1)
	history.NewHandler(a.board).RegisterRoutes(apiV1)

	// Measures run raw SQL and are only available on Postgres.
	var measures reporting.Querier
	if a.pool != nil {
		measures = a.pool
	}
	reporting.NewHandler(measures, a.board).RegisterRoutes(apiV1)

	for _, s := range a.stores {
		s.OnChange(hub.Forward())
	}
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e.Group(""))
	openapi.NewGenerator(e.Routes, cfg.HospitalName+" operations API", version).RegisterRoutes(apiV1)

	return e
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
