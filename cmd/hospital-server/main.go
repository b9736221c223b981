package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/medops/hospitalops/internal/config"
	"github.com/medops/hospitalops/internal/domain/history"
	"github.com/medops/hospitalops/internal/platform/db"
	"github.com/medops/hospitalops/internal/platform/reporting"
	"github.com/medops/hospitalops/internal/platform/sandbox"
	"github.com/medops/hospitalops/internal/platform/websocket"
	"github.com/medops/hospitalops/migrations"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hospital-server",
		Short:        "Hospital operations API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(reportCmd())
	return root
}

// withApp loads the configuration, builds the app, performs the first fetch
// when load is set, and runs fn.
func withApp(ctx context.Context, load bool, fn func(a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.IsDev())

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if load {
		if err := a.load(ctx); err != nil {
			return err
		}
	}
	return fn(a)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server, the dashboard refresh and the retention sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(context.Background(), false, runServer)
		},
	}
}

func runServer(a *app) error {
	ctx := context.Background()
	// Failed stores keep their error and are retried by the refresh job.
	_ = a.load(ctx)

	hub := websocket.NewHub(a.log)
	e := a.server(hub)

	sched, err := a.scheduler()
	if err != nil {
		return err
	}
	sched.Start()

	go func() {
		addr := ":" + a.cfg.Port
		a.log.Info().Str("addr", addr).Str("backend", a.cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			a.log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("jobs did not stop in time")
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.log.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	var dir string
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Read migrations from this directory instead of the embedded set")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatuses(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})
	return cmd
}

// withMigrator connects straight to DATABASE_URL. Migrations need Postgres
// even when the API is served through the REST backend.
func withMigrator(dir string, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required to run migrations")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolOptions{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	var files fs.FS = migrations.FS
	if dir != "" {
		files = os.DirFS(dir)
	}
	return fn(ctx, db.NewMigrator(pool, files))
}

func printStatuses(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format(time.RFC3339)
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete appointments older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(context.Background(), false, func(a *app) error {
				ctx := context.Background()
				if err := a.appointments.Refresh(ctx); err != nil {
					return err
				}
				n, err := a.appointments.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d appointment(s) created more than %s ago.\n", n, a.cfg.AppointmentRetention)
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	cfg := sandbox.DefaultSeedConfig()
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate demo patients, consultations and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			batch := sandbox.Generate(cfg, time.Now())
			if dryRun {
				return batch.ExportJSON(cmd.OutOrStdout())
			}
			return withApp(context.Background(), true, func(a *app) error {
				seeder := sandbox.NewSeeder(a.patients, a.consultations, a.appointments, a.log)
				res, err := seeder.Seed(context.Background(), batch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d patient(s) with %d episode(s), %d consultation(s) and %d appointment(s) in %s.\n",
					res.Patients, res.Episodes, res.Consultations, res.Appointments, res.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&cfg.PatientCount, "patients", cfg.PatientCount, "Number of patients to generate")
	cmd.Flags().IntVar(&cfg.MaxEpisodes, "max-episodes", cfg.MaxEpisodes, "Upper bound on admission episodes per patient")
	cmd.Flags().IntVar(&cfg.ConsultationsPerCent, "consultations", cfg.ConsultationsPerCent, "Consultations per hundred patients")
	cmd.Flags().IntVar(&cfg.AppointmentsPerCent, "appointments", cfg.AppointmentsPerCent, "Appointments per hundred patients")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed; 0 picks one from the clock")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the generated batch as JSON instead of writing it")
	return cmd
}

func reportCmd() *cobra.Command {
	var out string
	filters := map[string]*string{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the reconciled history as a PDF report",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := reportQuery(filters)
			if err != nil {
				return err
			}
			return withApp(context.Background(), true, func(a *app) error {
				r, err := reporting.BuildReport(a.board, q, time.Now())
				if err != nil {
					return err
				}
				if err := writeFile(out, func(w io.Writer) error { return reporting.WritePDF(w, r) }); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d event(s) to %s.\n", len(r.Events), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "hospital-report.pdf", "Output file")
	for _, name := range []string{"sort", "dir", "type", "from", "to"} {
		filters[name] = cmd.Flags().String(name, "", "History filter, as in GET /api/v1/history?"+name+"=")
	}
	return cmd
}

func reportQuery(filters map[string]*string) (history.Query, error) {
	v := url.Values{}
	for name, val := range filters {
		if *val != "" {
			v.Set(name, *val)
		}
	}
	return history.ParseValues(v)
}
