package main

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

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"trattoria/internal/config"
	"trattoria/internal/database"
	"trattoria/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "trattoria",
		Short:         "Table reservations for the restaurant",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newWorkerCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var withJobs bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.SetupDefault(os.Stdout)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			if withJobs {
				runner, err := app.jobs.Schedule(ctx, cfg.ExpireSchedule, cfg.ReminderSchedule)
				if err != nil {
					return err
				}
				runner.Start()
				defer func() { <-runner.Stop().Done() }()
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           app.handler,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server starting", slog.String("port", cfg.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
				log.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			app.reservations.Wait()
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withJobs, "with-jobs", false, "also run the scheduled jobs in this process")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back database migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.SetupDefault(os.Stdout)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required to run migrations")
			}

			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			switch direction {
			case "up":
				if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
					return err
				}
			case "down":
				m, err := database.NewMigrator(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer m.Close()
				if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migration down failed: %w", err)
				}
			default:
				return fmt.Errorf("unknown direction %q, want up or down", direction)
			}
			log.Info("migrations applied", slog.String("direction", direction))
			return nil
		},
	}
	return cmd
}

func newWorkerCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run scheduled jobs: expire stale pending reservations and send reminders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.SetupDefault(os.Stdout)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			if once {
				expired, err := app.jobs.ExpireStalePending(ctx)
				if err != nil {
					return err
				}
				sent, err := app.jobs.SendReminders(ctx)
				if err != nil {
					return err
				}
				app.reservations.Wait()
				log.Info("jobs finished", slog.Int("expired", expired), slog.Int("reminders", sent))
				return nil
			}

			runner, err := app.jobs.Schedule(ctx, cfg.ExpireSchedule, cfg.ReminderSchedule)
			if err != nil {
				return err
			}
			runner.Start()
			log.Info("worker started",
				slog.String("expire_schedule", cfg.ExpireSchedule),
				slog.String("reminder_schedule", cfg.ReminderSchedule),
			)
			<-ctx.Done()
			<-runner.Stop().Done()
			app.reservations.Wait()
			log.Info("worker stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run every job once and exit")
	return cmd
}
