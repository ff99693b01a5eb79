package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/shiftplate/shiftplate/internal/config"
	"github.com/shiftplate/shiftplate/internal/database"
	"github.com/shiftplate/shiftplate/internal/handler"
	"github.com/shiftplate/shiftplate/internal/logger"
	"github.com/shiftplate/shiftplate/internal/notify"
	"github.com/shiftplate/shiftplate/internal/repository"
	"github.com/shiftplate/shiftplate/internal/service"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "shiftplate",
		Usage: "Restaurant task operations tracker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Value:    config.DefaultDatabaseURL,
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "timezone",
				Value:   config.DefaultTimezone,
				Usage:   "Reference timezone for day boundaries",
				EnvVars: []string{"TIMEZONE"},
			},
			&cli.StringFlag{
				Name:    "smtp-host",
				Usage:   "SMTP host for reminder emails (empty disables email)",
				EnvVars: []string{"SMTP_HOST"},
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Value:   587,
				Usage:   "SMTP port",
				EnvVars: []string{"SMTP_PORT"},
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP username",
				EnvVars: []string{"SMTP_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP password",
				EnvVars: []string{"SMTP_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Usage:   "From address for reminder emails",
				EnvVars: []string{"SMTP_FROM"},
			},
			&cli.StringFlag{
				Name:    "vapid-subscriber",
				Usage:   "VAPID subscriber contact (mailto: or https: URL)",
				EnvVars: []string{"VAPID_SUBSCRIBER"},
			},
			&cli.StringFlag{
				Name:    "vapid-public-key",
				Usage:   "VAPID public key (empty disables Web Push)",
				EnvVars: []string{"VAPID_PUBLIC_KEY"},
			},
			&cli.StringFlag{
				Name:    "vapid-private-key",
				Usage:   "VAPID private key",
				EnvVars: []string{"VAPID_PRIVATE_KEY"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
					&cli.StringFlag{
						Name:    "cron-secret",
						Usage:   "Shared secret for the lifecycle trigger endpoint",
						EnvVars: []string{"CRON_SECRET"},
					},
					&cli.BoolFlag{
						Name:    "with-scheduler",
						Usage:   "Run the lifecycle pass and push tick on an in-process schedule",
						EnvVars: []string{"WITH_SCHEDULER"},
					},
				},
				Action: runServe,
			},
			{
				Name:   "run-lifecycle",
				Usage:  "Run one lifecycle pass (reminders, recurrence, retention) and exit",
				Action: runLifecycle,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// services bundles everything built on top of a database pool.
type services struct {
	taskService  *service.TaskService
	orchestrator *service.Orchestrator
	scheduled    *service.ScheduledPushNotifier
	historyRepo  *repository.StatusHistoryRepository
}

// buildServices wires repositories, transports and services. Transports left
// unconfigured stay nil; the dispatcher treats a nil transport as disabled.
func buildServices(c *cli.Context, pool *pgxpool.Pool) (*services, error) {
	loc, err := time.LoadLocation(c.String("timezone"))
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.String("timezone"), err)
	}

	taskRepo := repository.NewTaskRepository(pool)
	linkRepo := repository.NewTaskLinkRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	historyRepo := repository.NewStatusHistoryRepository(pool)
	markerRepo := repository.NewPeriodMarkerRepository(pool)
	subRepo := repository.NewPushSubscriptionRepository(pool)

	var emailSender notify.EmailSender
	if host := c.String("smtp-host"); host != "" {
		sender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     host,
			Port:     c.Int("smtp-port"),
			Username: c.String("smtp-username"),
			Password: c.String("smtp-password"),
			From:     c.String("smtp-from"),
		})
		if err != nil {
			return nil, fmt.Errorf("configure smtp: %w", err)
		}
		emailSender = sender
	}

	var pushSender notify.PushSender
	if publicKey := c.String("vapid-public-key"); publicKey != "" {
		pushSender = notify.NewWebPushSender(notify.VAPIDConfig{
			Subscriber: c.String("vapid-subscriber"),
			PublicKey:  publicKey,
			PrivateKey: c.String("vapid-private-key"),
		})
	}

	dispatcher := notify.NewDispatcher(emailSender, pushSender, subRepo)
	recorder := service.NewHistoryRecorder(historyRepo)

	notifier := service.NewExpirationNotifier(taskRepo, linkRepo, userRepo, dispatcher)
	regenerator := service.NewRegenerator(pool, taskRepo, linkRepo, recorder)
	sweeper := service.NewRetentionSweeper(pool, taskRepo, linkRepo)

	return &services{
		taskService:  service.NewTaskService(pool, taskRepo, recorder),
		orchestrator: service.NewOrchestrator(notifier, regenerator, sweeper, markerRepo, loc, config.WeeklyRegenDay),
		scheduled:    service.NewScheduledPushNotifier(taskRepo, linkRepo, userRepo, dispatcher),
		historyRepo:  historyRepo,
	}, nil
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	svcs, err := buildServices(c, db.Pool())
	if err != nil {
		return err
	}

	h := handler.New(db.Pool(), svcs.taskService, svcs.orchestrator, svcs.historyRepo, c.String("cron-secret"))

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var scheduler *cron.Cron
	if c.Bool("with-scheduler") {
		loc, err := time.LoadLocation(c.String("timezone"))
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", c.String("timezone"), err)
		}

		scheduler = cron.New(cron.WithLocation(loc))
		if _, err := scheduler.AddFunc("0 * * * *", func() {
			svcs.orchestrator.RunLifecyclePass(context.Background(), time.Now())
		}); err != nil {
			return fmt.Errorf("schedule lifecycle pass: %w", err)
		}
		if _, err := scheduler.AddFunc("* * * * *", func() {
			if _, err := svcs.scheduled.DispatchDue(context.Background(), time.Now()); err != nil {
				slog.Error("scheduled push tick failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule push tick: %w", err)
		}
		scheduler.Start()
		slog.Info("in-process scheduler started")
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runLifecycle(c *cli.Context) error {
	ctx := c.Context

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	svcs, err := buildServices(c, db.Pool())
	if err != nil {
		return err
	}

	report := svcs.orchestrator.RunLifecyclePass(ctx, time.Now())
	if len(report.StageErrors) > 0 {
		return fmt.Errorf("lifecycle pass finished with %d stage error(s)", len(report.StageErrors))
	}
	return nil
}
