package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"taskhub/internal/api"
	"taskhub/internal/auth"
	"taskhub/internal/bot"
	"taskhub/internal/config"
	"taskhub/internal/mailer"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

const (
	jobTimeout      = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, scheduled jobs and the Telegram bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		applyFlags(&cfg)
		if addrFlag != "" {
			cfg.HTTPAddr = addrFlag
		}
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides HTTP_ADDR)")
}

// stack is every long-lived component the server runs.
type stack struct {
	services api.Services
	overdue  *service.OverdueService
	userRepo *repository.UserRepository
}

func build(db *gorm.DB, cfg config.Config) stack {
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	issuer := auth.NewIssuer(cfg.JWTSecret, auth.Lifetimes{
		Access:   cfg.AccessTTL,
		Refresh:  cfg.RefreshTTL,
		Remember: cfg.RememberTTL,
	})
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db))
	activity := service.NewActivityService(activityRepo)

	return stack{
		services: api.Services{
			Auth:          service.NewAuthService(userRepo, activity, issuer, service.UTC),
			Users:         service.NewUserService(userRepo),
			Projects:      service.NewProjectService(projectRepo, taskRepo, userRepo, notifications, activity),
			Tasks:         service.NewTaskService(taskRepo, projectRepo, userRepo, notifications, activity, service.UTC),
			Comments:      service.NewCommentService(taskRepo, repository.NewCommentRepository(db), notifications),
			Notifications: notifications,
			Activity:      activity,
			Resets: service.NewPasswordResetService(
				userRepo, repository.NewResetCodeRepository(db), mailer.New(cfg.Mail), activity, cfg.ResetCodeTTL, service.UTC,
			),
			Dashboard: service.NewDashboardService(userRepo, projectRepo, taskRepo, activityRepo, service.UTC),
		},
		overdue:  service.NewOverdueService(taskRepo, notifications, service.UTC),
		userRepo: userRepo,
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	db, closeDB, err := connect(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	st := build(db, cfg)

	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken, st.userRepo, st.services.Notifications)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		st.services.Notifications.SetDispatcher(telegramBot)
	}

	scheduler, err := schedule(cfg, st)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.New(st.services, cfg.AllowedOrigins, service.UTC),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		log.Printf("[info] taskhub %s listening on %s", version, cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	if telegramBot != nil {
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- fmt.Errorf("bot: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errc:
		log.Printf("[error] %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Printf("[warn] http shutdown: %v", serr)
	}
	log.Println("[info] shutdown complete")
	return err
}

// schedule registers the background jobs; the overdue sweep only when an interval is set.
func schedule(cfg config.Config, st stack) (*service.SchedulerService, error) {
	scheduler := service.NewSchedulerService(time.Local, jobTimeout)

	if cfg.OverdueSweep > 0 {
		if _, err := scheduler.ScheduleInterval("overdue sweep", cfg.OverdueSweep, func(ctx context.Context) error {
			n, err := st.overdue.Sweep(ctx)
			if n > 0 {
				log.Printf("[info] overdue sweep sent %d notifications", n)
			}
			return err
		}); err != nil {
			return nil, fmt.Errorf("schedule overdue sweep: %w", err)
		}
	}

	if _, err := scheduler.ScheduleDaily("reset code purge", cfg.CodePurgeTime, func(ctx context.Context) error {
		n, err := st.services.Resets.Purge(ctx)
		if n > 0 {
			log.Printf("[info] purged %d reset codes", n)
		}
		return err
	}); err != nil {
		return nil, fmt.Errorf("schedule code purge: %w", err)
	}

	return scheduler, nil
}
