package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/controllers"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/auth"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/billing"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/blog"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/cache"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/database"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/hcaptcha"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/jobqueue"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/mail"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/metrics"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/metrics/counter"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/middleware"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/oauth"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/reminder"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/router"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/session"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/storage"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/tracker"
	"github.com/IdleArchive/cashduezy-sub000/views"
)

// cachePrefix namespaces the feed cache keys; the admin queue monitor lists them.
const cachePrefix = "cashduezy:"

// Application is the wired server with the background workers it owns.
type Application struct {
	App       *fiber.App
	DB        *gorm.DB
	Redis     *redis.Client
	Manager   *jobqueue.Manager
	Scheduler *reminder.Scheduler
}

func main() {
	env.SetupEnvFile()

	application, err := NewApplication(context.Background())
	if err != nil {
		log.Fatalf("[Main] startup failed: %v", err)
	}
	application.Start()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("[Main] shutting down...")
		if err := application.App.ShutdownWithTimeout(15 * time.Second); err != nil {
			log.Errorf("[Main] http shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "8080"))
	if err := application.App.Listen(addr); err != nil {
		log.Errorf("[Main] listen: %v", err)
	}
	application.Stop()
}

func NewApplication(ctx context.Context) (*Application, error) {
	secure := !env.IsDev()
	publicDomain := billing.ConfigFromEnv().PublicDomain

	db, err := database.SetupDatabase(database.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rdb := cache.NewClient(cache.ConfigFromEnv())
	repos := repository.NewFactory(db, rdb).GetRepositories()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mx := metrics.New(registry)

	// Background jobs
	queue := jobqueue.NewQueue(rdb, env.GetInt("JOB_WORKERS", 3))
	mailer, err := mail.New(mail.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	renderer, err := mail.NewRenderer(publicDomain)
	if err != nil {
		return nil, err
	}
	outbox := mail.NewOutbox(queue, renderer)
	queue.Register(jobqueue.JobTypeSendEmail, mail.SendEmailHandler(mailer, mx))

	translateCfg := blog.TranslateConfigFromEnv()
	if translateCfg.Enabled() {
		queue.Register(jobqueue.JobTypeBlogTranslate, blog.TranslateHandler(repos.BlogPost, blog.NewDeepL(translateCfg)))
	}
	localizer := blog.NewLocalizer(translateCfg, queue)

	viewCounter := counter.New(rdb, db)
	manager := jobqueue.NewManager(queue, jobqueue.PeriodicTask{
		Name:     "blog view flush",
		Interval: env.GetDuration("VIEW_FLUSH_INTERVAL", time.Minute),
		Run:      viewCounter.Flush,
	})

	var scheduler *reminder.Scheduler
	if cfg := reminder.ConfigFromEnv(); cfg.Enabled {
		scheduler, err = reminder.NewScheduler(cfg, reminder.New(repos, outbox, mx))
		if err != nil {
			return nil, fmt.Errorf("REMINDER_CRON: %w", err)
		}
	}

	// Billing
	billingCfg := billing.ConfigFromEnv()
	var provider billing.Provider
	if billingCfg.SecretKey != "" {
		provider = billing.NewStripeClient(billingCfg.SecretKey, nil)
	} else {
		log.Warn("[Billing] STRIPE_SECRET_KEY not set, checkout disabled")
	}
	checkout := billing.NewCheckout(billingCfg, provider, billing.NewRepository(db))
	billingService := billing.NewServiceFromDB(db, billing.WithLedger(billingCfg.Ledger))

	// Identity
	verifier := auth.NewVerifier(env.GetEnv("AUTH_JWT_SECRET", ""))
	sessions := session.New(session.RedisStorage(rdb, session.AppSessionDB), secure)
	providers := oauth.Setup(oauth.ConfigFromEnv(), session.RedisStorage(rdb, session.OAuthStateDB))

	// Blog
	feeds := blog.NewFeeds(blog.Site{
		BaseURL:     publicDomain,
		Title:       "CashDuezy Blog",
		Description: "Notes on bills, subscriptions and saving money",
		Language:    "en",
	}, repos.BlogPost, cache.New(rdb, cachePrefix), env.GetDuration("FEED_CACHE_TTL", 10*time.Minute))

	storageCfg := storage.ConfigFromEnv()
	var covers *storage.CoverUploader
	if storageCfg.Configured() {
		store, err := storage.NewS3Store(ctx, storageCfg)
		if err != nil {
			log.Errorf("[Storage] cover uploads disabled: %v", err)
		} else {
			covers = storage.NewCoverUploader(store, storageCfg)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:   "CashDuezy",
		Views:     views.Engine(env.IsDev()),
		BodyLimit: int(storageCfg.MaxUploadBytes) + 1<<20,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Deps{
		Identity: middleware.Identity{
			Sessions: sessions,
			Verifier: verifier,
			Users:    repos.User,
			Profiles: repos.Profile,
		},
		Pages:      controllers.NewPageController(repos.BlogPost, providers, env.GetEnv("HCAPTCHA_SITE_KEY", "")),
		Webhook:    controllers.NewWebhookController(billingService, billingCfg, mx),
		Checkout:   controllers.NewCheckoutController(checkout, mx),
		Session:    controllers.NewSessionController(verifier, repos, outbox, mx, secure),
		OAuth:      controllers.NewOAuthController(repos, sessions, outbox, secure),
		Blog:       controllers.NewBlogController(repos.BlogPost, feeds, localizer, covers, viewCounter),
		Dashboard:  controllers.NewDashboardController(tracker.NewService(repos.TrackedSubscription), repos.Profile),
		Contact:    controllers.NewContactController(hcaptcha.NewFromEnv(), outbox, env.GetEnv("CONTACT_EMAIL", "")),
		AdminQueue: controllers.NewAdminQueueController(repos.Queue, queue),

		LimiterStorage:  session.RedisStorage(rdb, rdb.Options().DB),
		APIRateLimit:    env.GetInt("API_RATE_LIMIT", 60),
		Gatherer:        registry,
		MonitorUser:     env.GetEnv("MONITOR_USER", "admin"),
		MonitorPassword: env.GetEnv("MONITOR_PASSWORD", ""),
		SwaggerFile:     findFile("docs/openapi.yml"),
		Secure:          secure,
	})

	return &Application{App: app, DB: db, Redis: rdb, Manager: manager, Scheduler: scheduler}, nil
}

// Start launches the queue workers, periodic tasks and the reminder cron.
func (a *Application) Start() {
	a.Manager.Start()
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}
}

// Stop halts background work and closes the connections.
func (a *Application) Stop() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	a.Manager.Stop()
	if err := a.Redis.Close(); err != nil {
		log.Warnf("[Main] close redis: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("[Main] stopped")
}

// findFile resolves a repository relative path from the working directory or
// from cmd/cashduezy.
func findFile(rel string) string {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + rel); err == nil {
			return base + rel
		}
	}
	return ""
}
