package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obinna-okoro1/convozo/internal/connect"
	"github.com/obinna-okoro1/convozo/internal/creators"
	"github.com/obinna-okoro1/convozo/internal/cron"
	"github.com/obinna-okoro1/convozo/internal/fulfillment"
	"github.com/obinna-okoro1/convozo/internal/ledger"
	"github.com/obinna-okoro1/convozo/internal/messages"
	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/db"
	"github.com/obinna-okoro1/convozo/pkg/logger"
	"github.com/obinna-okoro1/convozo/pkg/metrics"
	"github.com/obinna-okoro1/convozo/pkg/migrate"
	"github.com/obinna-okoro1/convozo/pkg/redis"
	pkgstripe "github.com/obinna-okoro1/convozo/pkg/stripe"
)

const lockName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single reconcile cycle and exit")
	only := flag.String("job", "", "restrict the worker to one job by name")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForApp("cron-worker", cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lock, err = cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create cron lock", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis not configured, cron lock is process-local")
	}

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	gateway, err := pkgstripe.NewGateway(stripeClient)
	if err != nil {
		logg.Error(ctx, "failed to create stripe gateway", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	creatorRepo := creators.NewRepository(dbClient.DB())
	accountRepo := creators.NewStripeAccountRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), cfg.Platform.FeePercentage)
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		TxRunner: dbClient,
		Messages: messages.NewRepository(dbClient.DB()),
		Ledger:   ledgerService,
		Creators: creatorRepo,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create fulfillment service", err)
		os.Exit(1)
	}

	connectService, err := connect.NewService(connect.ServiceParams{
		Gateway:  gateway,
		Accounts: accountRepo,
		Creators: creatorRepo,
		Logger:   logg,
		App:      cfg.App,
		Stripe:   cfg.Stripe,
	})
	if err != nil {
		logg.Error(ctx, "failed to create connect service", err)
		os.Exit(1)
	}

	checkoutJob, err := cron.NewCheckoutReconcileJob(cron.CheckoutReconcileJobParams{
		Logger:      logg,
		Sessions:    gateway,
		Fulfillment: fulfillmentService,
		Lookback:    cfg.Cron.Lookback,
		Limit:       cfg.Cron.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout reconcile job", err)
		os.Exit(1)
	}

	connectJob, err := cron.NewConnectReconcileJob(cron.ConnectReconcileJobParams{
		Logger:   logg,
		Accounts: accountRepo,
		Connect:  connectService,
		Limit:    cfg.Cron.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create connect reconcile job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(checkoutJob, connectJob)
	if *only != "" {
		job, ok := registry.Lookup(*only)
		if !ok {
			logg.Error(logg.WithField(ctx, "available", registry.Names()), "unknown cron job "+*only, nil)
			os.Exit(1)
		}
		registry = cron.NewRegistry(job)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"stripe_env": stripeClient.Environment(),
		"interval":   cfg.Cron.Interval.String(),
		"jobs":       registry.Names(),
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Cron.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.Cron.MetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics listener stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
