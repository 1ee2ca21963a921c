package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/obinna-okoro1/convozo/api/routes"
	checkoutsvc "github.com/obinna-okoro1/convozo/internal/checkout"
	"github.com/obinna-okoro1/convozo/internal/connect"
	"github.com/obinna-okoro1/convozo/internal/creators"
	"github.com/obinna-okoro1/convozo/internal/fulfillment"
	"github.com/obinna-okoro1/convozo/internal/ledger"
	"github.com/obinna-okoro1/convozo/internal/messages"
	"github.com/obinna-okoro1/convozo/internal/ratelimit"
	stripewebhook "github.com/obinna-okoro1/convozo/internal/webhooks/stripe"
	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/db"
	"github.com/obinna-okoro1/convozo/pkg/logger"
	"github.com/obinna-okoro1/convozo/pkg/mailer"
	"github.com/obinna-okoro1/convozo/pkg/metrics"
	"github.com/obinna-okoro1/convozo/pkg/migrate"
	"github.com/obinna-okoro1/convozo/pkg/redis"
	pkgstripe "github.com/obinna-okoro1/convozo/pkg/stripe"
)

const (
	webhookGuardScope = "stripe-webhook"
	shutdownTimeout   = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForApp("api", cfg.App)

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

	deps := routes.Dependencies{DB: dbClient}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		deps.Redis = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, webhook event guard disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)
	deps.Metrics = registry

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
	deps.Stripe = stripeClient

	creatorRepo := creators.NewRepository(dbClient.DB())
	accountRepo := creators.NewStripeAccountRepository(dbClient.DB())
	messageRepo := messages.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), cfg.Platform.FeePercentage)
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	limiter := ratelimit.New(cfg.CheckoutRateLimit.Limit, cfg.CheckoutRateLimit.Window)
	go limiter.Run(ctx, cfg.CheckoutRateLimit.SweepInterval)

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Creators:       creatorRepo,
		PayoutAccounts: accountRepo,
		Gateway:        gateway,
		Limiter:        limiter,
		Metrics:        paymentMetrics,
		Logger:         logg,
		App:            cfg.App,
		Stripe:         cfg.Stripe,
		FeePercent:     cfg.Platform.FeePercentage,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}
	deps.Checkout = checkoutService

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
	deps.Connect = connectService

	messageService, err := messages.NewService(messages.ServiceParams{
		Messages: messageRepo,
		Creators: creatorRepo,
		Mailer:   mailer.New(cfg.Sendgrid, logg),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create message service", err)
		os.Exit(1)
	}
	deps.Messages = messageService

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		TxRunner: dbClient,
		Messages: messageRepo,
		Ledger:   ledgerService,
		Creators: creatorRepo,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create fulfillment service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Fulfillment: fulfillmentService,
		Accounts:    connectService,
		Metrics:     paymentMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	deps.StripeWebhooks = webhookService

	if redisClient != nil {
		guard, err := stripewebhook.NewEventGuard(redisClient, cfg.Redis.EventTTL, webhookGuardScope)
		if err != nil {
			logg.Error(ctx, "failed to create webhook guard", err)
			os.Exit(1)
		}
		deps.WebhookGuard = guard
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":       addr,
		"instance":   id,
		"stripe_env": stripeClient.Environment(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}
