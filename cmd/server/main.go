// Command server runs the messaging gateway: it loads configuration, opens
// the database (degrading to in-memory-only mode on failure rather than
// refusing to start), wires the provider registry, circuit breakers,
// idempotency store, and outbound dispatcher, starts the inbound and
// outbound workers, registers the HTTP routes, and serves until it receives
// SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/breaker"
	"github.com/tbourn/go-chat-backend/internal/config"
	httpapi "github.com/tbourn/go-chat-backend/internal/http"
	"github.com/tbourn/go-chat-backend/internal/http/handlers"
	"github.com/tbourn/go-chat-backend/internal/idempotency"
	"github.com/tbourn/go-chat-backend/internal/inbound"
	"github.com/tbourn/go-chat-backend/internal/memstore"
	"github.com/tbourn/go-chat-backend/internal/metrics"
	"github.com/tbourn/go-chat-backend/internal/observability"
	"github.com/tbourn/go-chat-backend/internal/outbound"
	"github.com/tbourn/go-chat-backend/internal/providers"
	"github.com/tbourn/go-chat-backend/internal/ratelimit"
	"github.com/tbourn/go-chat-backend/internal/repo"
	"github.com/tbourn/go-chat-backend/internal/snippet"
	"github.com/tbourn/go-chat-backend/internal/sysutil"
)

// version is overridable at build time via -ldflags.
var version = "dev"

func main() {
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	db, attachmentMode := openDatabase(cfg)

	metricsReg := metrics.New()
	idemStore := idempotency.New(cfg.IdempotencyTTL)
	ipLimiter := ratelimit.New(cfg.RateLimitPerIPPerMin)
	senderLimiter := ratelimit.New(cfg.RateLimitPerSenderPerMin)

	breakers := map[string]*breaker.Breaker{
		"sms-mms": breaker.New(cfg.BreakerErrorThreshold, cfg.BreakerOpenSecs),
		"email":   breaker.New(cfg.BreakerErrorThreshold, cfg.BreakerOpenSecs),
	}
	globalBreaker := breaker.New(cfg.BreakerErrorThreshold, cfg.BreakerOpenSecs)

	smsMMSProvider := providers.NewMockProvider("sms-mms")
	emailProvider := providers.NewMockProvider("email")
	registry := providers.NewRegistry(smsMMSProvider, emailProvider)

	faults := map[string]providers.FaultConfig{
		"sms-mms": toFaultConfig(cfg.ProviderSMS),
		"email":   toFaultConfig(cfg.ProviderEmail),
	}

	mem := memstore.New()

	dispatcher := outbound.New(cfg.OutboundQueueCapacity, registry, breakers, faults, metricsReg)
	dispatcher.SetGlobalBreaker(globalBreaker)
	dispatcher.SetPersistence(db, attachmentMode, mem)

	app := handlers.New(handlers.App{
		DB:              db,
		Mem:             mem,
		Dispatcher:      dispatcher,
		Providers:       registry,
		Metrics:         metricsReg,
		Idempotency:     idemStore,
		SenderLimit:     senderLimiter,
		Snippet:         snippet.RuneMaker{},
		MaxAttachments:  cfg.MaxAttachments,
		SnippetMaxChars: cfg.ConversationSnippetLength,
		AttachmentMode:  attachmentMode,
	})

	var ready atomic.Bool
	app.Ready = ready.Load

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var workers sync.WaitGroup
	if db != nil {
		worker := inbound.New(db, inbound.Config{
			BatchSize:        cfg.WorkerBatchSize,
			ClaimTimeout:     cfg.WorkerClaimTimeoutSecs,
			MaxRetries:       cfg.WorkerMaxRetries,
			BackoffBaseMs:    cfg.WorkerBackoffBaseMs,
			ReapInterval:     cfg.WorkerClaimTimeoutSecs,
			AttachmentSchema: attachmentMode,
		}, metricsReg)
		workers.Add(1)
		go func() {
			defer workers.Done()
			worker.Run(rootCtx)
		}()
	} else {
		log.Warn().Msg("no database configured: inbound worker disabled, running in-memory-only")
	}

	workers.Add(1)
	go func() {
		defer workers.Done()
		dispatcher.Run(rootCtx)
	}()

	otelShutdown, err := observability.SetupOTel(rootCtx, cfg.OTEL, version)
	if err != nil {
		log.Warn().Err(err).Msg("otel setup failed, continuing without tracing")
		otelShutdown = func(context.Context) error { return nil }
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		App:           app,
		Config:        cfg,
		IPRateLimiter: ipLimiter,
		GlobalBreaker: globalBreaker,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		ready.Store(true)
		log.Info().Str("addr", srv.Addr).Msg("messaging gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	stop()
	workerWait := make(chan struct{})
	go func() {
		workers.Wait()
		close(workerWait)
	}()
	select {
	case <-workerWait:
	case <-time.After(cfg.ShutdownTimeout):
		log.Warn().Msg("workers did not stop within shutdown timeout")
	}

	if err := otelShutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// openDatabase opens the configured database and applies schema bootstrap,
// matching spec.md §7's non-fatal degradation policy: any failure along the
// way logs a warning and returns a nil DB rather than aborting startup.
func openDatabase(cfg config.Config) (*gorm.DB, repo.AttachmentSchemaVariant) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set: running in-memory-only mode")
		return nil, repo.AttachmentVariantURLOnly
	}

	db, err := repo.Open(cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open database: running in-memory-only mode")
		return nil, repo.AttachmentVariantURLOnly
	}

	if err := repo.AutoMigrate(db); err != nil {
		log.Warn().Err(err).Msg("auto-migration failed: running in-memory-only mode")
		return nil, repo.AttachmentVariantURLOnly
	}

	mode, err := repo.ProbeAttachmentSchema(db)
	if err != nil {
		log.Warn().Err(err).Msg("attachment schema probe failed, defaulting to url-only variant")
		mode = repo.AttachmentVariantURLOnly
	}

	return db, mode
}

func toFaultConfig(pf config.ProviderFaults) providers.FaultConfig {
	return providers.FaultConfig{
		TimeoutPct:    pf.TimeoutPct,
		ErrorPct:      pf.ErrorPct,
		RateLimitPct:  pf.RateLimitPct,
		Seed:          pf.Seed,
		SeedSpecified: pf.SeedSpecified,
	}
}
