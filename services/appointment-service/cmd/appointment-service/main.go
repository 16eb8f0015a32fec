package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/appointly/appointly/libs/config"
	"github.com/appointly/appointly/libs/db"
	"github.com/appointly/appointly/libs/httpx"
	"github.com/appointly/appointly/libs/kafkax"
	"github.com/appointly/appointly/libs/lock"
	otelx "github.com/appointly/appointly/libs/otel"
	"github.com/appointly/appointly/libs/runtime"
	"github.com/appointly/appointly/services/appointment-service/internal/engine"
	"github.com/appointly/appointly/services/appointment-service/internal/handlers"
	"github.com/appointly/appointly/services/appointment-service/internal/notify"
	"github.com/appointly/appointly/services/appointment-service/internal/outbox"
	"github.com/appointly/appointly/services/appointment-service/internal/reminder"
	"github.com/appointly/appointly/services/appointment-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "appointment-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	// Redis backs the sweep leader lock and the public rate limiter; both
	// degrade gracefully when REDIS_ADDR is unset.
	var rdb *redis.Client
	var sweepLocker lock.Locker
	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		sweepLocker = lock.NewRedisLocker(rdb)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: lock.ReadyCheck(rdb)})
	}

	outboxRepo := outbox.NewRepository(pool)
	ledger := storage.NewLedger(pool, outboxRepo)
	schedules := storage.NewScheduleStore(pool)
	directory := storage.NewDirectory(pool)
	intents := notify.NewIntents(logger)
	eng := engine.New(ledger, schedules, directory, intents, logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	sweeper := reminder.NewSweeper(ledger, directory, intents, sweepLocker, logger)
	go sweeper.Run(ctx)

	appointmentHandler := handlers.NewAppointmentHandler(eng, directory, logger)
	scheduleHandler := handlers.NewScheduleHandler(schedules, directory, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/public/slots", appointmentHandler.Slots)
	mux.HandleFunc("/api/v1/appointments", appointmentHandler.Create)
	mux.HandleFunc("/api/v1/appointments/view", appointmentHandler.Get)
	mux.HandleFunc("/api/v1/appointments/mine", appointmentHandler.ListMine)
	mux.HandleFunc("/api/v1/appointments/business", appointmentHandler.ListBusiness)
	mux.HandleFunc("/api/v1/appointments/status", appointmentHandler.UpdateStatus)
	mux.HandleFunc("/api/v1/appointments/approve/owner", appointmentHandler.ApproveByOwner)
	mux.HandleFunc("/api/v1/appointments/approve/employee", appointmentHandler.ApproveByEmployee)
	mux.HandleFunc("/api/v1/schedules", scheduleHandler.Serve)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
	}
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT_PER_MINUTE", 120),
			time.Minute,
			service,
		)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "appointment")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
