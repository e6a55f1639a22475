package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/config"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/database"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/handler"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/middleware"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/queue"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/repository"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/router"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("database: migrate: %v", err)
	}

	schedules := repository.NewScheduleRepo(db)
	if cfg.SeedDemo {
		if err := repository.SeedDemo(ctx, schedules, time.Now()); err != nil {
			log.Fatalf("database: seed: %v", err)
		}
	}

	var pub service.EventPublisher = service.NopPublisher{}
	if cfg.BrokerEnabled {
		amqpPub := service.NewAMQPPublisher(cfg.AMQPURL)
		defer amqpPub.Close()
		pub = amqpPub
	}

	ledger := service.NewLedger(db, schedules, cfg.HoldDefaultTTL, cfg.HoldMaxTTL)
	finalizer := service.NewFinalizer(db, pub)
	projector := service.NewProjector(db, schedules)
	bookings := service.NewBookings(db, schedules, pub)
	sweeper := &service.Sweeper{Ledger: ledger, Interval: cfg.SweepInterval, Batch: cfg.SweepBatch}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	if cfg.BrokerEnabled {
		consumers := []*queue.Consumer{
			{Name: "payment-consumer", URL: cfg.AMQPURL, Queue: queue.PaymentCompletedQueue, Prefetch: 20, Handle: queue.PaymentHandler(finalizer)},
			{Name: "booking-consumer", URL: cfg.AMQPURL, Queue: queue.BookingConfirmedQueue, Prefetch: 50, Handle: queue.BookingAuditHandler(cfg.AuditLogDir)},
		}
		for _, c := range consumers {
			wg.Add(1)
			go func(c *queue.Consumer) {
				defer wg.Done()
				_ = c.Run(ctx)
			}(c)
		}
	} else {
		log.Printf("rabbitmq: broker disabled; events are dropped and no consumers run")
	}

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	reservations := handler.NewReservationHandler(ledger, finalizer, projector)
	router.RegisterRoutes(e)
	router.RegisterPublic(e, handler.NewCatalogHandler(schedules), reservations,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterReservations(e, reservations, handler.NewBookingHandler(bookings), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received, cleaning up...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: shutdown: %v", err)
	}
	wg.Wait()
}
