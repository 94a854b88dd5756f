package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/bus-seat-booking/internal/config"
	"github.com/iliyamo/bus-seat-booking/internal/database"
	"github.com/iliyamo/bus-seat-booking/internal/gateway"
	"github.com/iliyamo/bus-seat-booking/internal/handler"
	"github.com/iliyamo/bus-seat-booking/internal/middleware"
	"github.com/iliyamo/bus-seat-booking/internal/queue"
	"github.com/iliyamo/bus-seat-booking/internal/repository"
	"github.com/iliyamo/bus-seat-booking/internal/router"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories
	trips := repository.NewTripRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	tickets := repository.NewTicketRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Notifications go through RabbitMQ when a broker is configured,
	// otherwise to the process log.
	var notifier service.Notifier = queue.LogNotifier{}
	if cfg.RabbitURL != "" {
		notifier = queue.NewPublisher(cfg.RabbitURL)
		go func() {
			if err := queue.StartNotificationConsumer(cfg.RabbitURL); err != nil {
				log.Printf("notification-consumer: %v", err)
			}
		}()
	}

	// Payment gateway: Razorpay in production, mock everywhere else.
	var gw gateway.Gateway = gateway.NewMock()
	if cfg.PaymentMode == "razorpay" {
		gw = gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.PaymentTimeout)
	}

	clock := service.SystemClock()
	bookingSvc := service.NewBookingService(trips, seats, bookings, notifier, clock, cfg.SeatLockTTL)
	paymentSvc := service.NewPaymentService(payments, bookingSvc, bookings, gw, clock, cfg.PaymentCurrency, cfg.PaymentTimeout)
	ticketSvc := service.NewTicketService(tickets, bookings, trips, notifier, clock)

	// Background sweeper: expires lapsed pending bookings, releases
	// orphaned holds and completes departed confirmed bookings.
	sweeper := service.NewSweeper(bookings, seats, notifier, clock, cfg.SweepInterval)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	e := echo.New()

	// Redis backs rate limiting and the public response cache.  A nil
	// client disables both; the API itself keeps working.
	rdb := config.NewRedisClient()
	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	} else {
		log.Println("redis unavailable: rate limiting and response cache disabled")
	}

	authH := handler.NewAuthHandler(cfg, users, tokens)
	tripH := handler.NewTripHandler(trips, seats, bookings, clock)
	bookingH := handler.NewBookingHandler(bookingSvc, paymentSvc, bookings)
	ticketH := handler.NewTicketHandler(ticketSvc)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, tripH, cacheMW)
	router.RegisterBooking(e, bookingH, ticketH, cfg.JWTSecret)
	router.RegisterOperator(e, tripH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
