package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ticketloop/event-ticketing/internal/config"
	"github.com/ticketloop/event-ticketing/internal/database"
	"github.com/ticketloop/event-ticketing/internal/gateway"
	"github.com/ticketloop/event-ticketing/internal/handler"
	"github.com/ticketloop/event-ticketing/internal/ledger"
	"github.com/ticketloop/event-ticketing/internal/middleware"
	"github.com/ticketloop/event-ticketing/internal/queue"
	"github.com/ticketloop/event-ticketing/internal/repository"
	"github.com/ticketloop/event-ticketing/internal/router"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the response cache and the rate limiter.  A nil client
	// disables both; the API keeps working without them.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	tiers := repository.NewTierRepo(db)
	tickets := repository.NewTicketRepo(db)
	txStore := repository.NewTxStore(tickets, tiers)

	led := ledger.New(log.Default())
	payments := gateway.NewPaymentClient(cfg.PaymentAPIURL, cfg.PaymentSecret)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicEventHandler(events)
	organizerH := handler.NewOrganizerEventHandler(events, tickets)
	ticketH := handler.NewTicketHandler(cfg, events, txStore, tickets, led, payments)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, cache)
	router.RegisterOrganizer(e, organizerH, cfg.JWTSecret)
	router.RegisterTickets(e, ticketH, cfg.JWTSecret)

	// Background consumer draining both ticket queues into logs/ticket.log.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
