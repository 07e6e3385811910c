package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/internal/access"
	"github.com/azizbekdev/funnel-gate-bot/internal/config"
	"github.com/azizbekdev/funnel-gate-bot/internal/funnel"
	"github.com/azizbekdev/funnel-gate-bot/internal/gateway"
	"github.com/azizbekdev/funnel-gate-bot/internal/handlers"
	"github.com/azizbekdev/funnel-gate-bot/internal/middleware"
	"github.com/azizbekdev/funnel-gate-bot/internal/reaper"
	"github.com/azizbekdev/funnel-gate-bot/store"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rdb, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "funnel_gate")
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	stateStore := store.NewRedisStateStore(rdb, cfg.StateTTLHours)

	pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()

	httpClient := &http.Client{
		Timeout: 10 * time.Minute,
	}
	pollTimeout := 50 * time.Second

	b, err := bot.New(
		cfg.BotToken,
		bot.WithHTTPClient(pollTimeout, httpClient),
	)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	gw := gateway.New(b)
	engine := funnel.NewEngine(pgStore, pgStore, gw)
	coord := access.NewCoordinator(pgStore, pgStore, pgStore, gw, cfg.InviteTTL)

	expiryReaper := reaper.New(pgStore, gw, gw, reaper.Config{
		Interval: cfg.ReapInterval,
		Retry:    cfg.ReapRetry,
	})
	expiryReaper.Start()
	defer expiryReaper.Stop()

	h := handlers.NewHandlers(cfg, pgStore, pgStore, pgStore, stateStore, engine, coord)

	middlewares := middleware.NewMessageAnalyzer(pgStore)
	handlerChain := middlewares.TrackUserMiddleware(
		middlewares.AnalyzeMessageMiddleware(
			h.MainHandler,
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	log.Println("Bot started. Press Ctrl+C to stop.")
	b.Start(ctx)
}
