package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/stylistbot/stylist-bot/internal/billing"
	"github.com/stylistbot/stylist-bot/internal/config"
	"github.com/stylistbot/stylist-bot/internal/handlers"
	"github.com/stylistbot/stylist-bot/internal/middleware"
	"github.com/stylistbot/stylist-bot/internal/provider"
	"github.com/stylistbot/stylist-bot/store"
	"github.com/stylistbot/stylist-bot/types"
)

func main() {
	_ = config.LoadEnvFile("config.env")
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rdb, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	passStore := store.NewRedisPassStore(rdb)
	quotaStore := store.NewRedisQuotaStore(rdb)
	pendingStore := store.NewRedisPendingStore(rdb, 24)
	stateStore := store.NewRedisUserStore(rdb, 24)

	pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()

	catalog := billing.DefaultCatalog()
	whitelist := billing.NewWhitelist(cfg.Whitelist)
	policy := billing.NewPolicy(quotaStore, whitelist, cfg.WarnThreshold)
	executor := billing.NewExecutor(policy, quotaStore, pendingStore)

	sweeper := billing.NewSweeper(pendingStore, quotaStore, billing.SweeperConfig{
		MaxOperationAge: cfg.MaxOperationAge,
		Interval:        cfg.SweepInterval,
	})
	sweeper.Start()
	defer sweeper.Stop()

	if cfg.BotToken == "" {
		log.Println("Warning: BOT_TOKEN is empty. Set BOT_TOKEN environment variable.")
	}
	if cfg.ReplicateToken == "" {
		log.Println("Warning: REPLICATE_API_TOKEN is empty. Generations will fail.")
	}

	replicate := provider.NewReplicateClient(cfg.ReplicateToken)
	providers := map[types.Service]provider.Provider{
		types.ServiceFlux:  provider.NewFluxProvider(replicate),
		types.ServiceKling: provider.NewKlingProvider(replicate),
	}

	middlewares := middleware.NewMessageAnalyzer(pgStore)
	h := handlers.NewHandlers(pgStore, stateStore, passStore, quotaStore, policy, executor, catalog, providers)

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

	handlerChain := middlewares.IdentifyUserMiddleware(
		middlewares.AnalyzeMessageMiddleware(
			h.MainHandler,
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.PreCheckoutQuery != nil
	}, handlerChain)

	log.Println("Bot started. Press Ctrl+C to stop.")
	b.Start(ctx)
}
