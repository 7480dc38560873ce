package main

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/LepisevKalisey/tgproxy/internal/bot"
	"github.com/LepisevKalisey/tgproxy/internal/gateway"
	"github.com/LepisevKalisey/tgproxy/internal/relay"
	"github.com/LepisevKalisey/tgproxy/internal/resolver"
	"github.com/LepisevKalisey/tgproxy/internal/storage"
	"github.com/LepisevKalisey/tgproxy/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize Telegram API client
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("Failed to create Telegram client", zap.Error(err))
	}

	// Initialize delivery gateway
	gw := gateway.New(api, gateway.RetryPolicy{
		MaxRetries: cfg.Relay.MaxRetries,
		BaseDelay:  cfg.Relay.RetryBaseDelay,
		Multiplier: cfg.Relay.RetryMultiplier,
	}, logger)

	// Initialize thread resolver and relay router
	res := resolver.New(store, gw, cfg.Telegram.GroupID, cfg.Relay.TitleMaxLength, logger)
	throttle := relay.NewCardThrottle()
	router := relay.NewRouter(store, res, gw, throttle,
		cfg.Telegram.GroupID, cfg.Telegram.AdminIDs, cfg.Relay.TitleMaxLength, logger)

	// Initialize webhook server
	webhookURL := strings.TrimSuffix(cfg.Telegram.BaseURL, "/") + "/tg/webhook"
	b := bot.New(router, gw, webhookURL, cfg.Telegram.WebhookSecret, logger)

	// Start the bot
	if err := b.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
