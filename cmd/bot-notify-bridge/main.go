package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/db"
	"github.com/challenge-arena/backend/internal/events"
	"github.com/challenge-arena/backend/internal/services"
	"go.uber.org/zap"
)

// Bot Notify Bridge subscribes to per-user notify events and forwards
// them to the Telegram bot service.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	botClient := services.NewBotClient(cfg.BotInternalURL, log)

	log.Info("bot-notify-bridge started")

	_ = subscriber.Subscribe(ctx, events.StreamNotify, func(event events.Event) {
		telegramUserID, ok := asInt64(event.Payload["telegram_user_id"])
		if !ok || telegramUserID == 0 {
			return
		}

		text, _ := event.Payload["text"].(string)
		if text == "" {
			text = fmt.Sprintf("Event: %s", event.Type)
		}

		log.Info("forwarding notification", zap.String("type", event.Type), zap.Int64("telegram_user_id", telegramUserID))
		if err := botClient.SendNotification(ctx, telegramUserID, text); err != nil {
			log.Warn("failed to forward notification", zap.Error(err))
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down bot-notify-bridge")
	cancel()
}

// asInt64 handles the json number types an Event payload can carry.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}
