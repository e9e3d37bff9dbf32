package services

import (
	"context"

	"github.com/challenge-arena/backend/internal/events"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier fans engine events out to recipients, strictly after the
// owning transaction has committed. Delivery is best-effort: failures
// are logged and swallowed, they never affect a settlement.
type Notifier struct {
	publisher events.Publisher
	userRepo  *repositories.UserRepo
	log       *zap.Logger
}

func NewNotifier(publisher events.Publisher, userRepo *repositories.UserRepo, log *zap.Logger) *Notifier {
	return &Notifier{publisher: publisher, userRepo: userRepo, log: log}
}

// Send publishes one event on the challenge stream plus one per-recipient
// notify event carrying the recipient's telegram id for the bot bridge.
func (n *Notifier) Send(ctx context.Context, eventType string, userIDs []uuid.UUID, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}

	if err := n.publisher.Publish(ctx, events.StreamChallenge, events.Event{Type: eventType, Payload: payload}); err != nil {
		n.log.Warn("failed to publish challenge event", zap.String("type", eventType), zap.Error(err))
	}

	if len(userIDs) == 0 {
		return
	}

	tgIDs, err := n.userRepo.GetTelegramIDs(ctx, userIDs)
	if err != nil {
		n.log.Warn("failed to resolve notification recipients", zap.Error(err))
		return
	}

	for _, userID := range userIDs {
		p := make(map[string]any, len(payload)+2)
		for k, v := range payload {
			p[k] = v
		}
		p["user_id"] = userID.String()
		if tgID, ok := tgIDs[userID]; ok {
			p["telegram_user_id"] = tgID
		}
		if err := n.publisher.Publish(ctx, events.StreamNotify, events.Event{Type: eventType, Payload: p}); err != nil {
			n.log.Warn("failed to publish notify event",
				zap.String("type", eventType),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}
}
