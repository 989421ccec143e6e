package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"filebot/internal/messages"
	"filebot/internal/metrics"
	"filebot/internal/models"
)

// broadcastWorkers bounds concurrent sends during a broadcast
const broadcastWorkers = 8

// deliverFunc sends one broadcast copy to a user
type deliverFunc func(ctx context.Context, userID int64) error

// broadcast fans a message out to every non-banned user and reports the tally
// to the admin. The fan-out runs in the background so polling keeps serving
// other users. A failed recipient never stops the others.
func (b *Bot) broadcast(ctx context.Context, message *tgbotapi.Message, deliver deliverFunc) {
	chatID := message.Chat.ID
	users, err := b.db.ListActiveUserIDs(ctx)
	if err != nil {
		b.log(ctx).Error("Failed to list users for broadcast", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, adminKeyboard())
		return
	}

	b.reply(ctx, chatID, messages.BroadcastStarted(len(users)), adminKeyboard())
	b.background(func() {
		b.fanOut(ctx, message, users, deliver)
	})
}

func (b *Bot) fanOut(ctx context.Context, message *tgbotapi.Message, users []int64, deliver deliverFunc) {
	var success, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastWorkers)
	for _, userID := range users {
		g.Go(func() error {
			if err := deliver(gctx, userID); err != nil {
				failed.Add(1)
				metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
				b.log(ctx).Debug("Broadcast delivery failed", zap.Int64("target_id", userID), zap.Error(err))
				return nil
			}
			success.Add(1)
			metrics.BroadcastDeliveries.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	b.log(ctx).Info("Broadcast finished",
		zap.Int64("delivered", success.Load()),
		zap.Int64("failed", failed.Load()),
	)
	if err := b.activity.Record(ctx, models.Activity{
		Time:    time.Now().UTC(),
		Kind:    models.ActivityBroadcast,
		UserID:  message.From.ID,
		Subject: fmt.Sprintf("%d recipients", len(users)),
		Outcome: fmt.Sprintf("%d/%d", success.Load(), failed.Load()),
	}); err != nil {
		b.log(ctx).Warn("Failed to record activity", zap.Error(err))
	}

	b.reply(ctx, message.Chat.ID, messages.BroadcastReport(int(success.Load()), int(failed.Load())), adminKeyboard())
}
