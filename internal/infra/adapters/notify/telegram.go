package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/adapter"
)

// TelegramNotifier posts settlement announcements to an ops channel.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ adapter.Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is zero")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) NotifyEarnings(ctx context.Context, rec *model.EarningsRecord) error {
	text := fmt.Sprintf("💰 Sale settled\nApp: %s\nDeveloper: %s\nTotal: %s π (share %s π, fee %s π)",
		rec.AppID, rec.DeveloperID, rec.TotalAmount.String(), rec.DeveloperShare.String(), rec.PlatformFee.String())
	return n.send(ctx, text)
}

func (n *TelegramNotifier) NotifySubscription(ctx context.Context, sub *model.SubscriptionRecord) error {
	text := fmt.Sprintf("📅 Subscription settled\nProfile: %s\nPlan: %s (%s)\nUntil: %s",
		sub.ProfileID, sub.PlanType, sub.BillingPeriod, sub.EndDate.Format("2006-01-02"))
	return n.send(ctx, text)
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	_, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text))
	return err
}

// NoopNotifier is used when no Telegram credentials are configured.
type NoopNotifier struct{}

var _ adapter.Notifier = (*NoopNotifier)(nil)

func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (NoopNotifier) NotifyEarnings(context.Context, *model.EarningsRecord) error      { return nil }
func (NoopNotifier) NotifySubscription(context.Context, *model.SubscriptionRecord) error { return nil }
