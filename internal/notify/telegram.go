// Package notify pushes signal alerts to Telegram.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradefusion/models"
)

// Telegram sends formatted signal alerts to one chat. A zero-configured
// notifier (empty token) is a no-op so the pipeline runs unchanged without
// alerting.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates an alert notifier. An empty token disables delivery.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	logger := log.With().Str("component", "telegram_notify").Logger()
	if token == "" || chatID == 0 {
		logger.Info().Msg("Telegram alerting not configured")
		return &Telegram{logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("Telegram alerting enabled")
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// NotifySignal delivers one signal alert.
func (t *Telegram) NotifySignal(sig models.Signal) error {
	if t.bot == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, formatSignal(sig))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram alert: %w", err)
	}
	t.logger.Debug().Str("signal_id", sig.ID).Msg("Alert sent")
	return nil
}

// NotifyTrainResult reports a finished training run.
func (t *Telegram) NotifyTrainResult(result models.TrainResult) error {
	if t.bot == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, formatTrainResult(result))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram alert: %w", err)
	}
	t.logger.Debug().Int("version", result.Version).Msg("Training summary sent")
	return nil
}

func formatSignal(sig models.Signal) string {
	var b strings.Builder

	emoji := "📈"
	if sig.Type.IsShort() {
		emoji = "📉"
	}
	fmt.Fprintf(&b, "%s *%s* %s %s\n", emoji, sig.Type, sig.Symbol, sig.Timeframe)
	fmt.Fprintf(&b, "Confidence: *%.1f%%*\n", sig.Confidence*100)

	if sig.EntryPrice != nil {
		fmt.Fprintf(&b, "\nEntry: `%.5f`\n", *sig.EntryPrice)
	}
	if sig.StopLoss != nil {
		fmt.Fprintf(&b, "Stop loss: `%.5f`\n", *sig.StopLoss)
	}
	if sig.TakeProfit != nil {
		fmt.Fprintf(&b, "Take profit: `%.5f`\n", *sig.TakeProfit)
	}
	if sig.RiskRewardRatio != nil {
		fmt.Fprintf(&b, "Risk/reward: `%.2f`\n", *sig.RiskRewardRatio)
	}

	m := sig.Metrics
	fmt.Fprintf(&b, "\nAI %.2f | Trend %.2f | Momentum %.2f | S/R %.2f",
		m.AIScore, m.TrendScore, m.MomentumScore, m.SupportResistanceScore)
	return b.String()
}

func formatTrainResult(result models.TrainResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🧠 *Model trained* v%d\n", result.Version)
	fmt.Fprintf(&b, "Examples: `%d`\n", result.Examples)
	fmt.Fprintf(&b, "Train: loss `%.4f` acc `%.1f%%`\n", result.TrainLoss, result.TrainAccuracy*100)
	fmt.Fprintf(&b, "Validation: loss `%.4f` acc `%.1f%%`", result.ValLoss, result.ValAccuracy*100)
	return b.String()
}
