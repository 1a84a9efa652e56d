package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"egx-trading-bot/internal/events"
)

// Notifier delivers a message to one external channel
type Notifier interface {
	Send(ctx context.Context, message string) error
	Name() string
}

// Manager fans messages out to all configured notifiers
type Manager struct {
	notifiers []Notifier
	log       zerolog.Logger
}

// NewManager creates a notification manager
func NewManager(log zerolog.Logger, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		log:       log.With().Str("component", "notification").Logger(),
	}
}

// Send delivers a message on every channel; one failing channel never
// blocks the others
func (m *Manager) Send(ctx context.Context, message string) {
	for _, n := range m.notifiers {
		if err := n.Send(ctx, message); err != nil {
			m.log.Warn().Err(err).Str("channel", n.Name()).Msg("notification failed")
		}
	}
}

// AttachBus subscribes to trade lifecycle events and pushes them to
// the configured channels
func (m *Manager) AttachBus(bus *events.EventBus) {
	if len(m.notifiers) == 0 {
		return
	}

	bus.Subscribe(events.EventPositionOpened, func(e events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.Send(ctx, fmt.Sprintf("Opened %s %s at %.2f (qty %v)",
			e.Data["direction"], e.Data["ticker"], num(e.Data["entry_price"]), e.Data["quantity"]))
	})

	bus.Subscribe(events.EventPositionClosed, func(e events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.Send(ctx, fmt.Sprintf("Closed %s (%s) at %.2f, pnl %.2f EGP (%.2f%%)",
			e.Data["ticker"], e.Data["reason"], num(e.Data["price"]),
			num(e.Data["pnl"]), num(e.Data["pnl_percent"])))
	})
}

// num coerces event payload values for formatting
func num(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

// TelegramNotifier posts messages to a Telegram chat via the bot API
type TelegramNotifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
}

// NewTelegramNotifier creates a Telegram channel
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Send(ctx context.Context, message string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// DiscordNotifier posts messages to a Discord webhook
type DiscordNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordNotifier creates a Discord channel
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	return nil
}
