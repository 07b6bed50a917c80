// Package notify is the fire-and-forget notification sink. Failures are
// logged and dropped — a notification must never affect trade correctness
// or block the caller.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/basesim/trade-engine/internal/identity"
)

// Notifier receives engine lifecycle events.
type Notifier interface {
	// NewIdentityOnboarded is fired once when a fresh ledger is created
	// for a wallet.
	NewIdentityOnboarded(walletAddress string)
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) NewIdentityOnboarded(string) {}

// Telegram sends notifications to a Telegram chat via the bot API.
type Telegram struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegram creates a Telegram notifier. Missing credentials make every
// send a logged skip rather than an error.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) NewIdentityOnboarded(walletAddress string) {
	text := fmt.Sprintf("New trader onboarded: %s", identity.Short(walletAddress))
	go t.send(text)
}

func (t *Telegram) send(text string) {
	if t.token == "" || t.chatID == "" {
		slog.Warn("telegram credentials missing, skipping notification")
		return
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return
	}

	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		slog.Warn("telegram notification failed", "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("telegram notification rejected", "status", resp.StatusCode)
	}
}
