package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// sendTimeout bounds how long a notification can hold up the trading loop.
const sendTimeout = 3 * time.Second

// Notifier posts lines to a Telegram chat. It satisfies logger.Sink.
type Notifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewNotifier returns nil when token or chatID is empty so callers can skip
// the sink entirely.
func NewNotifier(token, chatID string) *Notifier {
	if token == "" || chatID == "" {
		return nil
	}
	return &Notifier{
		token:   token,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: sendTimeout},
	}
}

// Emit sends text as a plain message. Failures are logged and dropped.
func (n *Notifier) Emit(text string) {
	if err := n.Send(text); err != nil {
		log.Printf("WARN: Telegram notify failed: %v", err)
	}
}

// Send posts text to sendMessage and reports any failure.
func (n *Notifier) Send(text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)

	// plain text: event lines contain underscores that Markdown would eat
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := n.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api status %s", resp.Status)
	}
	return nil
}
