// Package notifications pushes transaction state changes to an
// external consumer so callers are not forced to poll for approval
// progress.
package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
)

type Event struct {
	TransactionID  string    `json:"transactionId"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	ApprovalStatus string    `json:"approvalStatus"`
	AccountID      string    `json:"accountId"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type Notifier interface {
	TransactionStateChanged(ctx context.Context, event Event)
}

// LogNotifier records transitions in the service log only. Used when
// no webhook URL is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) TransactionStateChanged(_ context.Context, event Event) {
	logger.Info("transaction state changed", logger.Fields{
		"transactionId":  event.TransactionID,
		"type":           event.Type,
		"status":         event.Status,
		"approvalStatus": event.ApprovalStatus,
	})
}

// WebhookNotifier delivers each transition as a signed JSON POST.
// Delivery failures are logged, never surfaced to the ledger caller.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhookNotifier(url string, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *WebhookNotifier) TransactionStateChanged(ctx context.Context, event Event) {
	if err := n.send(ctx, event); err != nil {
		logger.Error("webhook notifier delivery failed", err, logger.Fields{
			"transactionId": event.TransactionID,
			"url":           n.url,
		})
	}
}

func (n *WebhookNotifier) send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "VaultLedger-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set("X-Vault-Signature", sign(payload, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook consumer returned status %d", resp.StatusCode)
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
