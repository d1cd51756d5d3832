package services

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

	"donation-api/internal/models"
	"donation-api/pkg/logging"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Donation-Signature"

// WebhookNotifier posts transaction events to a configured endpoint
type WebhookNotifier struct {
	url         string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second, // 10 second timeout
		},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// WebhookPayload represents the payload sent to the webhook endpoint
type WebhookPayload struct {
	Event           string                   `json:"event"`            // e.g., "transaction.status_changed"
	TransactionID   string                   `json:"transaction_id"`   // e.g., "ETX-2025-000042"
	TransactionKind models.TransactionKind   `json:"transaction_kind"` // rental or permanent
	ProviderID      uint                     `json:"provider_id"`
	ProviderKind    models.ProviderKind      `json:"provider_kind"`
	RecipientID     uint                     `json:"recipient_id"`
	FromStatus      models.TransactionStatus `json:"from_status,omitempty"`
	Status          models.TransactionStatus `json:"status"`
	ChangedBy       string                   `json:"changed_by,omitempty"`
	Timestamp       string                   `json:"timestamp"` // ISO 8601 format
}

// TransactionChanged sends the event asynchronously (in goroutine) to avoid blocking the request
func (wn *WebhookNotifier) TransactionChanged(_ context.Context, event TransactionEvent) {
	if wn.url == "" {
		// No webhook configured, skip
		return
	}

	status := event.ToStatus
	if event.Type == EventTransactionDeleted {
		status = event.FromStatus
	}
	payload := WebhookPayload{
		Event:           event.Type,
		TransactionID:   event.Transaction.ID,
		TransactionKind: event.Transaction.TransactionKind,
		ProviderID:      event.Transaction.ProviderID,
		ProviderKind:    event.Transaction.ProviderKind,
		RecipientID:     event.Transaction.RecipientID,
		FromStatus:      event.FromStatus,
		Status:          status,
		ChangedBy:       event.ChangedBy,
		Timestamp:       event.OccurredAt.Format(time.RFC3339),
	}

	go wn.sendWithRetry(payload)
}

// sendWithRetry sends webhook with retry mechanism
// Retry schedule: 1s, 5s, 30s (3 attempts total)
func (wn *WebhookNotifier) sendWithRetry(payload WebhookPayload) {
	maxRetries := len(wn.retryDelays)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := wn.sendWebhook(payload)
		if err == nil {
			logging.Infof("Webhook notification sent successfully - url: %s, transaction: %s, attempt: %d",
				wn.url, payload.TransactionID, attempt+1)
			return
		}

		logging.Errorf("Webhook notification failed - url: %s, transaction: %s, attempt: %d, error: %v",
			wn.url, payload.TransactionID, attempt+1, err)

		// If not the last attempt, wait before retry
		if attempt < maxRetries-1 {
			time.Sleep(wn.retryDelays[attempt])
		}
	}

	logging.Errorf("Webhook notification failed after %d attempts - url: %s, transaction: %s",
		maxRetries, wn.url, payload.TransactionID)
}

// sendWebhook sends a single webhook request
func (wn *WebhookNotifier) sendWebhook(payload WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, wn.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "DonationAPI-Webhook/1.0")

	// Add signature if secret is provided
	if wn.secret != "" {
		req.Header.Set(SignatureHeader, SignPayload(jsonData, wn.secret))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// SignPayload generates the HMAC-SHA256 signature for a webhook body
func SignPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
