package services

import (
	"context"
	"fmt"
	"time"

	"donation-api/internal/models"
	"donation-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// BrevoService sends transaction status emails through the Brevo API
type BrevoService struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
	timeout   time.Duration
}

// NewBrevoService creates a new Brevo service instance
func NewBrevoService(apiKey, fromEmail, fromName string) *BrevoService {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	return &BrevoService{
		client:    brevo.NewAPIClient(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		timeout:   15 * time.Second,
	}
}

// TransactionChanged emails the recipient school and the provider about a status change.
// Creation and deletion events are not mailed.
func (s *BrevoService) TransactionChanged(ctx context.Context, event TransactionEvent) {
	if event.Type != EventTransactionStatusChanged {
		return
	}

	var to []brevo.SendSmtpEmailTo
	if r := event.Transaction.Recipient; r != nil && r.ContactEmail != "" {
		to = append(to, brevo.SendSmtpEmailTo{Email: r.ContactEmail, Name: r.Name})
	}
	if p := event.Transaction.Provider; p != nil && p.ContactEmail != "" {
		to = append(to, brevo.SendSmtpEmailTo{Email: p.ContactEmail, Name: p.Name})
	}
	if len(to) == 0 {
		return
	}

	email := buildStatusEmail(event)
	email.Sender = &brevo.SendSmtpEmailSender{Name: s.fromName, Email: s.fromEmail}
	email.To = to

	sendCtx := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(sendCtx, s.timeout)
		defer cancel()
		if err := s.sendEmail(sendCtx, email); err != nil {
			logging.Errorf("Status email failed - transaction: %s, error: %v", event.Transaction.ID, err)
			return
		}
		logging.Infof("Status email sent - transaction: %s, recipients: %d", event.Transaction.ID, len(to))
	}()
}

func buildStatusEmail(event TransactionEvent) brevo.SendSmtpEmail {
	txn := event.Transaction
	subject := fmt.Sprintf("Equipment transaction %s is now %s", txn.ID, event.ToStatus)

	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>%s</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
				<h1 style="color: #333; margin-bottom: 20px;">Transaction %s</h1>
				<p style="color: #666; font-size: 16px;">Status changed from <strong>%s</strong> to <strong>%s</strong>.</p>
				<p style="color: #666; font-size: 14px;">Kind: %s, items: %d</p>
				<p style="color: #999; font-size: 12px; margin-top: 30px;">%s</p>
			</div>
		</body>
		</html>
	`, subject, txn.ID, event.FromStatus, event.ToStatus, txn.TransactionKind, len(txn.Items),
		event.OccurredAt.Format(time.RFC1123))

	textContent := fmt.Sprintf(`
		Transaction %s

		Status changed from %s to %s.
		Kind: %s, items: %d
	`, txn.ID, event.FromStatus, event.ToStatus, txn.TransactionKind, len(txn.Items))

	if txn.TransactionKind == models.KindRental && txn.RentalReturnDueDate != nil {
		textContent += fmt.Sprintf("\t\tReturn due: %s\n", txn.RentalReturnDueDate.Format("2006-01-02"))
	}

	return brevo.SendSmtpEmail{
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: textContent,
	}
}

// sendEmail sends email via Brevo API
func (s *BrevoService) sendEmail(ctx context.Context, email brevo.SendSmtpEmail) error {
	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp != nil && resp.StatusCode >= 300 {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}
	return nil
}
