package utils

import (
	"fmt"
	"log/slog"

	"github.com/keighl/postmark"

	"medishop/config"
	"medishop/models"
)

type postmarkSender interface {
	SendEmail(email postmark.Email) (postmark.EmailResponse, error)
}

// EmailService handles sending emails using Postmark
type EmailService struct {
	client postmarkSender
	sender string
}

// NewEmailService returns nil when no Postmark token is configured, which
// disables outbound mail.
func NewEmailService(cfg config.Mail) *EmailService {
	if cfg.PostmarkToken == "" {
		slog.Warn("POSTMARK_API_TOKEN not set, outbound email disabled")
		return nil
	}
	return &EmailService{client: postmark.NewClient(cfg.PostmarkToken, ""), sender: cfg.Sender}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent, textContent string) error {
	_, err := es.client.SendEmail(postmark.Email{
		From:     es.sender,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: textContent,
		Tag:      "order",
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendOrderConfirmation tells the customer their order was placed.
func (es *EmailService) SendOrderConfirmation(toEmail string, order models.Order) error {
	subject := fmt.Sprintf("Order %s confirmation", order.Code)
	htmlContent := fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>Thank you for your purchase! Your order <strong>%s</strong> has been placed.<br><br>Total Amount: <strong>$%.2f</strong><br>Payment Method: <strong>%s</strong><br><br>Thank you for shopping with us!",
		order.Code,
		order.Total,
		order.Payment.Method,
	)
	textContent := fmt.Sprintf("Your order %s has been placed. Total: $%.2f. Payment method: %s.",
		order.Code, order.Total, order.Payment.Method)
	return es.SendEmail(toEmail, subject, htmlContent, textContent)
}
