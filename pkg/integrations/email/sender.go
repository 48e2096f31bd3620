// Package email sends plain-text mail through a user's SMTP account.
package email

import (
	"context"
	"fmt"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/wneessen/go-mail"
)

const (
	DefaultPort = 587
	SSLPort     = 465
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, account *models.EmailCredentials, message Message) error
}

// SMTPSender dials the account's server for every message.
type SMTPSender struct{}

func NewSender() *SMTPSender {
	return &SMTPSender{}
}

func (s *SMTPSender) Send(ctx context.Context, account *models.EmailCredentials, message Message) error {
	msg, err := buildMessage(account.EmailAddress, message)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(account.SMTPHost, clientOptions(account)...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", account.SMTPHost, err)
	}

	return nil
}

func buildMessage(from string, message Message) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}

	if err := msg.To(message.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", message.To, err)
	}

	msg.Subject(message.Subject)
	msg.SetBodyString(mail.TypeTextPlain, message.Body)

	return msg, nil
}

// Port returns the SMTP port to dial, defaulting to submission.
func Port(account *models.EmailCredentials) int {
	if account.SMTPPort == 0 {
		return DefaultPort
	}

	return account.SMTPPort
}

// Port 465 speaks TLS from the first byte; anything else upgrades with
// STARTTLS when the server offers it.
func clientOptions(account *models.EmailCredentials) []mail.Option {
	port := Port(account)

	options := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(account.SMTPUser),
		mail.WithPassword(account.SMTPPass),
	}

	if port == SSLPort {
		options = append(options, mail.WithSSLPort(false))
	} else {
		options = append(options, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	return append(options, mail.WithPort(port))
}
