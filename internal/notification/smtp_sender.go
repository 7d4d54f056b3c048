package notification

import (
	"context"
	"errors"
	"fmt"
	"library-api/internal/config"
	"library-api/internal/infrastructure/monitoring"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

const (
	smtpDialTimeout = 10 * time.Second

	skipReasonInvalidAddress = "invalid_address"
	skipReasonRejected       = "rejected"
)

type deliverFunc func(ctx context.Context, msgs ...*mail.Msg) error

// SMTPSender delivers the batch over a single SMTP session, one message per
// recipient, so a rejected address only affects its own message.
type SMTPSender struct {
	cfg     config.SMTPConfig
	deliver deliverFunc
	now     func() time.Time
	logger  *slog.Logger
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg config.SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if err := mail.NewMsg().From(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", cfg.From, err)
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(smtpDialTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &SMTPSender{
		cfg:     cfg,
		deliver: client.DialAndSendWithContext,
		now:     time.Now,
		logger:  logger.With("component", "SMTPSender", "host", cfg.Host),
	}, nil
}

// SendBatch fails only when no recipient could be delivered to.
func (s *SMTPSender) SendBatch(ctx context.Context, message string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*mail.Msg, 0, len(recipients))
	for _, rcpt := range recipients {
		msg, err := s.compose(message, rcpt)
		if err != nil {
			monitoring.RecordRecipientSkipped(skipReasonInvalidAddress)
			s.logger.WarnContext(ctx, "Skipping invalid recipient", slog.String("recipient", rcpt), slog.Any("error", err))
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		s.logger.WarnContext(ctx, "No valid recipients in batch", slog.Int("recipients", len(recipients)))
		return nil
	}

	err := s.deliver(ctx, msgs...)
	rejected := s.countRejected(ctx, msgs)

	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "Mail sent", slog.Int("recipients", len(msgs)))
		return nil
	case rejected > 0 && rejected < len(msgs):
		s.logger.WarnContext(ctx, "Mail sent with rejected recipients",
			slog.Int("delivered", len(msgs)-rejected),
			slog.Int("rejected", rejected),
		)
		return nil
	default:
		s.logger.ErrorContext(ctx, "Failed to send mail", slog.Int("recipients", len(msgs)), slog.Any("error", err))
		return fmt.Errorf("failed to send mail via %s: %w", s.cfg.Host, err)
	}
}

func (s *SMTPSender) countRejected(ctx context.Context, msgs []*mail.Msg) int {
	rejected := 0
	for _, msg := range msgs {
		if !msg.HasSendError() {
			continue
		}
		rejected++
		monitoring.RecordRecipientSkipped(skipReasonRejected)
		to, _ := msg.GetRecipients()
		s.logger.WarnContext(ctx, "Recipient rejected by SMTP server",
			slog.Any("recipients", to),
			slog.Bool("temporary", msg.SendErrorIsTemp()),
			slog.Any("error", msg.SendError()),
		)
	}
	return rejected
}

func (s *SMTPSender) compose(message, rcpt string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(rcpt); err != nil {
		return nil, errors.Join(fmt.Errorf("recipient %q", rcpt), err)
	}
	msg.Subject(s.cfg.Subject)
	msg.SetDateWithValue(s.now())
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, message)
	return msg, nil
}
