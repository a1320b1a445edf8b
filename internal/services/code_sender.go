package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/authcore/pkg/mail"
)

// CodeSender delivers a verification code to a recipient.
type CodeSender interface {
	Send(ctx context.Context, to, name string, kind mail.TemplateKind, code, subject string) error
}

// MailCodeSender renders code templates and hands them to a mail.Mailer.
type MailCodeSender struct {
	mailer mail.Mailer
}

// NewMailCodeSender wraps mailer as a CodeSender.
func NewMailCodeSender(mailer mail.Mailer) (*MailCodeSender, error) {
	if mailer == nil {
		return nil, errors.New("code sender: mailer is required")
	}
	return &MailCodeSender{mailer: mailer}, nil
}

func (s *MailCodeSender) Send(ctx context.Context, to, name string, kind mail.TemplateKind, code, subject string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("code sender: recipient is required")
	}

	body, err := mail.RenderCode(kind, name, code)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		ToName:  name,
		Subject: subject,
		Body:    body,
	}); err != nil {
		return fmt.Errorf("code sender: %w", err)
	}
	return nil
}
