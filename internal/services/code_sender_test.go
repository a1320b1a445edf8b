package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authcore/pkg/mail"
)

type captureMailer struct {
	messages []mail.Message
	err      error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.messages = append(m.messages, msg)
	return m.err
}

func TestMailCodeSender_RendersTemplate(t *testing.T) {
	mailer := &captureMailer{}
	sender, err := NewMailCodeSender(mailer)
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), " ada@example.com ", "Ada", mail.TemplateActivateAccount, "123456", "Activate your account"))
	require.Len(t, mailer.messages, 1)

	msg := mailer.messages[0]
	require.Equal(t, []string{"ada@example.com"}, msg.To)
	require.Equal(t, "Ada", msg.ToName)
	require.Equal(t, "Activate your account", msg.Subject)
	require.Contains(t, msg.Body, "123456")
}

func TestMailCodeSender_Errors(t *testing.T) {
	_, err := NewMailCodeSender(nil)
	require.Error(t, err)

	mailer := &captureMailer{err: mail.ErrSMTPDisabled}
	sender, err := NewMailCodeSender(mailer)
	require.NoError(t, err)

	require.Error(t, sender.Send(context.Background(), "", "Ada", mail.TemplateResetPassword, "1", "s"))
	require.Error(t, sender.Send(context.Background(), "a@example.com", "Ada", mail.TemplateKind("WELCOME"), "1", "s"))

	err = sender.Send(context.Background(), "a@example.com", "Ada", mail.TemplateResetPassword, "1", "s")
	require.True(t, errors.Is(err, mail.ErrSMTPDisabled))
	require.Len(t, mailer.messages, 1)
}
