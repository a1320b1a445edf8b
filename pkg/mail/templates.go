package mail

import (
	"fmt"
	"strings"
)

// TemplateKind selects the body rendered around a verification code.
type TemplateKind string

const (
	TemplateActivateAccount TemplateKind = "ACTIVATE_ACCOUNT"
	TemplateChangeEmail     TemplateKind = "CHANGE_EMAIL"
	TemplateChangePassword  TemplateKind = "CHANGE_PASSWORD"
	TemplateResetPassword   TemplateKind = "RESET_PASSWORD"
)

var templateIntros = map[TemplateKind]string{
	TemplateActivateAccount: "Thanks for signing up. Enter the code below to activate your account.",
	TemplateChangeEmail:     "We received a request to move your account to this email address. Enter the code below to confirm the change.",
	TemplateChangePassword:  "We received a request to change your password. Enter the code below to confirm the change.",
	TemplateResetPassword:   "We received a request to reset your password. Enter the code below to choose a new one.",
}

// Valid reports whether k is one of the known template kinds.
func (k TemplateKind) Valid() bool {
	_, ok := templateIntros[k]
	return ok
}

// RenderCode produces the plain-text body for a verification code email.
func RenderCode(kind TemplateKind, recipientName, code string) (string, error) {
	intro, ok := templateIntros[kind]
	if !ok {
		return "", fmt.Errorf("mail: unknown template %q", kind)
	}

	greeting := "Hello,"
	if name := strings.TrimSpace(recipientName); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	var b strings.Builder
	b.WriteString(greeting)
	b.WriteString("\n\n")
	b.WriteString(intro)
	b.WriteString("\n\n    ")
	b.WriteString(code)
	b.WriteString("\n\nThe code expires in 24 hours and can only be used once.\n")
	b.WriteString("If you did not request this, you can ignore this message.\n")
	return b.String(), nil
}
