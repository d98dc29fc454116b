package notification

import (
	"bytes"
	"context"
	"html/template"

	"github.com/resend/resend-go/v2"

	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/domain/notification"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/logger"
)

// emailTemplates stores per-kind email bodies as string constants
var emailTemplates = map[notification.Kind]string{
	notification.KindExpirationReminder: `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333;">
    <p>Hola,</p>
    <p>Tu suscripción <strong>{{.plan_id}}</strong> caduca en <strong>{{.days_remaining}}</strong> días.</p>
    <p>Renueva ahora para no perder tu visibilidad premium.</p>
</body>
</html>`,
	notification.KindAutoRenewalFailed: `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333;">
    <p>Hola,</p>
    <p>No hemos podido cobrar la renovación de tu suscripción ({{.amount}}).</p>
    <p>Actualiza tu método de pago antes de que caduque.</p>
</body>
</html>`,
	notification.KindSubscriptionActive: `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333;">
    <p>Hola,</p>
    <p>Tu suscripción <strong>{{.plan_id}}</strong> ya está activa. ¡Gracias!</p>
</body>
</html>`,
}

var emailSubjects = map[notification.Kind]string{
	notification.KindExpirationReminder: "Tu suscripción caduca pronto",
	notification.KindAutoRenewalFailed:  "No pudimos renovar tu suscripción",
	notification.KindSubscriptionActive: "Suscripción activada",
}

// EmailSender delivers notification emails through Resend
type EmailSender struct {
	client      *resend.Client
	fromAddress string
	enabled     bool
	logger      *logger.Logger
}

func NewEmailSender(cfg *config.Configuration, log *logger.Logger) *EmailSender {
	return &EmailSender{
		client:      resend.NewClient(cfg.Email.APIKey),
		fromAddress: cfg.Email.FromAddress,
		enabled:     cfg.Email.Enabled && cfg.Email.APIKey != "",
		logger:      log,
	}
}

func (s *EmailSender) Send(ctx context.Context, to string, kind notification.Kind, payload map[string]interface{}) error {
	if !s.enabled {
		s.logger.Debugw("email sender disabled, skipping", "to", to, "kind", kind)
		return nil
	}
	if to == "" {
		return ierr.NewError("profile has no email address").
			Mark(ierr.ErrValidation)
	}

	body, err := renderTemplate(kind, payload)
	if err != nil {
		return err
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.fromAddress,
		To:      []string{to},
		Subject: emailSubjects[kind],
		Html:    body,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to send notification email").
			Mark(ierr.ErrSystem)
	}

	s.logger.Debugw("notification email sent", "to", to, "kind", kind, "message_id", sent.Id)
	return nil
}

func renderTemplate(kind notification.Kind, payload map[string]interface{}) (string, error) {
	tmplText, ok := emailTemplates[kind]
	if !ok {
		return "", ierr.NewErrorf("no email template for notification kind %q", kind).
			Mark(ierr.ErrSystem)
	}
	tmpl, err := template.New(string(kind)).Parse(tmplText)
	if err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	return buf.String(), nil
}
