package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/institut-pipeline/internal/config"
	"github.com/xavierca1/institut-pipeline/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var onboardingTemplate = template.Must(template.ParseFS(templateFS, "templates/onboarding.html"))

// dialer is satisfied by *gomail.Dialer.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender sends onboarding emails over SMTP.
type EmailSender struct {
	from         string
	supportEmail string
	dialer       dialer
}

func NewEmailSender(cfg config.Mail, supportEmail string) *EmailSender {
	return &EmailSender{
		from:         cfg.From,
		supportEmail: supportEmail,
		dialer:       gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

// RenderOnboarding returns the subject and HTML body for msg.
func (s *EmailSender) RenderOnboarding(msg entity.OnboardingMessage) (string, string, error) {
	data := OnboardingEmailData{
		ContactName:       msg.ContactName,
		InstitutName:      msg.InstitutName,
		LoginEmail:        msg.LoginEmail,
		TemporaryPassword: msg.TemporaryPassword,
		LoginURL:          msg.LoginURL,
		Plan:              string(msg.Plan),
		SupportEmail:      s.supportEmail,
	}

	var body bytes.Buffer
	if err := onboardingTemplate.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render onboarding email: %w", err)
	}

	subject := fmt.Sprintf("Votre espace %s est prêt", msg.InstitutName)
	if msg.TemporaryPassword != "" {
		subject = fmt.Sprintf("Bienvenue sur Institut, %s : vos accès", msg.InstitutName)
	}
	return subject, body.String(), nil
}

// SendOnboarding delivers the welcome email. The SMTP dial is not
// cancellable; ctx is only checked before dialing.
func (s *EmailSender) SendOnboarding(ctx context.Context, msg entity.OnboardingMessage) error {
	if msg.RecipientEmail == "" {
		return errors.New("onboarding email: no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := s.RenderOnboarding(msg)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.RecipientEmail)
	if msg.LoginEmail != "" && msg.LoginEmail != msg.RecipientEmail {
		m.SetHeader("Cc", msg.LoginEmail)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send onboarding email via smtp: %w", err)
	}
	return nil
}
