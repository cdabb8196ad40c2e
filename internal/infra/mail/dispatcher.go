package mail

import (
	"context"
	"log/slog"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type emailSender interface {
	SendOnboarding(ctx context.Context, msg entity.OnboardingMessage) error
}

// OnboardingDispatcher sends the onboarding email and, when a WhatsApp
// sender is set, the welcome template. Only the email outcome is returned.
type OnboardingDispatcher struct {
	Email    emailSender
	WhatsApp *WhatsAppSender
	Logger   *slog.Logger
}

func NewOnboardingDispatcher(email emailSender, wa *WhatsAppSender, log *slog.Logger) *OnboardingDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &OnboardingDispatcher{Email: email, WhatsApp: wa, Logger: log}
}

func (d *OnboardingDispatcher) SendOnboarding(ctx context.Context, msg entity.OnboardingMessage) error {
	if err := d.Email.SendOnboarding(ctx, msg); err != nil {
		return err
	}
	d.Logger.Info("onboarding email sent", "lead_id", msg.LeadID, "intent_id", msg.IntentID,
		"with_credentials", msg.TemporaryPassword != "")

	if d.WhatsApp != nil {
		d.WhatsApp.SendWelcome(ctx, msg)
	}
	return nil
}
