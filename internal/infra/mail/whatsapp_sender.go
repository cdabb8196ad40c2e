package mail

import (
	"context"
	"log/slog"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/institut-pipeline/internal/infra/integration/whatsapp"
)

type messageSender interface {
	SendMessage(ctx context.Context, input whatsapp.SendMessageInput) (string, error)
}

// WhatsAppSender sends the welcome template. Failures are logged, never
// returned: email is the channel of record.
type WhatsAppSender struct {
	client       messageSender
	templateName string
	logger       *slog.Logger
}

func NewWhatsAppSender(client messageSender, templateName string, log *slog.Logger) *WhatsAppSender {
	if log == nil {
		log = slog.Default()
	}
	return &WhatsAppSender{client: client, templateName: templateName, logger: log}
}

func (s *WhatsAppSender) SendWelcome(ctx context.Context, msg entity.OnboardingMessage) {
	if msg.RecipientPhone == "" {
		return
	}
	name := msg.ContactName
	if name == "" {
		name = msg.InstitutName
	}

	id, err := s.client.SendMessage(ctx, whatsapp.SendMessageInput{
		PhoneNumber:  msg.RecipientPhone,
		TemplateName: s.templateName,
		Parameters:   []string{name, msg.InstitutName, msg.LoginURL},
	})
	if err != nil {
		s.logger.Warn("whatsapp welcome not sent", "lead_id", msg.LeadID, "error", err)
		middleware.RecordIntegrationError("whatsapp")
		middleware.RecordNotificationFailure("whatsapp")
		return
	}
	s.logger.Info("whatsapp welcome sent", "lead_id", msg.LeadID, "message_id", id)
}
