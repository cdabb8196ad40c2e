package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

// ConvertLeadUseCase turns a lead into a live organization. It runs as a
// saga tracked by a ConversionIntent:
//
//  1. claim an intent (atomic guard against double conversion)
//  2. provision the tenant; failure releases the intent, the lead is untouched
//  3. link lead, audit interaction and intent in one write; failure leaves a
//     PROVISIONED intent to resume, never to provision again
//  4. notify; failure is logged and reported, never raised
//
// A PENDING intent idle for StaleAfter is assumed dead: Resume adopts the
// organization it may have provisioned, Abandon releases it when there is
// none.
type ConvertLeadUseCase struct {
	Leads            entity.LeadRepository
	Conversions      entity.ConversionRepository
	Organizations    entity.OrganizationRepository
	Provisioner      TenantProvisioner
	Notifier         OnboardingNotifier
	Events           EventPublisher
	LoginURLTemplate string
	StaleAfter       time.Duration
	Logger           *slog.Logger
	Now              func() time.Time
}

// DefaultStaleAfter matches the default reconciliation threshold.
const DefaultStaleAfter = 10 * time.Minute

func NewConvertLeadUseCase(
	leads entity.LeadRepository,
	conversions entity.ConversionRepository,
	orgs entity.OrganizationRepository,
	provisioner TenantProvisioner,
	notifier OnboardingNotifier,
	events EventPublisher,
	loginURLTemplate string,
	log *slog.Logger,
) *ConvertLeadUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ConvertLeadUseCase{
		Leads:            leads,
		Conversions:      conversions,
		Organizations:    orgs,
		Provisioner:      provisioner,
		Notifier:         notifier,
		Events:           events,
		LoginURLTemplate: loginURLTemplate,
		StaleAfter:       DefaultStaleAfter,
		Logger:           log,
		Now:              time.Now,
	}
}

func (uc *ConvertLeadUseCase) Execute(ctx context.Context, input ConvertLeadInput) (*ConvertLeadOutput, error) {
	log := logger.FromContext(ctx, uc.Logger).With("lead_id", input.LeadID)

	if errs := ValidateConvertLeadInput(input); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	plan, err := entity.ParsePlanTier(input.Plan)
	if err != nil {
		return nil, err
	}

	lead, err := uc.Leads.FindByID(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.IsConverted() {
		return nil, entity.ErrAlreadyConverted
	}

	adminEmail := strings.ToLower(strings.TrimSpace(input.AdminEmail))
	if adminEmail == "" {
		adminEmail = lead.Email
	}
	if adminEmail == "" {
		return nil, ValidationErrors{{Field: "admin_email", Message: "is required when the lead has no email"}}
	}

	intent := entity.NewConversionIntent(lead.ID, plan, input.Billing != nil, input.ActorID, uc.now())
	if err := uc.Conversions.Claim(ctx, intent); err != nil {
		return nil, err
	}
	log = log.With("intent_id", intent.ID)

	res, err := uc.Provisioner.CreateOrganization(ctx, uc.provisionRequest(lead, plan, adminEmail, input))
	if err != nil {
		intent.MarkFailed(err, uc.now())
		if uerr := uc.Conversions.Update(context.WithoutCancel(ctx), intent); uerr != nil {
			log.Error("could not release conversion intent", "error", uerr)
		}
		log.Warn("tenant provisioning failed", "error", err)
		return nil, &ProvisioningFailedError{IntentID: intent.ID, Err: err}
	}

	// the tenant exists from here on: a cancelled request must not leave it
	// unlinked
	ctx = context.WithoutCancel(ctx)

	intent.MarkProvisioned(res, uc.now())
	if err := uc.Conversions.Update(ctx, intent); err != nil {
		log.Error("could not record provisioned intent", "organization_id", res.OrganizationID, "error", err)
	}

	creds := entity.Credentials{
		AdminEmail:        res.AdminEmail,
		TemporaryPassword: res.TemporaryPassword,
		LoginURL:          LoginURL(uc.LoginURLTemplate, res.Slug),
	}
	return uc.finish(ctx, log, lead, intent, creds, input.ActorID, false)
}

// Resume re-runs link, audit and notification for a PROVISIONED intent with
// its stored organization. A stale PENDING intent is first matched with the
// organization provisioned from its lead, if any. The provisioner is never
// called. The password was handed out once and is not part of the resumed
// output nor of the email.
func (uc *ConvertLeadUseCase) Resume(ctx context.Context, intentID, actorID string) (*ConvertLeadOutput, error) {
	intent, err := uc.Conversions.FindByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, uc.Logger).With("lead_id", intent.LeadID, "intent_id", intent.ID)

	switch intent.State {
	case entity.IntentProvisioned:
	case entity.IntentLinked:
		return nil, entity.ErrAlreadyConverted
	case entity.IntentPending:
		if !uc.stale(intent) {
			return nil, entity.ErrConversionInProgress
		}
		org, err := uc.provisionedFor(ctx, intent)
		if err != nil {
			return nil, err
		}
		if org == nil {
			return nil, entity.ErrIntentNotResumable
		}
		intent.MarkProvisioned(&entity.ProvisionResult{
			OrganizationID: org.ID,
			Slug:           org.Slug,
			AdminEmail:     org.AdminEmail,
		}, uc.now())
		if err := uc.Conversions.Update(ctx, intent); err != nil {
			return nil, err
		}
		log.Warn("adopted organization of a stale pending intent",
			"organization_id", org.ID, "billing", org.BillingStatus, "with_billing", intent.WithBilling)
	case entity.IntentFailed:
		return nil, entity.ErrIntentNotResumable
	default:
		return nil, entity.ErrIntentNotResumable
	}

	lead, err := uc.Leads.FindByID(ctx, intent.LeadID)
	if err != nil {
		return nil, err
	}

	log.Info("resuming conversion", "organization_id", intent.OrganizationID, "actor", actorID)

	creds := entity.Credentials{
		AdminEmail: intent.AdminEmail,
		LoginURL:   LoginURL(uc.LoginURLTemplate, intent.Slug),
	}
	return uc.finish(context.WithoutCancel(ctx), log, lead, intent, creds, actorID, true)
}

// Abandon marks a stale PENDING intent FAILED so the lead can be converted
// again. It refuses when an organization was provisioned from the lead after
// the intent was claimed: that tenant must be resumed, not forgotten.
func (uc *ConvertLeadUseCase) Abandon(ctx context.Context, intentID, actorID string) (*entity.ConversionIntent, error) {
	intent, err := uc.Conversions.FindByID(ctx, intentID)
	if err != nil {
		return nil, err
	}

	switch intent.State {
	case entity.IntentPending:
	case entity.IntentLinked:
		return nil, entity.ErrAlreadyConverted
	case entity.IntentProvisioned, entity.IntentFailed:
		return nil, entity.ErrIntentNotAbandonable
	default:
		return nil, entity.ErrIntentNotAbandonable
	}
	if !uc.stale(intent) {
		return nil, entity.ErrConversionInProgress
	}

	org, err := uc.provisionedFor(ctx, intent)
	if err != nil {
		return nil, err
	}
	if org != nil {
		return nil, entity.ErrTenantExists
	}

	intent.MarkFailed(fmt.Errorf("abandoned by %s", actorID), uc.now())
	if err := uc.Conversions.Update(ctx, intent); err != nil {
		return nil, err
	}
	logger.FromContext(ctx, uc.Logger).Warn("conversion intent abandoned",
		"intent_id", intent.ID, "lead_id", intent.LeadID, "actor", actorID)
	return intent, nil
}

func (uc *ConvertLeadUseCase) stale(intent *entity.ConversionIntent) bool {
	return uc.now().Sub(intent.UpdatedAt) >= uc.StaleAfter
}

// provisionedFor returns the organization created from the intent's lead
// since the intent was claimed, or nil. Older organizations belong to
// earlier attempts.
func (uc *ConvertLeadUseCase) provisionedFor(ctx context.Context, intent *entity.ConversionIntent) (*entity.Organization, error) {
	if uc.Organizations == nil {
		return nil, nil
	}
	org, err := uc.Organizations.FindBySourceLead(ctx, intent.LeadID)
	if errors.Is(err, entity.ErrOrganizationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if org.CreatedAt.Before(intent.CreatedAt) {
		return nil, nil
	}
	return org, nil
}

// finish runs steps 2 to 4 for a provisioned intent.
func (uc *ConvertLeadUseCase) finish(
	ctx context.Context,
	log *slog.Logger,
	lead *entity.Lead,
	intent *entity.ConversionIntent,
	creds entity.Credentials,
	actorID string,
	resumed bool,
) (*ConvertLeadOutput, error) {
	now := uc.now()

	audit, err := entity.NewInteraction(entity.InteractionInput{
		LeadID:   lead.ID,
		Type:     entity.InteractionNote,
		Subject:  "Conversion",
		Content:  fmt.Sprintf("Lead converted: organization %s (%s), plan %s.", intent.Slug, intent.OrganizationID, intent.Plan),
		AuthorID: actorID,
	}, now)
	if err != nil {
		return nil, err
	}

	err = uc.Conversions.Link(ctx, entity.ConversionLink{
		Intent:      intent,
		ConvertedAt: now,
		ActorID:     actorID,
		Audit:       audit,
	})
	if err != nil {
		intent.MarkLinkFailed(err, uc.now())
		if uerr := uc.Conversions.Update(ctx, intent); uerr != nil {
			log.Error("could not record link failure", "error", uerr)
		}
		log.Error("partial conversion: organization exists but lead is not linked",
			"organization_id", intent.OrganizationID, "error", err)
		return nil, &PartialConversionError{
			IntentID:       intent.ID,
			OrganizationID: intent.OrganizationID,
			Credentials:    creds,
			Err:            err,
		}
	}
	intent.MarkLinked(now)
	log.Info("lead converted", "organization_id", intent.OrganizationID, "resumed", resumed)

	uc.publish(ctx, log, intent, actorID, now)

	out := &ConvertLeadOutput{
		IntentID:       intent.ID,
		LeadID:         lead.ID,
		LeadStatus:     entity.StatusWon,
		OrganizationID: intent.OrganizationID,
		Slug:           intent.Slug,
		Plan:           intent.Plan,
		Credentials:    creds,
		Resumed:        resumed,
	}

	notifyErr := uc.notify(ctx, lead, intent, creds)
	if notifyErr != nil {
		log.Warn("onboarding notification failed", "code", CodeNotificationFailed, "error", notifyErr)
		out.NotificationError = notifyErr.Error()
	} else {
		out.NotificationSent = true
	}

	intent.MarkNotified(notifyErr, uc.now())
	if err := uc.Conversions.Update(ctx, intent); err != nil {
		log.Warn("could not record notification outcome", "error", err)
	}
	return out, nil
}

func (uc *ConvertLeadUseCase) notify(ctx context.Context, lead *entity.Lead, intent *entity.ConversionIntent, creds entity.Credentials) (err error) {
	if uc.Notifier == nil {
		return errors.New("no onboarding notifier configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()

	recipient := lead.Email
	if recipient == "" {
		recipient = creds.AdminEmail
	}
	return uc.Notifier.SendOnboarding(ctx, entity.OnboardingMessage{
		LeadID:            lead.ID,
		IntentID:          intent.ID,
		RecipientEmail:    recipient,
		RecipientPhone:    lead.Phone,
		InstitutName:      lead.InstitutName,
		ContactName:       lead.ContactName,
		LoginEmail:        creds.AdminEmail,
		TemporaryPassword: creds.TemporaryPassword,
		LoginURL:          creds.LoginURL,
		Plan:              intent.Plan,
	})
}

func (uc *ConvertLeadUseCase) publish(ctx context.Context, log *slog.Logger, intent *entity.ConversionIntent, actorID string, at time.Time) {
	if uc.Events == nil {
		return
	}
	err := uc.Events.PublishLeadConverted(ctx, entity.LeadConvertedEvent{
		LeadID:         intent.LeadID,
		IntentID:       intent.ID,
		OrganizationID: intent.OrganizationID,
		Slug:           intent.Slug,
		Plan:           intent.Plan,
		WithBilling:    intent.WithBilling,
		ConvertedBy:    actorID,
		ConvertedAt:    at,
	})
	if err != nil {
		log.Warn("could not publish lead.converted", "error", err)
	}
}

func (uc *ConvertLeadUseCase) provisionRequest(lead *entity.Lead, plan entity.PlanTier, adminEmail string, input ConvertLeadInput) ProvisionRequest {
	name := strings.TrimSpace(input.OrganizationName)
	if name == "" {
		name = lead.InstitutName
	}
	req := ProvisionRequest{
		Profile: entity.InstituteProfile{
			Name:         name,
			ContactName:  lead.ContactName,
			Email:        lead.Email,
			Phone:        lead.Phone,
			Address:      lead.Address,
			Website:      lead.Website,
			AdminEmail:   adminEmail,
			SourceLeadID: lead.ID,
		},
		Plan: plan,
	}
	if b := input.Billing; b != nil {
		siret := whitespace.ReplaceAllString(b.SIRET, "")
		req.Profile.SIRET = siret
		req.Profile.LegalName = strings.TrimSpace(b.LegalName)
		req.Mandate = &entity.BillingMandate{
			IBAN:          normalizeIBAN(b.IBAN),
			BIC:           normalizeBIC(b.BIC),
			SIRET:         siret,
			AccountHolder: strings.TrimSpace(b.AccountHolder),
			Consent:       b.MandateConsent,
			ConsentAt:     uc.now(),
		}
	}
	return req
}

func (uc *ConvertLeadUseCase) now() time.Time { return uc.Now().UTC() }
