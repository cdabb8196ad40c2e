// Package app wires configuration, storage, integrations and use cases into
// one object shared by the API server and pipelinectl.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xavierca1/institut-pipeline/internal/config"
	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/cache"
	"github.com/xavierca1/institut-pipeline/internal/infra/database"
	"github.com/xavierca1/institut-pipeline/internal/infra/integration/billing"
	"github.com/xavierca1/institut-pipeline/internal/infra/integration/whatsapp"
	"github.com/xavierca1/institut-pipeline/internal/infra/mail"
	"github.com/xavierca1/institut-pipeline/internal/infra/memory"
	"github.com/xavierca1/institut-pipeline/internal/infra/queue"
	"github.com/xavierca1/institut-pipeline/internal/usecase"
)

type Repositories struct {
	Leads         entity.LeadRepository
	Interactions  entity.InteractionRepository
	Demos         entity.DemoRepository
	Organizations entity.OrganizationRepository
	Plans         entity.PlanRepository
	Conversions   entity.ConversionRepository
	Checkpoints   entity.CheckpointRepository
}

type App struct {
	Config *config.Config
	Logger *slog.Logger

	// DB is nil with the memory driver; Broker is nil without rabbitmq.url.
	DB     *sql.DB
	Broker *queue.RabbitMQ

	Repos       Repositories
	Plans       *cache.PlanRepository
	BillingMode string

	Leads        *usecase.LeadUseCase
	Interactions *usecase.InteractionUseCase
	Demos        *usecase.DemoScheduler
	Provisioner  *usecase.ProvisionTenantUseCase
	Convert      *usecase.ConvertLeadUseCase
	Reconcile    *usecase.ReconcileConversionsUseCase
	Checkpoints  *usecase.CheckpointUseCase

	// OnboardingWorker is set in queue mode only.
	OnboardingWorker *queue.Worker

	closers []func() error
}

// New builds the application. Close must be called even when New fails
// halfway; it releases whatever was opened.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	if err := a.openStorage(ctx); err != nil {
		return a, err
	}

	plans, err := cache.NewPlanRepository(a.Repos.Plans, cfg.Plans.CacheTTL, cfg.Plans.CacheMaxCost)
	if err != nil {
		return a, err
	}
	a.Plans = plans
	a.closers = append(a.closers, func() error { plans.Close(); return nil })

	var gateway usecase.BillingGateway
	if cfg.Billing.BaseURL != "" {
		gateway = billing.NewClient(cfg.Billing.APIKey, cfg.Billing.BaseURL, cfg.Billing.Timeout)
		a.BillingMode = "configured"
	} else {
		gateway = billing.Sandbox{}
		a.BillingMode = "sandbox"
		log.Warn("billing runs in sandbox mode: mandates are not captured")
	}

	notifier, events, err := a.openMessaging()
	if err != nil {
		return a, err
	}

	a.Leads = usecase.NewLeadUseCase(a.Repos.Leads, log)
	a.Interactions = usecase.NewInteractionUseCase(a.Repos.Leads, a.Repos.Interactions, a.Repos.Demos, log)
	a.Demos = usecase.NewDemoScheduler(a.Repos.Demos, a.Repos.Leads, log)
	a.Provisioner = usecase.NewProvisionTenantUseCase(a.Repos.Organizations, plans, gateway, log)
	a.Convert = usecase.NewConvertLeadUseCase(
		a.Repos.Leads, a.Repos.Conversions, a.Repos.Organizations, a.Provisioner, notifier, events,
		cfg.Onboarding.LoginURLTemplate, log,
	)
	if cfg.Sweep.Threshold > 0 {
		a.Convert.StaleAfter = cfg.Sweep.Threshold
	}
	a.Reconcile = usecase.NewReconcileConversionsUseCase(a.Repos.Conversions, cfg.Sweep.Threshold, log)
	a.Checkpoints = usecase.NewCheckpointUseCase(a.Repos.Checkpoints, log)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.Config.Storage.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		a.Repos = Repositories{
			Leads:         store.Leads(),
			Interactions:  store.Interactions(),
			Demos:         store.Demos(),
			Organizations: store.Organizations(),
			Plans:         store.Plans(),
			Conversions:   store.Conversions(),
			Checkpoints:   store.Checkpoints(),
		}
		a.Logger.Warn("using in-memory storage: data is lost on restart")
		return nil

	case config.DriverPostgres:
		db, err := database.NewDBConnection(ctx, a.Config.Postgres)
		if err != nil {
			return err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)

		if a.Config.Postgres.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
		}
		a.Repos = Repositories{
			Leads:         database.NewLeadRepository(db),
			Interactions:  database.NewInteractionRepository(db),
			Demos:         database.NewDemoRepository(db),
			Organizations: database.NewOrganizationRepository(db),
			Plans:         database.NewPlanRepository(db),
			Conversions:   database.NewConversionRepository(db),
			Checkpoints:   database.NewCheckpointRepository(db),
		}
		return nil
	}
	return fmt.Errorf("storage driver %q is not supported", a.Config.Storage.Driver)
}

// openMessaging picks the onboarding notifier and the event publisher.
// Direct mode sends inline; queue mode publishes jobs for OnboardingWorker.
func (a *App) openMessaging() (usecase.OnboardingNotifier, usecase.EventPublisher, error) {
	cfg := a.Config

	var wa *mail.WhatsAppSender
	if client := whatsapp.NewClient(cfg.WhatsApp); client.Enabled() {
		wa = mail.NewWhatsAppSender(client, cfg.WhatsApp.TemplateName, a.Logger)
	}
	dispatcher := mail.NewOnboardingDispatcher(mail.NewEmailSender(cfg.Mail, cfg.Onboarding.SupportEmail), wa, a.Logger)

	if cfg.RabbitMQ.URL == "" {
		return dispatcher, queue.NopPublisher{}, nil
	}

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, nil, err
	}
	a.Broker = broker
	a.closers = append(a.closers, broker.Close)
	producer := queue.NewProducer(broker.Ch)

	if cfg.Notifications.Mode == config.NotifyQueue {
		a.OnboardingWorker = queue.NewWorker(broker.Ch, dispatcher, a.Logger)
		return producer, producer, nil
	}
	return dispatcher, producer, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
