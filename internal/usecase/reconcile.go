package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

// ReconcileConversionsUseCase finds conversion intents that never reached a
// final state. It reports them and repairs nothing: recovery is the
// operator's call (resume, or clean up the orphaned tenant).
type ReconcileConversionsUseCase struct {
	Conversions entity.ConversionRepository
	Threshold   time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewReconcileConversionsUseCase(conversions entity.ConversionRepository, threshold time.Duration, log *slog.Logger) *ReconcileConversionsUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ReconcileConversionsUseCase{Conversions: conversions, Threshold: threshold, Logger: log, Now: time.Now}
}

// FindStuck lists PENDING or PROVISIONED intents idle for longer than the
// threshold.
func (uc *ReconcileConversionsUseCase) FindStuck(ctx context.Context) ([]*entity.ConversionIntent, error) {
	cutoff := uc.Now().UTC().Add(-uc.Threshold)
	return uc.Conversions.ListStuck(ctx, cutoff)
}

// Sweep is FindStuck plus one log line per stuck intent.
func (uc *ReconcileConversionsUseCase) Sweep(ctx context.Context) ([]*entity.ConversionIntent, error) {
	stuck, err := uc.FindStuck(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.Now().UTC()
	for _, in := range stuck {
		attrs := []any{
			"intent_id", in.ID,
			"lead_id", in.LeadID,
			"state", in.State,
			"idle", now.Sub(in.UpdatedAt).Round(time.Second).String(),
		}
		switch in.State {
		case entity.IntentProvisioned:
			uc.Logger.Error("orphaned tenant: provisioned but never linked",
				append(attrs, "organization_id", in.OrganizationID, "last_error", in.LastError)...)
		case entity.IntentPending:
			uc.Logger.Warn("conversion intent stuck before provisioning", attrs...)
		case entity.IntentLinked, entity.IntentFailed:
		}
	}
	return stuck, nil
}
