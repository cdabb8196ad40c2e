package memory

import (
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

// Stored values never escape: everything is copied on the way in and out.

func timePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneLead(l *entity.Lead) *entity.Lead {
	c := *l
	if l.Qualification != nil {
		q := *l.Qualification
		c.Qualification = &q
	}
	c.LastContactDate = timePtr(l.LastContactDate)
	c.NextFollowUpDate = timePtr(l.NextFollowUpDate)
	c.ConvertedAt = timePtr(l.ConvertedAt)
	return &c
}

func cloneInteraction(in *entity.Interaction) *entity.Interaction {
	c := *in
	c.NextActionDate = timePtr(in.NextActionDate)
	return &c
}

func cloneBooking(b *entity.DemoBooking) *entity.DemoBooking {
	c := *b
	c.CompletedAt = timePtr(b.CompletedAt)
	c.CancelledAt = timePtr(b.CancelledAt)
	return &c
}

func cloneIntent(i *entity.ConversionIntent) *entity.ConversionIntent {
	c := *i
	c.ProvisionedAt = timePtr(i.ProvisionedAt)
	c.LinkedAt = timePtr(i.LinkedAt)
	c.NotifiedAt = timePtr(i.NotifiedAt)
	return &c
}

func cloneCheckpoint(cp *entity.Checkpoint) *entity.Checkpoint {
	c := *cp
	c.Payload = append([]byte(nil), cp.Payload...)
	return &c
}
