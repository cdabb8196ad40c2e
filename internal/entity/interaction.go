package entity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InteractionType string

const (
	InteractionEmail    InteractionType = "EMAIL"
	InteractionPhone    InteractionType = "PHONE"
	InteractionMeeting  InteractionType = "MEETING"
	InteractionDemo     InteractionType = "DEMO"
	InteractionProposal InteractionType = "PROPOSAL"
	InteractionNote     InteractionType = "NOTE"
)

func ParseInteractionType(s string) (InteractionType, error) {
	t := InteractionType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case InteractionEmail, InteractionPhone, InteractionMeeting, InteractionDemo, InteractionProposal, InteractionNote:
		return t, nil
	}
	return "", ErrInvalidInteraction
}

// Interaction is an append-only contact event of a lead.
type Interaction struct {
	ID             string          `json:"id"`
	LeadID         string          `json:"lead_id"`
	Type           InteractionType `json:"type"`
	Subject        string          `json:"subject,omitempty"`
	Content        string          `json:"content"`
	NextAction     string          `json:"next_action,omitempty"`
	NextActionDate *time.Time      `json:"next_action_date,omitempty"`
	AuthorID       string          `json:"author_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type InteractionInput struct {
	LeadID         string
	Type           InteractionType
	Subject        string
	Content        string
	NextAction     string
	NextActionDate *time.Time
	AuthorID       string
}

func NewInteraction(in InteractionInput, now time.Time) (*Interaction, error) {
	if in.LeadID == "" {
		return nil, newError(ErrInvalid, "lead id is required")
	}
	if _, err := ParseInteractionType(string(in.Type)); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, newError(ErrInvalid, "content is required")
	}

	return &Interaction{
		ID:             uuid.New().String(),
		LeadID:         in.LeadID,
		Type:           in.Type,
		Subject:        strings.TrimSpace(in.Subject),
		Content:        content,
		NextAction:     strings.TrimSpace(in.NextAction),
		NextActionDate: in.NextActionDate,
		AuthorID:       in.AuthorID,
		CreatedAt:      now,
	}, nil
}

type InteractionRepository interface {
	// Append stores the interaction and, in the same write, sets the lead's
	// last contact date (and next follow-up when NextActionDate is set).
	// Returns ErrLeadNotFound when the lead does not exist.
	Append(ctx context.Context, in *Interaction) error
	// ListByLead returns the lead's interactions newest first.
	ListByLead(ctx context.Context, leadID string) ([]*Interaction, error)
}
