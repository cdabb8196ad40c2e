package billing

import (
	"context"

	"github.com/google/uuid"
)

// Sandbox accepts every call and returns synthetic ids. Used when
// billing.sandbox is set and no mandate API is configured.
type Sandbox struct{}

func (Sandbox) CreateCustomer(context.Context, CustomerInput) (string, error) {
	return "sbx_cus_" + uuid.NewString(), nil
}

func (Sandbox) DeleteCustomer(context.Context, string) error { return nil }

func (Sandbox) CreateMandate(context.Context, MandateInput) (string, error) {
	return "sbx_md_" + uuid.NewString(), nil
}

func (Sandbox) RevokeMandate(context.Context, string) error { return nil }

func (Sandbox) CreateSubscription(context.Context, SubscriptionInput) (string, error) {
	return "sbx_sub_" + uuid.NewString(), nil
}

func (Sandbox) CancelSubscription(context.Context, string) error { return nil }
