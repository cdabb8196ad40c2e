package billing

// CustomerInput identifies the debtor of the SEPA mandate.
type CustomerInput struct {
	Name       string
	Email      string
	Phone      string
	SIRET      string
	Street     string
	PostalCode string
	City       string
	Country    string
	Reference  string // our organization id
}

type MandateInput struct {
	CustomerID    string
	IBAN          string
	BIC           string
	AccountHolder string
	SignedAt      string // RFC3339, moment of the explicit consent
}

type SubscriptionInput struct {
	CustomerID  string
	MandateID   string
	PlanCode    string
	AmountCents int
	Description string
}

// --- payloads sent to the mandate API ---

type createCustomerRequest struct {
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone,omitempty"`
	CompanyID    string        `json:"company_id,omitempty"`
	Address      addressFields `json:"address"`
	ExternalRef  string        `json:"external_reference"`
	Notification bool          `json:"notification_enabled"`
}

type addressFields struct {
	Line1      string `json:"line1,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country"`
}

type createMandateRequest struct {
	Customer      string `json:"customer"`
	Scheme        string `json:"scheme"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
	AccountHolder string `json:"account_holder_name"`
	SignedAt      string `json:"signed_at"`
}

type createSubscriptionRequest struct {
	Customer    string `json:"customer"`
	Mandate     string `json:"mandate"`
	Plan        string `json:"plan"`
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
	Description string `json:"description"`
}

// --- responses ---

type resourceResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
