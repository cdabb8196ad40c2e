// Package billing talks to the SEPA direct-debit mandate API.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
)

// APIError is a non-2xx answer of the mandate API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("billing %s rejected (status %d): %s", e.Op, e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateCustomer registers the debtor and returns its id.
func (c *Client) CreateCustomer(ctx context.Context, input CustomerInput) (string, error) {
	country := input.Country
	if country == "" {
		country = "FR"
	}
	payload := createCustomerRequest{
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		CompanyID: input.SIRET,
		Address: addressFields{
			Line1:      input.Street,
			PostalCode: input.PostalCode,
			City:       input.City,
			Country:    country,
		},
		ExternalRef:  input.Reference,
		Notification: false, // welcome mail is ours
	}

	var out resourceResponse
	if err := c.do(ctx, "create customer", http.MethodPost, "/customers", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateMandate records the SEPA Core mandate signed by the customer.
func (c *Client) CreateMandate(ctx context.Context, input MandateInput) (string, error) {
	payload := createMandateRequest{
		Customer:      input.CustomerID,
		Scheme:        "sepa_core",
		IBAN:          input.IBAN,
		BIC:           input.BIC,
		AccountHolder: input.AccountHolder,
		SignedAt:      input.SignedAt,
	}

	var out resourceResponse
	if err := c.do(ctx, "create mandate", http.MethodPost, "/mandates", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// DeleteCustomer removes a debtor that never got a mandate.
func (c *Client) DeleteCustomer(ctx context.Context, customerID string) error {
	return c.do(ctx, "delete customer", http.MethodDelete, "/customers/"+customerID, nil, nil)
}

func (c *Client) RevokeMandate(ctx context.Context, mandateID string) error {
	return c.do(ctx, "revoke mandate", http.MethodPost, "/mandates/"+mandateID+"/actions/cancel", nil, nil)
}

// CreateSubscription starts the monthly collection on the mandate.
func (c *Client) CreateSubscription(ctx context.Context, input SubscriptionInput) (string, error) {
	payload := createSubscriptionRequest{
		Customer:    input.CustomerID,
		Mandate:     input.MandateID,
		Plan:        input.PlanCode,
		Amount:      input.AmountCents,
		Currency:    "EUR",
		Interval:    "monthly",
		Description: input.Description,
	}

	var out resourceResponse
	if err := c.do(ctx, "create subscription", http.MethodPost, "/subscriptions", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return c.do(ctx, "cancel subscription", http.MethodPost, "/subscriptions/"+subscriptionID+"/actions/cancel", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("billing %s: marshal: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("billing %s: %w", op, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		middleware.RecordIntegrationError("billing")
		return fmt.Errorf("billing %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		middleware.RecordIntegrationError("billing")
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("billing %s: decode: %w", op, err)
	}
	return nil
}

// setHeaders centralizes the mandatory headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "InstitutPipeline/1.0")
}
