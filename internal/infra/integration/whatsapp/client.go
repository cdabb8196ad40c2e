package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/config"
)

// ErrNotConfigured is returned by SendMessage when no token or phone id is set.
var ErrNotConfigured = errors.New("whatsapp: not configured")

// Client sends template messages through the WhatsApp Cloud API.
type Client struct {
	accessToken string
	phoneID     string
	baseURL     string
	language    string
	httpClient  *http.Client
}

func NewClient(cfg config.WhatsApp) *Client {
	lang := cfg.Language
	if lang == "" {
		lang = "fr"
	}
	return &Client{
		accessToken: cfg.AccessToken,
		phoneID:     cfg.PhoneID,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		language:    lang,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether the client has credentials.
func (c *Client) Enabled() bool {
	return c.accessToken != "" && c.phoneID != ""
}

// SendMessage sends a template message and returns the message id.
func (c *Client) SendMessage(ctx context.Context, input SendMessageInput) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	params := make([]templateParameter, 0, len(input.Parameters))
	for _, p := range input.Parameters {
		params = append(params, templateParameter{Type: "text", Text: p})
	}
	payload := messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               NormalizePhone(input.PhoneNumber),
		Type:             "template",
		Template: templatePayload{
			Name:       input.TemplateName,
			Language:   templateLanguage{Code: c.language},
			Components: []templateComponent{{Type: "body", Parameters: params}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result SendMessageResponse
	_ = json.Unmarshal(respBody, &result)
	if result.Error != nil {
		return "", fmt.Errorf("whatsapp: %s (code %d)", result.Error.Message, result.Error.Code)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("whatsapp: api status %d: %s", resp.StatusCode, string(respBody))
	}
	if len(result.Messages) == 0 {
		return "", nil
	}
	return result.Messages[0].ID, nil
}

// NormalizePhone strips everything but digits. A French national number
// ("06...") gets the 33 country code.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 && strings.HasPrefix(digits, "0") {
		return "33" + digits[1:]
	}
	return digits
}
