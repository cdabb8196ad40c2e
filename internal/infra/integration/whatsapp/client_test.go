package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/institut-pipeline/internal/config"
)

func TestSendMessage(t *testing.T) {
	var got messageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PHONE/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsApp{AccessToken: "tok", PhoneID: "PHONE", BaseURL: srv.URL + "/"})
	id, err := c.SendMessage(context.Background(), SendMessageInput{
		PhoneNumber:  "06 12 34 56 78",
		TemplateName: "bienvenue_institut",
		Parameters:   []string{"Camille", "https://x.institut.app"},
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "33612345678", got.To)
	assert.Equal(t, "fr", got.Template.Language.Code)
	require.Len(t, got.Template.Components, 1)
	assert.Equal(t, "Camille", got.Template.Components[0].Parameters[0].Text)
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"template not approved","code":132001}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsApp{AccessToken: "tok", PhoneID: "P", BaseURL: srv.URL})
	_, err := c.SendMessage(context.Background(), SendMessageInput{PhoneNumber: "33600000000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not approved")
}

func TestSendMessageNotConfigured(t *testing.T) {
	_, err := NewClient(config.WhatsApp{}).SendMessage(context.Background(), SendMessageInput{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "33612345678", NormalizePhone("+33 6 12 34 56 78"))
	assert.Equal(t, "33612345678", NormalizePhone("06.12.34.56.78"))
	assert.Equal(t, "4915112345678", NormalizePhone("+49 151 12345678"))
}
