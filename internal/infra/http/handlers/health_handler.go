package handlers

import (
	"context"
	"net/http"
	"time"
)

const (
	depHealthy       = "healthy"
	depNotConfigured = "not configured"
	pingTimeout      = 2 * time.Second
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BrokerState is satisfied by *amqp091.Connection.
type BrokerState interface {
	IsClosed() bool
}

// HealthHandler reports liveness of the storage and broker connections.
// BillingMode ("configured" or "sandbox") is informational and never degrades.
type HealthHandler struct {
	DB          Pinger
	Broker      BrokerState
	BillingMode string
	Version     string
	started     time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewHealthHandler accepts nil db or broker when the process runs without
// them (memory storage, direct notifications).
func NewHealthHandler(db Pinger, broker BrokerState, billingMode, version string) *HealthHandler {
	return &HealthHandler{
		DB:          db,
		Broker:      broker,
		BillingMode: billingMode,
		Version:     version,
		started:     time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := map[string]string{
		"database": depNotConfigured,
		"rabbitmq": depNotConfigured,
	}
	degraded := false

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := h.DB.PingContext(ctx)
		cancel()
		deps["database"] = depHealthy
		if err != nil {
			deps["database"] = "unhealthy: " + err.Error()
			degraded = true
		}
	}

	if h.Broker != nil {
		deps["rabbitmq"] = depHealthy
		if h.Broker.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
			degraded = true
		}
	}

	if h.BillingMode != "" {
		deps["billing"] = h.BillingMode
	}

	resp := HealthResponse{
		Status:       "healthy",
		Version:      h.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Dependencies: deps,
	}
	code := http.StatusOK
	if degraded {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
