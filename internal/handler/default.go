package handler

import (
	"net/http"

	"github.com/Kirky-X/xlink"
	"github.com/Kirky-X/xlink/internal/response"
)

// HomeHandler serves basic root and health endpoints.
type HomeHandler struct {
	client *xlink.Client
}

// NewHomeHandler returns a new HomeHandler.
func NewHomeHandler(client *xlink.Client) *HomeHandler { return &HomeHandler{client: client} }

// Index godoc
// @Summary     Welcome endpoint
// @Description Simple root endpoint that returns a welcome message.
// @Tags        home
// @Produce     json
// @Success     200 {object} response.WelcomeResponse
// @Router      / [get]
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	payload := response.WelcomePayload{
		Message: "Welcome to the xlink gateway",
	}

	response.RespondJSON(w, http.StatusOK, payload)
}

// Health godoc
// @Summary     Health check
// @Description Reports the gateway device and whether pending redelivery runs.
// @Tags        home
// @Produce     json
// @Success     200 {object} response.HealthResponse
// @Router      /health [get]
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	payload := response.HealthPayload{
		Status:       "ok",
		DeviceID:     h.client.DeviceID().String(),
		RetryRunning: h.client.RetryRunning(),
	}

	response.RespondJSON(w, http.StatusOK, payload)
}

// Stats godoc
// @Summary     Client counters
// @Description Returns a JSON snapshot of the client counters. Prometheus scrapes /metrics instead.
// @Tags        home
// @Produce     json
// @Success     200 {object} response.MetricsResponse
// @Router      /stats [get]
func (h *HomeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.client.Metrics())
}
