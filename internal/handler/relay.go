package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Kirky-X/xlink/internal/channel/webhook"
	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/response"
)

// RelayHandler accepts messages pushed by a relay into the webhook channel.
// Another gateway can use this endpoint as its relay URL.
type RelayHandler struct {
	channel *webhook.Channel
	authKey string
}

// NewRelayHandler serves ch. A non-empty authKey must match the relay key
// header of every request.
func NewRelayHandler(ch *webhook.Channel, authKey string) *RelayHandler {
	return &RelayHandler{channel: ch, authKey: authKey}
}

func (h *RelayHandler) authorized(r *http.Request) bool {
	if h.authKey == "" {
		return true
	}
	got := r.Header.Get(webhook.AuthHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.authKey)) == 1
}

// Health godoc
// @Summary     Relay health
// @Description Answers the health check of a peer gateway that relays through this one.
// @Tags        relay
// @Produce     json
// @Success     200 {object} response.HealthResponse
// @Failure     401 {object} response.JSONResponse
// @Router      /relay/inbound [get]
func (h *RelayHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		response.RespondError(w, http.StatusUnauthorized, "invalid relay key")
		return
	}
	response.RespondJSON(w, http.StatusOK, response.HealthPayload{Status: "ok"})
}

// Inbound godoc
// @Summary     Relay inbound message
// @Description Hands a relayed message to the local client as if it arrived on the internet channel.
// @Tags        relay
// @Accept      json
// @Produce     json
// @Param       request body request.WebhookRequest true "Relay payload"
// @Success     200 {object} response.WebhookResponse
// @Failure     400 {object} response.JSONResponse
// @Failure     401 {object} response.JSONResponse
// @Router      /relay/inbound [post]
func (h *RelayHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		response.RespondError(w, http.StatusUnauthorized, "invalid relay key")
		return
	}

	var req request.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.channel.Receive(r.Context(), req); err != nil {
		if errors.Is(err, webhook.ErrBadPayload) {
			response.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondClientError(w, err)
		return
	}

	response.RespondRaw(w, http.StatusOK, response.WebhookResponse{
		Message:   "accepted",
		MessageID: req.ID,
	})
}
