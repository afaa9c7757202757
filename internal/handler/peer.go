package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Kirky-X/xlink"
	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/response"
)

// PeerHandler manages the gateway key, trusted peers and the audit trail.
type PeerHandler struct {
	client *xlink.Client
}

func NewPeerHandler(client *xlink.Client) *PeerHandler {
	return &PeerHandler{client: client}
}

// Identity godoc
// @Summary     Gateway public key
// @Description Returns the X25519 key peers pass to their own trust call.
// @Tags        peers
// @Produce     json
// @Success     200 {object} response.IdentityResponse
// @Router      /identity [get]
func (h *PeerHandler) Identity(w http.ResponseWriter, r *http.Request) {
	key, err := h.client.PublicKey()
	if err != nil {
		respondClientError(w, err)
		return
	}
	response.RespondJSON(w, http.StatusOK, response.IdentityPayload{
		DeviceID:    h.client.DeviceID().String(),
		PublicKey:   key.String(),
		Fingerprint: key.Fingerprint(),
	})
}

// Trust godoc
// @Summary     Trust a peer key
// @Description Agrees a session key with the peer. Text to the peer is sealed from then on.
// @Tags        peers
// @Accept      json
// @Produce     json
// @Param       id      path string                   true "Peer device id (uuid)"
// @Param       request body request.TrustPeerRequest true "Hex encoded X25519 key"
// @Success     204
// @Failure     400 {object} response.JSONResponse
// @Router      /peers/{id}/key [put]
func (h *PeerHandler) Trust(w http.ResponseWriter, r *http.Request) {
	peer, err := xlink.ParseDeviceID(r.PathValue("id"))
	if err != nil {
		respondClientError(w, err)
		return
	}
	var req request.TrustPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	key, err := xlink.ParsePublicKey(req.Key)
	if err != nil {
		respondClientError(w, err)
		return
	}
	if err := h.client.TrustPeer(peer, key); err != nil {
		respondClientError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Forget godoc
// @Summary     Forget a peer key
// @Tags        peers
// @Param       id path string true "Peer device id (uuid)"
// @Success     204
// @Failure     400 {object} response.JSONResponse
// @Router      /peers/{id}/key [delete]
func (h *PeerHandler) Forget(w http.ResponseWriter, r *http.Request) {
	peer, err := xlink.ParseDeviceID(r.PathValue("id"))
	if err != nil {
		respondClientError(w, err)
		return
	}
	if err := h.client.ForgetPeer(peer); err != nil {
		respondClientError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audit godoc
// @Summary     Export the audit trail
// @Description Returns administrative actions, newest first.
// @Tags        peers
// @Produce     json
// @Param       limit query int false "Entries to return (default 100)"
// @Success     200 {object} response.AuditResponse
// @Failure     400 {object} response.JSONResponse
// @Router      /audit [get]
func (h *PeerHandler) Audit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	response.RespondJSON(w, http.StatusOK, response.AuditPayload{Items: h.client.AuditLog(limit)})
}
