package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/Kirky-X/xlink"
	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/response"
)

// GroupHandler exposes group management and broadcasts of the gateway
// device.
type GroupHandler struct {
	client *xlink.Client
}

func NewGroupHandler(client *xlink.Client) *GroupHandler {
	return &GroupHandler{client: client}
}

// groupID reads the {id} path value, writing the error response itself.
func groupID(w http.ResponseWriter, r *http.Request) (xlink.GroupID, bool) {
	id, err := xlink.ParseGroupID(r.PathValue("id"))
	if err != nil {
		respondClientError(w, err)
		return xlink.GroupID{}, false
	}
	return id, true
}

// Create godoc
// @Summary     Create a group
// @Description Creates a group owned by the gateway device and invites the listed members.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Param       request body request.CreateGroupRequest true "Group name and member device ids"
// @Success     201 {object} response.GroupResponse
// @Failure     400 {object} response.JSONResponse
// @Router      /groups [post]
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	members := make([]xlink.DeviceID, 0, len(req.Members))
	for _, s := range req.Members {
		id, err := xlink.ParseDeviceID(s)
		if err != nil {
			respondClientError(w, err)
			return
		}
		members = append(members, id)
	}

	g, err := h.client.CreateGroup(r.Context(), req.Name, members...)
	if err != nil {
		respondClientError(w, err)
		return
	}
	response.RespondJSON(w, http.StatusCreated, response.FromDomainGroup(g))
}

// List godoc
// @Summary     List groups
// @Tags        groups
// @Produce     json
// @Success     200 {object} response.GroupsResponse
// @Router      /groups [get]
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	payload := response.GroupsPayload{
		Items: response.FromDomainGroups(h.client.Groups()),
	}
	response.RespondJSON(w, http.StatusOK, payload)
}

// Get godoc
// @Summary     Show a group
// @Tags        groups
// @Produce     json
// @Param       id path string true "Group id (uuid)"
// @Success     200 {object} response.GroupResponse
// @Failure     404 {object} response.JSONResponse
// @Router      /groups/{id} [get]
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}
	g, err := h.client.Group(id)
	if err != nil {
		respondClientError(w, err)
		return
	}
	response.RespondJSON(w, http.StatusOK, response.FromDomainGroup(g))
}

// AddMember godoc
// @Summary     Add a group member
// @Tags        groups
// @Accept      json
// @Produce     json
// @Param       id      path string                   true "Group id (uuid)"
// @Param       request body request.AddMemberRequest true "Device to add"
// @Success     200 {object} response.GroupResponse
// @Failure     400 {object} response.JSONResponse
// @Failure     404 {object} response.JSONResponse
// @Router      /groups/{id}/members [post]
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}
	var req request.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	member, err := xlink.ParseDeviceID(req.DeviceID)
	if err != nil {
		respondClientError(w, err)
		return
	}

	if err := h.client.AddMember(r.Context(), id, member); err != nil {
		respondClientError(w, err)
		return
	}
	h.respondGroup(w, id)
}

// RemoveMember godoc
// @Summary     Remove a group member
// @Tags        groups
// @Produce     json
// @Param       id     path string true "Group id (uuid)"
// @Param       member path string true "Device id (uuid)"
// @Success     200 {object} response.GroupResponse
// @Failure     404 {object} response.JSONResponse
// @Router      /groups/{id}/members/{member} [delete]
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}
	member, err := xlink.ParseDeviceID(r.PathValue("member"))
	if err != nil {
		respondClientError(w, err)
		return
	}

	if err := h.client.RemoveMember(r.Context(), id, member); err != nil {
		respondClientError(w, err)
		return
	}
	h.respondGroup(w, id)
}

func (h *GroupHandler) respondGroup(w http.ResponseWriter, id xlink.GroupID) {
	g, err := h.client.Group(id)
	if err != nil {
		respondClientError(w, err)
		return
	}
	response.RespondJSON(w, http.StatusOK, response.FromDomainGroup(g))
}

// Broadcast godoc
// @Summary     Broadcast text to a group
// @Description Sends text to every other member. A partial failure answers 502; the per-member outcome stays available under /broadcasts/{id}.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Param       id      path string                  true "Group id (uuid)"
// @Param       request body request.SendTextRequest true "Text, priority and strategy"
// @Success     200 {object} response.BroadcastResponse
// @Failure     400 {object} response.JSONResponse
// @Failure     404 {object} response.JSONResponse
// @Failure     502 {object} response.JSONResponse
// @Router      /groups/{id}/broadcast [post]
func (h *GroupHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}
	var req request.SendTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	priority, err := xlink.ParsePriority(req.Priority)
	if err != nil {
		respondClientError(w, err)
		return
	}
	strategy, err := xlink.ParseStrategy(req.Strategy)
	if err != nil {
		respondClientError(w, err)
		return
	}

	res, err := h.client.Broadcast(r.Context(), id, req.Text, strategy, priority)
	if err != nil {
		respondClientError(w, err)
		return
	}
	response.RespondJSON(w, http.StatusOK, response.FromBroadcastResult(res))
}

// BroadcastResult godoc
// @Summary     Show a broadcast outcome
// @Tags        groups
// @Produce     json
// @Param       id path string true "Broadcast message id (uuid)"
// @Success     200 {object} response.BroadcastResponse
// @Failure     404 {object} response.JSONResponse
// @Router      /broadcasts/{id} [get]
func (h *GroupHandler) BroadcastResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid broadcast id")
		return
	}
	res, ok := h.client.BroadcastResult(id)
	if !ok {
		response.RespondError(w, http.StatusNotFound, "broadcast not found")
		return
	}
	response.RespondJSON(w, http.StatusOK, response.FromBroadcastResult(res))
}
