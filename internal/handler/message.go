package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Kirky-X/xlink"
	domain "github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/response"
)

// MessageHandler wires HTTP endpoints to direct sends and the background
// redelivery scheduler of the gateway client.
type MessageHandler struct {
	client *xlink.Client
}

// NewMessageHandler constructs a new MessageHandler.
func NewMessageHandler(client *xlink.Client) *MessageHandler {
	return &MessageHandler{client: client}
}

// SendText godoc
// @Summary     Send text to a device
// @Description Persists the message and transmits it over the best available channel. On a transport failure the message stays pending for redelivery.
// @Tags        messages
// @Accept      json
// @Produce     json
// @Param       id      path string                  true "Target device id (uuid)"
// @Param       request body request.SendTextRequest true "Text and optional priority"
// @Success     200 {object} response.SendResponse
// @Failure     400 {object} response.JSONResponse
// @Failure     429 {object} response.JSONResponse
// @Failure     503 {object} response.JSONResponse
// @Router      /devices/{id}/messages [post]
func (h *MessageHandler) SendText(w http.ResponseWriter, r *http.Request) {
	to, err := xlink.ParseDeviceID(r.PathValue("id"))
	if err != nil {
		respondClientError(w, err)
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

	id, err := h.client.Send(r.Context(), to, req.Text, priority)
	if err != nil {
		respondClientError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, response.SendPayload{MessageID: id.String()})
}

// StartStopScheduler godoc
// @Summary     Control scheduler
// @Description Starts or stops the background redelivery of pending messages.
// @Tags        scheduler
// @Accept      json
// @Produce     json
// @Param       request body request.SchedulerRequest true "Scheduler action (start|stop)"
// @Success     200 {object} response.SchedulerControlResponse
// @Failure     400 {object} response.JSONResponse
// @Router      /scheduler [post]
func (h *MessageHandler) StartStopScheduler(w http.ResponseWriter, r *http.Request) {
	var req request.SchedulerRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Action {
	case "start":
		if err := h.client.StartRetry(); err != nil {
			response.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		payload := response.SchedulerControlPayload{
			Message: "scheduler started",
		}
		response.RespondJSON(w, http.StatusOK, payload)
		return

	case "stop":
		if err := h.client.StopRetry(); err != nil {
			response.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		payload := response.SchedulerControlPayload{
			Message: "scheduler stopped",
		}
		response.RespondJSON(w, http.StatusOK, payload)
		return

	default:
		response.RespondError(w, http.StatusBadRequest, "action must be 'start' or 'stop'")
		return
	}
}

// GetSentMessages godoc
// @Summary     List sent messages
// @Description Returns a paginated list of delivered messages, newest first.
// @Tags        messages
// @Produce     json
// @Param       page  query int false "Page number"         default(1)
// @Param       limit query int false "Page size (max 100)" default(20)
// @Success     200 {object} response.SentMessagesResponse
// @Failure     400 {object} response.JSONResponse
// @Failure     500 {object} response.JSONResponse
// @Router      /messages/sent [get]
func (h *MessageHandler) GetSentMessages(w http.ResponseWriter, r *http.Request) {
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	page := 1
	limit := 20

	if v, err := strconv.Atoi(pageStr); err == nil && v > 0 {
		page = v
	}

	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	if _, ok := domain.Offset(page, limit); !ok {
		response.RespondError(w, http.StatusBadRequest, "page out of range")
		return
	}

	items, total, err := h.client.SentMessages(r.Context(), page, limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := response.SentMessagesPayload{
		Items: response.FromDomainMessages(items),
		Total: total,
		Page:  page,
		Limit: limit,
	}

	response.RespondJSON(w, http.StatusOK, payload)
}
