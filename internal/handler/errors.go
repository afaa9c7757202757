package handler

import (
	"net/http"

	"github.com/Kirky-X/xlink"
	"github.com/Kirky-X/xlink/internal/response"
)

// httpStatus picks the HTTP status for an xlink status code.
func httpStatus(s xlink.Status) int {
	switch s {
	case xlink.StatusOK:
		return http.StatusOK
	case xlink.StatusInvalidArgument, xlink.StatusInvalidEncoding,
		xlink.StatusInvalidIdentifier, xlink.StatusEmptyPayload:
		return http.StatusBadRequest
	case xlink.StatusPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case xlink.StatusGroupNotFound:
		return http.StatusNotFound
	case xlink.StatusRateLimited:
		return http.StatusTooManyRequests
	case xlink.StatusTimeout:
		return http.StatusGatewayTimeout
	case xlink.StatusHandleClosed, xlink.StatusUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// respondClientError writes err with its xlink status in the envelope.
func respondClientError(w http.ResponseWriter, err error) {
	s := xlink.StatusOf(err)
	response.RespondStatusError(w, httpStatus(s), int32(s), err.Error())
}
