package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"liveacademy/internal/chat"
	"liveacademy/internal/logging"
	"liveacademy/internal/participant"
	"liveacademy/internal/session"
	"liveacademy/internal/webhook"
	"liveacademy/internal/zoom"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// Request errors raised by the handlers themselves
var (
	ErrInvalidJSON       = errors.New("invalid JSON body")
	ErrInvalidIndex      = errors.New("message index must be an integer")
	ErrSessionIDRequired = errors.New("sessionId is required")
	ErrSignatureInput    = errors.New("meetingNumber and role are required")
)

// ErrorResponse is the body of every non-auth failure
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// messageResponse is the body shape of auth failures and simple acknowledgements
type messageResponse struct {
	Message string `json:"message"`
}

// FUNCTIONAL DISCOVERY: Consistent JSON encoding for every response
func sendJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Debug().Err(err).Msg("failed to write response body")
	}
}

// FUNCTIONAL DISCOVERY: Consistent error response format
func sendError(w http.ResponseWriter, message string, code int) {
	sendJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// statusFor maps domain errors onto HTTP status codes
// ARCHITECTURAL DISCOVERY: The only place where error taxonomy meets HTTP;
// handlers never compare error strings
func statusFor(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrSessionNotFound),
		errors.Is(err, session.ErrCourseNotFound),
		errors.Is(err, interfaces.ErrChatNotFound),
		errors.Is(err, chat.ErrMessageNotFound):
		return http.StatusNotFound

	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrInvalidStatus),
		errors.Is(err, session.ErrCourseRequired),
		errors.Is(err, session.ErrSessionRequired),
		errors.Is(err, participant.ErrSessionRequired),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrInvalidSender),
		errors.Is(err, chat.ErrUserRequired),
		errors.Is(err, webhook.ErrMalformedEnvelope),
		errors.Is(err, zoom.ErrInvalidRole),
		errors.Is(err, ErrInvalidJSON),
		errors.Is(err, ErrInvalidIndex),
		errors.Is(err, ErrSessionIDRequired),
		errors.Is(err, ErrSignatureInput):
		return http.StatusBadRequest

	case errors.Is(err, chat.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, zoom.ErrMissingCredentials), errors.Is(err, zoom.ErrMissingSigningKey):
		return http.StatusInternalServerError

	case errors.Is(err, zoom.ErrTokenRequest),
		errors.Is(err, zoom.ErrProviderRequest),
		errors.Is(err, zoom.ErrProviderUnavailable):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// sendDomainError writes err with its mapped status. Internal failures are
// logged and hidden behind fallback.
func sendDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := statusFor(err)
	if code == http.StatusInternalServerError && zoom.Kind(err) != zoom.KindConfiguration {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
		sendError(w, fallback, code)
		return
	}
	sendError(w, err.Error(), code)
}
