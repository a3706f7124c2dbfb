package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/matzehuels/storyflow/pkg/errors"
	"github.com/matzehuels/storyflow/pkg/observability"
)

type errorBody struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// statusFor maps error codes to HTTP status codes.
func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidStory,
		apperrors.ErrCodeInvalidFormat, apperrors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeBlocked:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// toBody converts any error into the wire form. Uncoded errors become
// INTERNAL_ERROR; their text is not exposed.
func toBody(err error) errorBody {
	code := apperrors.GetCode(err)
	switch {
	case code != "":
		return errorBody{Code: code, Message: apperrors.UserMessage(err)}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errorBody{Code: apperrors.ErrCodeInternal, Message: "request cancelled"}
	default:
		return errorBody{Code: apperrors.ErrCodeInternal, Message: "internal error"}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := toBody(err)
	status := statusFor(body.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", requestID(r.Context()), "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", body.Code, "error", err)
	}
	observability.HTTP().OnError(r.Context(), r.Method, routePattern(r), string(body.Code))
	writeJSON(w, status, errorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
