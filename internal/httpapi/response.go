package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ytchat/internal/domain"
)

// ChatResponse is the body of every /process_video and /ask_question reply.
type ChatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	VideoID  string `json:"video_id,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

// ErrorResponse keeps the ChatResponse shape so clients can decode either.
// Detail mirrors Message for clients that read the older field.
type ErrorResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Detail   string `json:"detail"`
	Code     string `json:"code"`
}

const (
	CodeInvalidRequest        = "invalid_request"
	CodeInvalidVideoReference = "invalid_video_reference"
	CodeCaptionsDisabled      = "captions_disabled"
	CodeVideoNotFound         = "video_not_found"
	CodeTranscriptUnavailable = "transcript_unavailable"
	CodeChatProvider          = "chat_provider_error"
	CodeRequestTooLarge       = "request_too_large"
	CodeInternal              = "internal_error"
)

type apiError struct {
	status  int
	code    string
	message string
}

// classify maps the error taxonomy onto HTTP statuses. op prefixes
// messages for failures that have no fixed wording.
func classify(err error, op string) apiError {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return apiError{http.StatusRequestEntityTooLarge, CodeRequestTooLarge, "Request body too large"}
	case errors.Is(err, domain.ErrInvalidRequest):
		return apiError{http.StatusBadRequest, CodeInvalidRequest, err.Error()}
	case errors.Is(err, domain.ErrInvalidVideoReference):
		return apiError{http.StatusBadRequest, CodeInvalidVideoReference, "Invalid YouTube URL"}
	case errors.Is(err, domain.ErrCaptionsDisabled):
		return apiError{http.StatusNotFound, CodeCaptionsDisabled, "No captions available for this video"}
	case errors.Is(err, domain.ErrVideoNotFound):
		return apiError{http.StatusNotFound, CodeVideoNotFound, "Video not found"}
	case errors.Is(err, domain.ErrEmptyTranscript):
		return apiError{http.StatusNotFound, CodeCaptionsDisabled, "The transcript for this video is empty"}
	case errors.Is(err, domain.ErrTranscriptUnavailable):
		return apiError{http.StatusInternalServerError, CodeTranscriptUnavailable, "Error fetching transcript: " + err.Error()}
	case errors.Is(err, domain.ErrChatProvider):
		return apiError{http.StatusBadGateway, CodeChatProvider, op + ": the language model request failed"}
	default:
		return apiError{http.StatusInternalServerError, CodeInternal, op + ": " + err.Error()}
	}
}

func respondError(c *gin.Context, err error, op string) {
	e := classify(err, op)
	_ = c.Error(err)
	c.AbortWithStatusJSON(e.status, ErrorResponse{
		Message: e.message,
		Detail:  e.message,
		Code:    e.code,
	})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
