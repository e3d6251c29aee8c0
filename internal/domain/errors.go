package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidVideoReference = errors.New("invalid video reference")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrEmptyTranscript       = fmt.Errorf("%w: transcript is empty", ErrTranscriptUnavailable)
	ErrCaptionsDisabled      = fmt.Errorf("%w: captions are disabled for this video", ErrTranscriptUnavailable)
	ErrVideoNotFound         = fmt.Errorf("%w: video not found", ErrTranscriptUnavailable)
	ErrEmbeddingProvider     = errors.New("embedding provider failure")
	ErrChatProvider          = errors.New("chat provider failure")
	ErrUnsupportedRole       = errors.New("unsupported message role")
	ErrInvalidRequest        = errors.New("invalid request")
)

// HTTPError is a non-2xx answer from an upstream provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

// RateLimited reports whether the upstream asked us to slow down.
func (e *HTTPError) RateLimited() bool { return e != nil && e.StatusCode == 429 }
