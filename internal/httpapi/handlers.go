package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ytchat/internal/domain"
	"ytchat/internal/logger"
	"ytchat/internal/service"
	"ytchat/internal/session"
	"ytchat/internal/videoref"
)

// Sessions is the registry surface the handlers need.
type Sessions interface {
	EnsureSession(ctx context.Context, videoID string) (*session.Session, bool, error)
	Ask(ctx context.Context, videoID, question string) (service.Answer, error)
	Stats() session.Stats
}

type VideoRequest struct {
	VideoURL string `json:"video_url"`
}

type QuestionRequest struct {
	VideoURL string `json:"video_url"`
	Question string `json:"question"`
}

type Handler struct {
	sessions Sessions
	log      *logger.Logger
}

func NewHandler(sessions Sessions, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{sessions: sessions, log: log}
}

func (h *Handler) Root(c *gin.Context) {
	respondOK(c, gin.H{"message": "YouTube Chatbot API is running"})
}

func (h *Handler) Health(c *gin.Context) {
	st := h.sessions.Stats()
	respondOK(c, gin.H{
		"status":   "healthy",
		"message":  "API is running",
		"sessions": st.Sessions,
		"stats":    st,
	})
}

func (h *Handler) ProcessVideo(c *gin.Context) {
	var req VideoRequest
	if err := bind(c, &req); err != nil {
		respondError(c, err, "Error processing video")
		return
	}
	videoID, err := videoref.Extract(req.VideoURL)
	if err != nil {
		respondError(c, err, "Error processing video")
		return
	}

	s, created, err := h.sessions.EnsureSession(c.Request.Context(), videoID)
	if err != nil {
		respondError(c, err, "Error processing video")
		return
	}
	resp := ChatResponse{
		Response: "Video already processed and ready for questions",
		Success:  true,
		Message:  "Video ready",
		VideoID:  videoID,
		Degraded: s.DegradedPassages > 0,
	}
	if created {
		resp.Response = "Video processed successfully! You can now ask questions about it."
		resp.Message = "Video processed"
	}
	respondOK(c, resp)
}

func (h *Handler) AskQuestion(c *gin.Context) {
	var req QuestionRequest
	if err := bind(c, &req); err != nil {
		respondError(c, err, "Error answering question")
		return
	}
	videoID, err := videoref.Extract(req.VideoURL)
	if err != nil {
		respondError(c, err, "Error answering question")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(c, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidRequest), "Error answering question")
		return
	}

	ans, err := h.sessions.Ask(c.Request.Context(), videoID, req.Question)
	if err != nil {
		respondError(c, err, "Error answering question")
		return
	}
	respondOK(c, ChatResponse{
		Response: ans.Text,
		Success:  true,
		VideoID:  videoID,
		Degraded: ans.Degraded,
	})
}

func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}
