package httpapi

import (
	"github.com/gin-gonic/gin"

	"ytchat/internal/logger"
)

type RouterConfig struct {
	Sessions        Sessions
	Log             *logger.Logger
	AllowOrigins    []string
	MaxRequestBytes int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		RequestID(),
		RequestLogger(cfg.Log),
		Recovery(cfg.Log),
		CORS(cfg.AllowOrigins),
		BodyLimit(cfg.MaxRequestBytes),
	)

	h := NewHandler(cfg.Sessions, cfg.Log)
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/process_video", h.ProcessVideo)
	r.POST("/ask_question", h.AskQuestion)
	return r
}
