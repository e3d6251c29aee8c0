package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ytchat/internal/domain"
	"ytchat/internal/logger"
)

// Gateway sends one message list per call to a chat provider. It does not
// retry; failures come back wrapped in domain.ErrChatProvider.
type Gateway struct {
	provider domain.ChatProvider
	timeout  time.Duration
	log      *logger.Logger
}

func NewGateway(provider domain.ChatProvider, timeout time.Duration, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{provider: provider, timeout: timeout, log: log.With("component", "chat", "provider", provider.Name())}
}

func (g *Gateway) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", domain.ErrChatProvider)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := g.provider.Complete(ctx, messages)
	if err != nil {
		g.log.Warn("chat completion failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		if errors.Is(err, domain.ErrChatProvider) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrChatProvider, err)
	}
	g.log.Debug("chat completion", "duration_ms", time.Since(start).Milliseconds(), "chars", len(text))
	return text, nil
}
