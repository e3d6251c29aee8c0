package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"ytchat/internal/domain"
)

type funcProvider func(ctx context.Context, msgs []domain.Message) (string, error)

func (f funcProvider) Name() string { return "func" }
func (f funcProvider) Complete(ctx context.Context, msgs []domain.Message) (string, error) {
	return f(ctx, msgs)
}

func TestCompletePassesThrough(t *testing.T) {
	calls := 0
	g := NewGateway(funcProvider(func(_ context.Context, msgs []domain.Message) (string, error) {
		calls++
		if len(msgs) != 1 || msgs[0].Role != domain.RoleUser {
			t.Fatalf("msgs=%+v", msgs)
		}
		return "fixed answer", nil
	}), time.Second, nil)
	got, err := g.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	if err != nil || got != "fixed answer" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestCompleteWrapsFailureWithoutRetry(t *testing.T) {
	calls := 0
	g := NewGateway(funcProvider(func(context.Context, []domain.Message) (string, error) {
		calls++
		return "", &domain.HTTPError{StatusCode: 429}
	}), 0, nil)
	_, err := g.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	if !errors.Is(err, domain.ErrChatProvider) {
		t.Fatalf("err=%v", err)
	}
	var herr *domain.HTTPError
	if !errors.As(err, &herr) || !herr.RateLimited() {
		t.Fatalf("rate limit not distinguishable: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestCompleteTimeoutIsProviderFailure(t *testing.T) {
	g := NewGateway(funcProvider(func(ctx context.Context, _ []domain.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), 10*time.Millisecond, nil)
	_, err := g.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	if !errors.Is(err, domain.ErrChatProvider) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
}

func TestCompleteRejectsEmpty(t *testing.T) {
	g := NewGateway(funcProvider(func(context.Context, []domain.Message) (string, error) {
		t.Fatal("provider should not be called")
		return "", nil
	}), 0, nil)
	if _, err := g.Complete(context.Background(), nil); !errors.Is(err, domain.ErrChatProvider) {
		t.Fatalf("err=%v", err)
	}
}
