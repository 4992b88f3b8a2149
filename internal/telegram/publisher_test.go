package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// mockBotClient - мок для тестирования Publisher
type mockBotClient struct {
	sendMessageFunc func(ctx context.Context, chatID string, text string, parseMode string) (int64, error)
	sendReplyFunc   func(ctx context.Context, chatID string, text string, parseMode string, replyTo int64) (int64, error)
	getUpdatesFunc  func(ctx context.Context, offset int64, timeout int) ([]Update, error)
	sendCalls       int
	replyCalls      int
}

func (m *mockBotClient) SendMessage(ctx context.Context, chatID string, text string, parseMode string) (int64, error) {
	m.sendCalls++
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, chatID, text, parseMode)
	}
	return 1, nil
}

func (m *mockBotClient) SendReply(ctx context.Context, chatID string, text string, parseMode string, replyTo int64) (int64, error) {
	m.replyCalls++
	if m.sendReplyFunc != nil {
		return m.sendReplyFunc(ctx, chatID, text, parseMode, replyTo)
	}
	return 1, nil
}

func (m *mockBotClient) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	if m.getUpdatesFunc != nil {
		return m.getUpdatesFunc(ctx, offset, timeout)
	}
	return nil, nil
}

func newTestPublisher(client BotClient) *Publisher {
	logger := logrus.New()
	logger.SetOutput(discard{})
	p := NewPublisher(client, "@channel", "HTML", logger)
	p.delay = time.Millisecond
	return p
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestPublisher_Publish(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		mock := &mockBotClient{
			sendMessageFunc: func(ctx context.Context, chatID, text, parseMode string) (int64, error) {
				if chatID != "@channel" {
					t.Errorf("chatID = %q", chatID)
				}
				if parseMode != "HTML" {
					t.Errorf("parseMode = %q", parseMode)
				}
				return 42, nil
			},
		}
		pub := newTestPublisher(mock)

		msgID, attempts, err := pub.Publish(context.Background(), "текст")
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if msgID != 42 {
			t.Errorf("message id = %d, want 42", msgID)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		calls := 0
		mock := &mockBotClient{
			sendMessageFunc: func(ctx context.Context, chatID, text, parseMode string) (int64, error) {
				calls++
				if calls < 3 {
					return 0, errors.New("network timeout")
				}
				return 7, nil
			},
		}
		pub := newTestPublisher(mock)

		msgID, attempts, err := pub.Publish(context.Background(), "текст")
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if msgID != 7 || attempts != 3 {
			t.Errorf("got id=%d attempts=%d, want id=7 attempts=3", msgID, attempts)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		mock := &mockBotClient{
			sendMessageFunc: func(ctx context.Context, chatID, text, parseMode string) (int64, error) {
				return 0, errors.New("network timeout")
			},
		}
		pub := newTestPublisher(mock)

		_, attempts, err := pub.Publish(context.Background(), "текст")
		if err == nil {
			t.Fatal("expected error after exhausted retries")
		}
		if attempts != retryAttempts {
			t.Errorf("attempts = %d, want %d", attempts, retryAttempts)
		}
		if mock.sendCalls != retryAttempts {
			t.Errorf("sendCalls = %d, want %d", mock.sendCalls, retryAttempts)
		}
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		mock := &mockBotClient{
			sendMessageFunc: func(ctx context.Context, chatID, text, parseMode string) (int64, error) {
				return 0, errors.New("Bad Request: chat not found")
			},
		}
		pub := newTestPublisher(mock)

		_, attempts, err := pub.Publish(context.Background(), "текст")
		if err == nil {
			t.Fatal("expected error")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
		if mock.sendCalls != 1 {
			t.Errorf("sendCalls = %d, want 1", mock.sendCalls)
		}
	})

	t.Run("context cancellation aborts retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		mock := &mockBotClient{
			sendMessageFunc: func(ctx context.Context, chatID, text, parseMode string) (int64, error) {
				cancel()
				return 0, errors.New("network timeout")
			},
		}
		pub := newTestPublisher(mock)
		pub.delay = time.Second

		_, _, err := pub.Publish(ctx, "текст")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestPublisher_PublishReply(t *testing.T) {
	mock := &mockBotClient{
		sendReplyFunc: func(ctx context.Context, chatID, text, parseMode string, replyTo int64) (int64, error) {
			if replyTo != 99 {
				t.Errorf("replyTo = %d, want 99", replyTo)
			}
			return 100, nil
		},
	}
	pub := newTestPublisher(mock)

	msgID, _, err := pub.PublishReply(context.Background(), "ответ", 99)
	if err != nil {
		t.Fatalf("PublishReply() error = %v", err)
	}
	if msgID != 100 {
		t.Errorf("message id = %d, want 100", msgID)
	}
	if mock.replyCalls != 1 || mock.sendCalls != 0 {
		t.Errorf("reply calls = %d, send calls = %d", mock.replyCalls, mock.sendCalls)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", errors.New("network timeout"), true},
		{"rate limit", errors.New("Too Many Requests: retry after 5"), true},
		{"chat not found", errors.New("Bad Request: chat not found"), false},
		{"bot blocked", errors.New("Forbidden: bot was blocked by the user"), false},
		{"parse entities", errors.New("Bad Request: can't parse entities"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
