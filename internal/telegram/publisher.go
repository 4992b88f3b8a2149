package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// retryAttempts - количество попыток отправки при ошибке
	retryAttempts = 3
	// retryDelay - задержка между попытками
	retryDelay = 5 * time.Second
)

// Publisher доставляет посты в канал с ограниченным числом повторов.
// Неудача всех попыток возвращается как ошибка; решение о дальнейшей
// судьбе текста принимает вызывающий.
type Publisher struct {
	client    BotClient
	chatID    string
	parseMode string
	delay     time.Duration
	log       *logrus.Entry
}

// NewPublisher создаёт издателя для канала chatID.
func NewPublisher(client BotClient, chatID, parseMode string, logger *logrus.Logger) *Publisher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Publisher{
		client:    client,
		chatID:    chatID,
		parseMode: parseMode,
		delay:     retryDelay,
		log:       logger.WithField("component", "publisher"),
	}
}

// Publish отправляет текст в канал. Возвращает message_id и число
// сделанных попыток.
func (p *Publisher) Publish(ctx context.Context, text string) (int64, int, error) {
	return p.deliver(ctx, text, 0)
}

// PublishReply отправляет текст ответом на сообщение replyTo.
func (p *Publisher) PublishReply(ctx context.Context, text string, replyTo int64) (int64, int, error) {
	return p.deliver(ctx, text, replyTo)
}

func (p *Publisher) deliver(ctx context.Context, text string, replyTo int64) (int64, int, error) {
	var lastErr error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return 0, attempt - 1, ctx.Err()
			case <-time.After(p.delay):
			}
		}

		var (
			msgID int64
			err   error
		)
		if replyTo > 0 {
			msgID, err = p.client.SendReply(ctx, p.chatID, text, p.parseMode, replyTo)
		} else {
			msgID, err = p.client.SendMessage(ctx, p.chatID, text, p.parseMode)
		}
		if err == nil {
			p.log.WithFields(logrus.Fields{
				"message_id": msgID,
				"attempt":    attempt,
			}).Info("post published")
			return msgID, attempt, nil
		}

		lastErr = err
		p.log.WithError(err).WithField("attempt", attempt).Warn("publish attempt failed")

		if !isRetryableError(err) {
			return 0, attempt, err
		}
	}

	return 0, retryAttempts, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryableError определяет, можно ли повторить отправку при данной ошибке.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Ошибки, при которых повтор не поможет
	nonRetryable := []string{
		"chat not found",
		"bot was blocked",
		"user is deactivated",
		"chat_id is empty",
		"message is too long",
		"bad request",
		"can't parse entities",
	}
	for _, marker := range nonRetryable {
		if strings.Contains(errStr, marker) {
			return false
		}
	}

	// По умолчанию считаем ошибку повторяемой (сетевые ошибки, временные проблемы API)
	return true
}
