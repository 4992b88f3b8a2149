package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Bot API допускает до 30 сообщений в секунду на бота.
const messagesPerSecond = 30

// BotClient определяет интерфейс для работы с Telegram Bot API.
// Это позволяет легко создавать моки для тестирования.
type BotClient interface {
	SendMessage(ctx context.Context, chatID string, text string, parseMode string) (int64, error)
	SendReply(ctx context.Context, chatID string, text string, parseMode string, replyTo int64) (int64, error)
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
}

// Client инкапсулирует работу с Telegram Bot API.
type Client struct {
	token   string
	client  *http.Client
	apiURL  string
	limiter *rate.Limiter
}

// Убеждаемся, что Client реализует интерфейс BotClient.
var _ BotClient = (*Client)(nil)

// NewClient создаёт клиента. token обязателен.
func NewClient(token string) *Client {
	return &Client{
		token: token,
		client: &http.Client{
			Timeout: 35 * time.Second,
		},
		apiURL:  fmt.Sprintf("https://api.telegram.org/bot%s", token),
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), 1),
	}
}

// SendMessage отправляет текстовое сообщение и возвращает message_id,
// присвоенный Telegram. Идентификатор нужен для ответных цепочек.
func (c *Client) SendMessage(ctx context.Context, chatID string, text string, parseMode string) (int64, error) {
	return c.send(ctx, chatID, text, parseMode, 0)
}

// SendReply отправляет сообщение ответом на replyTo.
func (c *Client) SendReply(ctx context.Context, chatID string, text string, parseMode string, replyTo int64) (int64, error) {
	return c.send(ctx, chatID, text, parseMode, replyTo)
}

func (c *Client) send(ctx context.Context, chatID, text, parseMode string, replyTo int64) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	if replyTo > 0 {
		payload["reply_to_message_id"] = replyTo
	}

	var resp SendMessageResponse
	if err := c.post(ctx, "sendMessage", payload, &resp); err != nil {
		return 0, err
	}
	if !resp.OK || resp.Result == nil {
		return 0, fmt.Errorf("telegram sendMessage: %s", resp.Description)
	}
	return resp.Result.MessageID, nil
}

// GetUpdates получает входящие обновления, начиная с offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	if offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", offset))
	}
	if timeout <= 0 {
		timeout = 5
	}
	params.Set("timeout", fmt.Sprintf("%d", timeout))

	var resp GetUpdatesResponse
	if err := c.get(ctx, "getUpdates", params, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram getUpdates: %s", resp.Description)
	}
	return resp.Result, nil
}

func (c *Client) post(ctx context.Context, method string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Тело при ошибке всё равно разбираем: description нужен
	// для классификации повторяемости.
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if resp.StatusCode >= 400 {
				return fmt.Errorf("telegram api status %d", resp.StatusCode)
			}
			return err
		}
		return nil
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram api status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out interface{}) error {
	u := c.apiURL + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram api status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
