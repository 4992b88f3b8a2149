package generator

import (
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// NewDeepSeekClient создаёт клиента DeepSeek API. Протокол совместим с
// chat completions, поэтому достаточно подменить базовый URL.
// Таймаут фиксированный: зависшие генерации не должны держать цикл.
func NewDeepSeekClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	return openai.NewClientWithConfig(cfg)
}
