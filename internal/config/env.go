package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// EnvConfig содержит токены и идентификаторы из переменных окружения.
type EnvConfig struct {
	BotToken       string
	ChannelID      string
	AdminChatID    string
	DeepSeekAPIKey string
	DeepSeekAPIURL string
	Location       *time.Location
}

// LoadEnv читает .env (если есть) и переменные окружения.
// Возвращает ошибку, если обязательные переменные отсутствуют:
// запуск с неполными учётными данными недопустим.
func LoadEnv() (*EnvConfig, error) {
	// .env опционален: в продакшене переменные приходят из окружения процесса
	_ = godotenv.Load()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is required")
	}

	channelID := os.Getenv("CHANNEL_ID")
	if channelID == "" {
		return nil, fmt.Errorf("CHANNEL_ID environment variable is required")
	}

	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("DEEPSEEK_API_KEY environment variable is required")
	}

	apiURL := os.Getenv("DEEPSEEK_API_URL")
	if apiURL == "" {
		apiURL = "https://api.deepseek.com/v1"
	}

	tz := os.Getenv("TIMEZONE")
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	return &EnvConfig{
		BotToken:       botToken,
		ChannelID:      channelID,
		AdminChatID:    os.Getenv("ADMIN_CHAT_ID"),
		DeepSeekAPIKey: apiKey,
		DeepSeekAPIURL: apiURL,
		Location:       loc,
	}, nil
}
