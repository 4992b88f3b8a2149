package headlines

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okulov/mindcast_bot/internal/config"
	"github.com/okulov/mindcast_bot/internal/post"
)

// Service объединяет сбор лент и фильтрацию в один шаг для генератора.
type Service struct {
	collector *Collector
	filter    *Filter
	limit     int
}

// NewService создаёт сервис заголовков из конфигурации.
func NewService(cfg config.Headlines, client *http.Client, rng *rand.Rand, clock func() time.Time, logger *logrus.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Service{
		collector: NewCollector(cfg, client, clock, logger),
		filter:    NewFilter(cfg, rng),
		limit:     cfg.Limit,
	}
}

// SelectRecent возвращает до limit свежих заголовков после фильтрации.
// Ошибки отдельных лент уже поглощены коллектором; пустой результат
// означает «новостей нет».
func (s *Service) SelectRecent(ctx context.Context, limit int) []post.Headline {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	return s.filter.Select(s.collector.FetchRecent(ctx), limit)
}
