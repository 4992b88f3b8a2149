package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okulov/mindcast_bot/internal/generator"
	"github.com/okulov/mindcast_bot/internal/post"
	"github.com/okulov/mindcast_bot/internal/store"
)

// Queue — операции очереди постов, нужные конвейеру.
type Queue interface {
	Enqueue(ctx context.Context, scheduledTime time.Time, text string, autoGenerated bool) (int64, error)
	MarkSent(ctx context.Context, id int64) error
	CacheAdd(ctx context.Context, generatedTime time.Time, text string) (int64, error)
	CacheTakeUnused(ctx context.Context) (post.CachedPost, error)
}

// Убеждаемся, что Store реализует интерфейс Queue.
var _ Queue = (*store.Store)(nil)

// TextGenerator выпускает один пост.
type TextGenerator interface {
	Generate(ctx context.Context) (generator.Result, error)
}

// Deliverer доставляет текст в канал.
type Deliverer interface {
	Publish(ctx context.Context, text string) (int64, int, error)
}

// ThreadPublisher продвигает диалоговые цепочки на один пост.
type ThreadPublisher interface {
	PublishNext(ctx context.Context, now time.Time) error
}

// Deps перечисляет зависимости конвейера.
type Deps struct {
	Queue     Queue
	Generator TextGenerator
	Publisher Deliverer
	Threads   ThreadPublisher
	Mode      post.Mode
	Rand      *rand.Rand
	Clock     func() time.Time
	Logger    *logrus.Logger
}

// Pipeline связывает кэш, генератор, очередь и издателя в один шаг
// публикации. Каждый вызов либо доводит ровно один пост до канала,
// либо возвращает ошибку, не оставляя частично выполненных шагов
// с потерянным текстом: сгенерированный пост всегда записан в очередь
// до попытки доставки.
type Pipeline struct {
	queue     Queue
	generator TextGenerator
	publisher Deliverer
	threads   ThreadPublisher
	mode      post.Mode
	rng       *rand.Rand
	clock     func() time.Time
	log       *logrus.Entry
}

// New создаёт конвейер.
func New(deps Deps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	mode := deps.Mode
	if mode == "" {
		mode = post.ModeClassic
	}
	return &Pipeline{
		queue:     deps.Queue,
		generator: deps.Generator,
		publisher: deps.Publisher,
		threads:   deps.Threads,
		mode:      mode,
		rng:       rng,
		clock:     clock,
		log:       logger.WithField("component", "pipeline"),
	}
}

// GenerateAndPublish выполняет один слот расписания: берёт текст из кэша
// или генерирует новый, записывает его в очередь и доставляет в канал.
// При недоставке пост остаётся в очереди непомеченным; автоматических
// повторов нет, запись видна через /status для ручной публикации.
func (p *Pipeline) GenerateAndPublish(ctx context.Context, now time.Time) error {
	if p.useThreads() {
		return p.threads.PublishNext(ctx, now)
	}

	text, fromCache, err := p.obtainText(ctx)
	if err != nil {
		return err
	}

	id, err := p.queue.Enqueue(ctx, now, text, true)
	if err != nil {
		return fmt.Errorf("enqueue post: %w", err)
	}

	if _, _, err := p.publisher.Publish(ctx, text); err != nil {
		p.log.WithError(err).WithField("post_id", id).Error("delivery failed, post stays queued")
		return fmt.Errorf("publish post %d: %w", id, err)
	}

	if err := p.queue.MarkSent(ctx, id); err != nil {
		return fmt.Errorf("mark post %d sent: %w", id, err)
	}

	p.log.WithFields(logrus.Fields{
		"post_id":    id,
		"from_cache": fromCache,
	}).Info("slot published")
	return nil
}

// GenerateToCache генерирует пост и складывает его в кэш, не публикуя.
func (p *Pipeline) GenerateToCache(ctx context.Context) (int64, error) {
	res, err := p.generator.Generate(ctx)
	if err != nil {
		return 0, fmt.Errorf("generate post: %w", err)
	}
	id, err := p.queue.CacheAdd(ctx, p.clock(), res.Text)
	if err != nil {
		return 0, fmt.Errorf("cache post: %w", err)
	}
	p.log.WithField("cache_id", id).Info("post cached")
	return id, nil
}

// PublishText доставляет готовый текст, минуя генератор. Используется
// командами администратора для немедленной публикации.
func (p *Pipeline) PublishText(ctx context.Context, text string) error {
	id, err := p.queue.Enqueue(ctx, p.clock(), text, false)
	if err != nil {
		return fmt.Errorf("enqueue post: %w", err)
	}
	if _, _, err := p.publisher.Publish(ctx, text); err != nil {
		return fmt.Errorf("publish post %d: %w", id, err)
	}
	if err := p.queue.MarkSent(ctx, id); err != nil {
		return fmt.Errorf("mark post %d sent: %w", id, err)
	}
	return nil
}

func (p *Pipeline) useThreads() bool {
	if p.threads == nil {
		return false
	}
	switch p.mode {
	case post.ModeThreads:
		return true
	case post.ModeMixed:
		return p.rng.Intn(2) == 0
	default:
		return false
	}
}

func (p *Pipeline) obtainText(ctx context.Context) (string, bool, error) {
	cached, err := p.queue.CacheTakeUnused(ctx)
	switch {
	case err == nil:
		return cached.Text, true, nil
	case errors.Is(err, store.ErrNoCachedPost):
	default:
		// Кэш недоступен: генерируем напрямую, слот важнее кэша.
		p.log.WithError(err).Warn("cache lookup failed, generating directly")
	}

	res, err := p.generator.Generate(ctx)
	if err != nil {
		return "", false, fmt.Errorf("generate post: %w", err)
	}
	return res.Text, false, nil
}
