package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Clock определяет источник времени (удобно подменять в тестах).
type Clock func() time.Time

// PublishFunc запускает цикл «сгенерировать и опубликовать».
type PublishFunc func(ctx context.Context) error

// SweepFunc выполняет очистку старых отправленных постов.
type SweepFunc func(ctx context.Context) error

// EngineDeps перечисляет зависимости движка расписания.
type EngineDeps struct {
	Config  Config
	Publish PublishFunc
	Sweep   SweepFunc
	Clock   Clock
	Logger  *logrus.Logger
	// Poll — период опроса; Spacing — минимальный зазор между публикациями.
	Poll    time.Duration
	Spacing time.Duration
}

// Engine — движок расписания: раз в период опроса решает, пора ли
// публиковать, и не даёт одному совпадению слота сработать дважды
// на соседних тиках.
type Engine struct {
	cfg     Config
	publish PublishFunc
	sweep   SweepFunc
	clock   Clock
	log     *logrus.Entry
	poll    time.Duration
	spacing time.Duration

	mu            sync.Mutex
	lastPublished time.Time
}

// NewEngine создаёт движок. Publish обязателен, остальное имеет значения
// по умолчанию.
func NewEngine(deps EngineDeps) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	poll := deps.Poll
	if poll <= 0 {
		poll = time.Minute
	}
	spacing := deps.Spacing
	if spacing <= 0 {
		spacing = 5 * time.Minute
	}
	return &Engine{
		cfg:     deps.Config,
		publish: deps.Publish,
		sweep:   deps.Sweep,
		clock:   clock,
		log:     logger.WithField("component", "scheduler"),
		poll:    poll,
		spacing: spacing,
	}
}

// Tick выполняет одну проверку расписания. Публикация запускается, только
// когда now попадает в слот и с прошлой публикации прошло больше spacing.
// Без зазора совпадение слота, остающееся истинным несколько тиков подряд,
// привело бы к дублям.
func (e *Engine) Tick(ctx context.Context, now time.Time) error {
	if !SlotMatches(e.cfg, now) {
		return nil
	}

	e.mu.Lock()
	last := e.lastPublished
	e.mu.Unlock()

	if !last.IsZero() && now.Sub(last) <= e.spacing {
		e.log.WithFields(logrus.Fields{
			"last_published": last.Format(time.RFC3339),
			"spacing":        e.spacing,
		}).Debug("slot matched but spacing guard holds")
		return nil
	}

	e.log.WithField("now", now.Format(time.RFC3339)).Info("slot matched, publishing")
	if err := e.publish(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	e.lastPublished = now
	e.mu.Unlock()
	return nil
}

// LastPublished возвращает время последней успешной публикации движка.
func (e *Engine) LastPublished() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPublished
}

// NextSlot возвращает ближайший будущий момент публикации.
func (e *Engine) NextSlot(now time.Time) (time.Time, bool) {
	return NextSlot(e.cfg, now)
}

// Run крутит цикл опроса до отмены контекста. Любая ошибка тика
// логируется, и цикл продолжается после обычной паузы: одна неудачная
// генерация или доставка не должна останавливать планировщик.
func (e *Engine) Run(ctx context.Context) {
	e.log.WithFields(logrus.Fields{
		"poll":    e.poll,
		"spacing": e.spacing,
		"enabled": e.cfg.Enabled,
	}).Info("scheduler loop started")

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("scheduler loop stopped")
			return
		case <-ticker.C:
			if err := e.Tick(ctx, e.clock()); err != nil {
				e.log.WithError(err).Error("tick failed")
			}
			if e.sweep != nil {
				if err := e.sweep(ctx); err != nil {
					e.log.WithError(err).Error("retention sweep failed")
				}
			}
		}
	}
}
