package dialogue

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okulov/mindcast_bot/internal/config"
)

// Completer выполняет один запрос генерации по готовому промпту.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Poster публикует посты в канал, включая ответы на существующие сообщения.
type Poster interface {
	Publish(ctx context.Context, text string) (int64, int, error)
	PublishReply(ctx context.Context, text string, replyTo int64) (int64, int, error)
}

// Deps перечисляет зависимости менеджера цепочек.
type Deps struct {
	Cfg       config.Dialogue
	Completer Completer
	Poster    Poster
	Store     *FileStore
	Themes    []string
	Rand      *rand.Rand
	Clock     func() time.Time
	Logger    *logrus.Logger
}

// Manager ведёт диалоговые цепочки: открывает новые, продолжает активные
// и закрывает исчерпанные или простоявшие дольше лимита. Одновременно
// активных цепочек не больше настроенного максимума; в цепочке подряд
// не говорит один и тот же участник.
type Manager struct {
	// mu сериализует PublishNext и защищает threads: цепочки могут
	// продвигать одновременно цикл расписания и команда администратора.
	mu sync.Mutex

	cfg       config.Dialogue
	completer Completer
	poster    Poster
	store     *FileStore
	themes    []string
	threads   []*Thread
	rng       *rand.Rand
	clock     func() time.Time
	log       *logrus.Entry
}

// NewManager создаёт менеджер и поднимает сохранённые цепочки.
func NewManager(deps Deps) (*Manager, error) {
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	if len(deps.Cfg.Thinkers) < 2 {
		return nil, fmt.Errorf("dialogue mode requires at least two thinkers")
	}

	m := &Manager{
		cfg:       deps.Cfg,
		completer: deps.Completer,
		poster:    deps.Poster,
		store:     deps.Store,
		themes:    deps.Themes,
		rng:       rng,
		clock:     clock,
		log:       logger.WithField("component", "dialogue"),
	}
	if m.store != nil {
		threads, err := m.store.Load()
		if err != nil {
			return nil, err
		}
		m.threads = threads
	}
	return m, nil
}

// PublishNext продвигает диалоги на один пост: сначала закрывает
// простоявшие цепочки, затем продолжает случайную активную либо,
// если активных нет или все заполнены, открывает новую.
func (m *Manager) PublishNext(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeStale(now)

	if th := m.pickContinuable(); th != nil {
		return m.continueThread(ctx, th, now)
	}
	if m.activeCount() < m.cfg.MaxActiveThreads {
		return m.startThread(ctx, now)
	}
	// Все активные цепочки заполнены до лимита постов. Закрываем самую
	// старую и открываем новую, чтобы слот не пропал.
	m.closeOldest()
	return m.startThread(ctx, now)
}

// Active возвращает активные цепочки, от старых к новым.
func (m *Manager) Active() []*Thread {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Thread, 0, len(m.threads))
	for _, th := range m.threads {
		if th.Active {
			out = append(out, th)
		}
	}
	return out
}

func (m *Manager) startThread(ctx context.Context, now time.Time) error {
	theme := m.pickTheme()
	thinker := m.pickThinker("")

	prompt := buildOpeningPrompt(thinker, theme)
	text, err := m.completer.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate thread opener: %w", err)
	}

	msgID, _, err := m.poster.Publish(ctx, m.signed(thinker, text))
	if err != nil {
		return fmt.Errorf("publish thread opener: %w", err)
	}

	th := newThread(theme, now)
	th.append(ThreadPost{ThinkerID: thinker.ID, Text: text, MessageID: msgID, PostedAt: now})
	m.threads = append(m.threads, th)

	m.log.WithFields(logrus.Fields{
		"thread_id": th.ID,
		"theme":     theme,
		"thinker":   thinker.ID,
	}).Info("thread started")
	return m.persist()
}

func (m *Manager) continueThread(ctx context.Context, th *Thread, now time.Time) error {
	thinker := m.pickThinker(th.LastSpeaker)

	prompt := buildReplyPrompt(thinker, th)
	text, err := m.completer.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate thread reply: %w", err)
	}

	msgID, _, err := m.poster.PublishReply(ctx, m.signed(thinker, text), th.lastMessageID())
	if err != nil {
		return fmt.Errorf("publish thread reply: %w", err)
	}

	th.append(ThreadPost{ThinkerID: thinker.ID, Text: text, MessageID: msgID, PostedAt: now})
	if len(th.Posts) >= m.cfg.MaxPostsPerThread {
		th.Active = false
		m.log.WithField("thread_id", th.ID).Info("thread completed")
	}
	return m.persist()
}

func (m *Manager) closeStale(now time.Time) {
	limit := time.Duration(m.cfg.StaleHours) * time.Hour
	for _, th := range m.threads {
		if th.Active && th.stale(now, limit) {
			th.Active = false
			m.log.WithField("thread_id", th.ID).Info("stale thread closed")
		}
	}
}

func (m *Manager) closeOldest() {
	var oldest *Thread
	for _, th := range m.threads {
		if !th.Active {
			continue
		}
		if oldest == nil || th.CreatedAt.Before(oldest.CreatedAt) {
			oldest = th
		}
	}
	if oldest != nil {
		oldest.Active = false
	}
}

// pickContinuable возвращает случайную активную цепочку, в которой ещё
// есть место для поста.
func (m *Manager) pickContinuable() *Thread {
	var candidates []*Thread
	for _, th := range m.threads {
		if th.Active && len(th.Posts) > 0 && len(th.Posts) < m.cfg.MaxPostsPerThread {
			candidates = append(candidates, th)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[m.rng.Intn(len(candidates))]
}

func (m *Manager) activeCount() int {
	n := 0
	for _, th := range m.threads {
		if th.Active {
			n++
		}
	}
	return n
}

// pickThinker выбирает случайного участника, исключая exclude.
func (m *Manager) pickThinker(exclude string) config.Thinker {
	candidates := make([]config.Thinker, 0, len(m.cfg.Thinkers))
	for _, th := range m.cfg.Thinkers {
		if th.ID != exclude {
			candidates = append(candidates, th)
		}
	}
	if len(candidates) == 0 {
		candidates = m.cfg.Thinkers
	}
	return candidates[m.rng.Intn(len(candidates))]
}

func (m *Manager) pickTheme() string {
	if len(m.themes) == 0 {
		return "смысл повседневных привычек"
	}
	return m.themes[m.rng.Intn(len(m.themes))]
}

// signed добавляет подпись участника к тексту поста.
func (m *Manager) signed(thinker config.Thinker, text string) string {
	return fmt.Sprintf("<b>%s</b>\n\n%s", thinker.Name, strings.TrimSpace(text))
}

func (m *Manager) persist() error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(m.threads); err != nil {
		return fmt.Errorf("save threads: %w", err)
	}
	return nil
}
