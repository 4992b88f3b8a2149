package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okulov/mindcast_bot/internal/post"
	"github.com/okulov/mindcast_bot/internal/telegram"
)

const (
	longPollTimeout = 25
	// scheduleSeparator разделяет посты в массовом /schedule.
	scheduleSeparator = "\n---\n"
)

// Publisher — операции конвейера, доступные через команды.
type Publisher interface {
	GenerateToCache(ctx context.Context) (int64, error)
	PublishText(ctx context.Context, text string) error
}

// Queue — операции очереди, доступные через команды.
type Queue interface {
	Enqueue(ctx context.Context, scheduledTime time.Time, text string, autoGenerated bool) (int64, error)
	ListPending(ctx context.Context) ([]post.ScheduledPost, error)
	CacheCountUnused(ctx context.Context) (int, error)
}

// Scheduler сообщает ближайший слот публикации.
type Scheduler interface {
	NextSlot(now time.Time) (time.Time, bool)
}

// Deps перечисляет зависимости цикла команд.
type Deps struct {
	Client      telegram.BotClient
	Pipeline    Publisher
	Queue       Queue
	Scheduler   Scheduler
	AdminChatID string
	Mode        post.Mode
	Location    *time.Location
	Clock       func() time.Time
	Logger      *logrus.Logger
}

// Listener принимает команды администратора через getUpdates и выполняет
// их поверх конвейера и очереди. Сообщения не от администратора
// игнорируются молча.
type Listener struct {
	client    telegram.BotClient
	pipeline  Publisher
	queue     Queue
	scheduler Scheduler
	adminID   string
	mode      post.Mode
	loc       *time.Location
	clock     func() time.Time
	log       *logrus.Entry
	offset    int64
}

// NewListener создаёт цикл команд.
func NewListener(deps Deps) *Listener {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Listener{
		client:    deps.Client,
		pipeline:  deps.Pipeline,
		queue:     deps.Queue,
		scheduler: deps.Scheduler,
		adminID:   deps.AdminChatID,
		mode:      deps.Mode,
		loc:       loc,
		clock:     clock,
		log:       logger.WithField("component", "commands"),
	}
}

// Run крутит длинный опрос getUpdates до отмены контекста. Ошибки опроса
// логируются; цикл не останавливается.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := l.client.GetUpdates(ctx, l.offset+1, longPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.WithError(err).Warn("get updates failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID > l.offset {
				l.offset = upd.UpdateID
			}
			l.handleUpdate(ctx, upd)
		}
	}
}

func (l *Listener) handleUpdate(ctx context.Context, upd telegram.Update) {
	if upd.Message == nil || upd.Message.Text == "" {
		return
	}
	chatID := strconv.FormatInt(upd.Message.Chat.ID, 10)
	if l.adminID == "" || chatID != l.adminID {
		return
	}

	reply := l.execute(ctx, upd.Message.Text)
	if reply == "" {
		return
	}
	if _, err := l.client.SendMessage(ctx, chatID, reply, ""); err != nil {
		l.log.WithError(err).Warn("send command reply failed")
	}
}

// execute разбирает команду и возвращает текст ответа администратору.
func (l *Listener) execute(ctx context.Context, text string) string {
	cmd, args := splitCommand(text)

	switch cmd {
	case "/generate":
		return l.cmdGenerate(ctx)
	case "/post":
		return l.cmdPost(ctx, args)
	case "/status":
		return l.cmdStatus(ctx)
	case "/schedule":
		return l.cmdSchedule(ctx, args)
	case "/mode":
		return fmt.Sprintf("Режим генерации: %s", l.mode)
	case "/start", "/help":
		return usage
	default:
		if strings.HasPrefix(cmd, "/") {
			return usage
		}
		return ""
	}
}

const usage = `Команды:
/generate — сгенерировать пост в кэш
/post <текст> — опубликовать немедленно
/status — очередь, кэш и следующий слот
/schedule <RFC3339>|<текст> — отложить пост (несколько через ---)
/mode — текущий режим генерации`

func (l *Listener) cmdGenerate(ctx context.Context) string {
	id, err := l.pipeline.GenerateToCache(ctx)
	if err != nil {
		l.log.WithError(err).Error("generate command failed")
		return fmt.Sprintf("Ошибка генерации: %v", err)
	}
	return fmt.Sprintf("Пост #%d добавлен в кэш", id)
}

func (l *Listener) cmdPost(ctx context.Context, args string) string {
	text := strings.TrimSpace(args)
	if text == "" {
		return "Использование: /post <текст>"
	}
	if err := l.pipeline.PublishText(ctx, text); err != nil {
		l.log.WithError(err).Error("post command failed")
		return fmt.Sprintf("Ошибка публикации: %v", err)
	}
	return "Опубликовано"
}

func (l *Listener) cmdStatus(ctx context.Context) string {
	now := l.clock()

	pending, err := l.queue.ListPending(ctx)
	if err != nil {
		return fmt.Sprintf("Ошибка чтения очереди: %v", err)
	}
	cached, err := l.queue.CacheCountUnused(ctx)
	if err != nil {
		return fmt.Sprintf("Ошибка чтения кэша: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "В очереди: %d\n", len(pending))
	fmt.Fprintf(&b, "В кэше: %d\n", cached)
	if l.scheduler != nil {
		if next, ok := l.scheduler.NextSlot(now); ok {
			fmt.Fprintf(&b, "Следующий слот: %s", next.In(l.loc).Format("Mon 02 Jan 15:04"))
		} else {
			b.WriteString("Расписание не настроено")
		}
	}
	return b.String()
}

// cmdSchedule откладывает один или несколько постов. Каждая запись имеет
// вид "<RFC3339>|<текст>"; записи разделяются строкой "---".
func (l *Listener) cmdSchedule(ctx context.Context, args string) string {
	if strings.TrimSpace(args) == "" {
		return "Использование: /schedule <RFC3339>|<текст>"
	}

	entries := strings.Split(args, scheduleSeparator)
	scheduled := 0
	var errs []string
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		when, text, err := parseScheduleEntry(entry, l.loc)
		if err != nil {
			errs = append(errs, fmt.Sprintf("запись %d: %v", i+1, err))
			continue
		}
		if _, err := l.queue.Enqueue(ctx, when, text, false); err != nil {
			errs = append(errs, fmt.Sprintf("запись %d: %v", i+1, err))
			continue
		}
		scheduled++
	}

	result := fmt.Sprintf("Отложено постов: %d", scheduled)
	if len(errs) > 0 {
		result += "\nОшибки:\n" + strings.Join(errs, "\n")
	}
	return result
}

func parseScheduleEntry(entry string, loc *time.Location) (time.Time, string, error) {
	idx := strings.Index(entry, "|")
	if idx < 0 {
		return time.Time{}, "", fmt.Errorf("ожидается формат <RFC3339>|<текст>")
	}
	rawTime := strings.TrimSpace(entry[:idx])
	text := strings.TrimSpace(entry[idx+1:])
	if text == "" {
		return time.Time{}, "", fmt.Errorf("пустой текст поста")
	}

	when, err := time.Parse(time.RFC3339, rawTime)
	if err != nil {
		// Допускаем локальное время без зоны.
		when, err = time.ParseInLocation("2006-01-02 15:04", rawTime, loc)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("не удалось разобрать время %q", rawTime)
		}
	}
	return when, text, nil
}

func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	cmd, args := text, ""
	if idx := strings.IndexAny(text, " \n"); idx >= 0 {
		cmd, args = text[:idx], text[idx+1:]
	}
	// Срезаем суффикс @botname у команд в группах.
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, args
}
