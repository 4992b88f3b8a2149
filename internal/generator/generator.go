package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/okulov/mindcast_bot/internal/config"
	"github.com/okulov/mindcast_bot/internal/history"
	"github.com/okulov/mindcast_bot/internal/post"
)

// recentWindow — сколько последних выборов не повторять при наличии альтернатив.
const recentWindow = 3

// maxCompletionTokens соответствует целевой длине поста с запасом.
const maxCompletionTokens = 600

// ErrEmptyCompletion возвращается, когда API ответило успешно, но без текста.
var ErrEmptyCompletion = errors.New("empty completion from generation API")

// CompletionClient — граница с API генерации текста. Сужен до одного
// метода go-openai, чтобы в тестах подставлять заглушку.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// HeadlineSource поставляет отфильтрованные заголовки для промпта.
type HeadlineSource interface {
	SelectRecent(ctx context.Context, limit int) []post.Headline
}

// Result — итог одной генерации: текст плюс промпт и выбранные параметры
// для наблюдаемости.
type Result struct {
	Text   string
	Prompt string
	Theme  string
	Format string
	Ending string
}

// Deps перечисляет зависимости генератора.
type Deps struct {
	Client    CompletionClient
	Cfg       config.Generation
	Headlines HeadlineSource
	History   *history.Ring
	Store     *history.FileStore
	Rand      *rand.Rand
	Clock     func() time.Time
	Logger    *logrus.Logger
}

// Generator собирает промпт из динамических входов, вызывает API генерации
// со случайными параметрами сэмплирования и возвращает очищенный текст.
type Generator struct {
	client    CompletionClient
	cfg       config.Generation
	headlines HeadlineSource
	hist      *history.Ring
	store     *history.FileStore

	// randMu защищает rng: генерацию одновременно запускают цикл
	// расписания и команда /generate.
	randMu sync.Mutex
	rng    *rand.Rand
	clock     func() time.Time
	log       *logrus.Entry

	themes   []string
	formats  []string
	endings  []string
	keywords []string
}

// New создаёт генератор. Client обязателен.
func New(deps Deps) *Generator {
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
	hist := deps.History
	if hist == nil {
		hist = history.NewRing(deps.Cfg.HistorySize)
	}

	g := &Generator{
		client:    deps.Client,
		cfg:       deps.Cfg,
		headlines: deps.Headlines,
		hist:      hist,
		store:     deps.Store,
		rng:       rng,
		clock:     clock,
		log:       logger.WithField("component", "generator"),
		themes:    deps.Cfg.Themes,
		formats:   deps.Cfg.Formats,
		endings:   deps.Cfg.Endings,
		keywords:  deps.Cfg.Keywords,
	}
	if len(g.themes) == 0 {
		g.themes = defaultThemes
	}
	if len(g.formats) == 0 {
		g.formats = defaultFormats
	}
	if len(g.endings) == 0 {
		g.endings = defaultEndings
	}
	if len(g.keywords) == 0 {
		g.keywords = defaultKeywords
	}
	return g
}

// Generate выпускает один пост в настроенном режиме. Любой сбой API,
// пустой ответ или сетевая ошибка возвращаются как error; вызывающие
// трактуют это как «попробовать позже», а не как фатальный сбой.
func (g *Generator) Generate(ctx context.Context) (Result, error) {
	switch post.Mode(g.cfg.Mode) {
	case post.ModeKeywords:
		return g.generateKeywords(ctx)
	case post.ModeHeadlines:
		return g.generateHeadlines(ctx)
	default:
		return g.GenerateClassic(ctx)
	}
}

// GenerateClassic — пост по теме/формату/концовке со связанным учётом
// свежести: никакой из последних трёх выборов не повторяется, пока есть
// альтернативы.
func (g *Generator) GenerateClassic(ctx context.Context) (Result, error) {
	theme := g.pick(g.themes, g.hist.RecentThemes(recentWindow))
	format := g.pick(g.formats, g.hist.RecentFormats(recentWindow))
	ending := g.pick(g.endings, g.hist.RecentEndings(recentWindow))

	prompt := buildClassicPrompt(theme, format, ending, g.cfg.MinChars, g.cfg.MaxChars)
	text, err := g.Complete(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	res := Result{Text: text, Prompt: prompt, Theme: theme, Format: format, Ending: ending}
	g.record(res)
	return res, nil
}

func (g *Generator) generateKeywords(ctx context.Context) (Result, error) {
	picked := g.pickKeywords(3)
	prompt := buildKeywordsPrompt(picked, g.cfg.MinChars, g.cfg.MaxChars)

	raw, err := g.Complete(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	// Режим запрашивает структурированный ответ; модель может завернуть
	// JSON в ограждения или прозу. Если объект извлечь не удалось,
	// используем сырой текст, а не прерываем цикл.
	text := raw
	if obj, ok := extractJSONObject(raw); ok {
		var payload struct {
			Post string `json:"post"`
		}
		if err := json.Unmarshal([]byte(obj), &payload); err == nil && strings.TrimSpace(payload.Post) != "" {
			text = cleanText(payload.Post)
		} else {
			g.log.Warn("structured response unparseable, using raw text")
		}
	} else {
		g.log.Warn("no JSON object in structured response, using raw text")
	}

	res := Result{Text: text, Prompt: prompt, Theme: strings.Join(picked, ", ")}
	g.record(res)
	return res, nil
}

func (g *Generator) generateHeadlines(ctx context.Context) (Result, error) {
	if g.headlines == nil {
		g.log.Warn("headlines mode without a source, falling back to classic")
		return g.GenerateClassic(ctx)
	}

	items := g.headlines.SelectRecent(ctx, 5)
	if len(items) == 0 {
		// Пустая лента — это «свежих новостей нет», генерируем классический пост.
		g.log.Info("no fresh headlines, falling back to classic")
		return g.GenerateClassic(ctx)
	}

	prompt := buildHeadlinesPrompt(items, g.cfg.MinChars, g.cfg.MaxChars)
	text, err := g.Complete(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	res := Result{Text: text, Prompt: prompt}
	g.record(res)
	return res, nil
}

// Complete выполняет один вызов API генерации с джиттером параметров
// сэмплирования. Джиттер снижает текстовые повторы между соседними
// генерациями; требований корректности на него нет.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:        maxCompletionTokens,
		Temperature:      g.jitter(0.90, 0.08),
		TopP:             g.jitter(0.94, 0.03),
		PresencePenalty:  g.jitter(0.70, 0.15),
		FrequencyPenalty: g.jitter(0.80, 0.15),
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := cleanText(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	g.log.WithFields(logrus.Fields{
		"model": g.cfg.Model,
		"chars": len([]rune(text)),
	}).Info("post generated")
	return text, nil
}

// jitter возвращает значение base ± spread.
func (g *Generator) jitter(base, spread float32) float32 {
	g.randMu.Lock()
	defer g.randMu.Unlock()
	return base - spread + g.rng.Float32()*2*spread
}

func (g *Generator) pick(candidates, recent []string) string {
	g.randMu.Lock()
	defer g.randMu.Unlock()
	return history.Pick(g.rng, candidates, recent)
}

func (g *Generator) pickKeywords(n int) []string {
	g.randMu.Lock()
	idx := g.rng.Perm(len(g.keywords))
	g.randMu.Unlock()
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, g.keywords[i])
	}
	return out
}

func (g *Generator) record(res Result) {
	g.hist.Add(post.GenerationRecord{
		Theme:     res.Theme,
		Format:    res.Format,
		Ending:    res.Ending,
		Text:      res.Text,
		Timestamp: g.clock(),
	})
	if g.store != nil {
		if err := g.store.Save(g.hist); err != nil {
			g.log.WithError(err).Error("save generation history failed")
		}
	}
}

// cleanText убирает ограждения, обрамляющие кавычки и лишние пробелы
// из ответа модели.
func cleanText(s string) string {
	s = strings.TrimSpace(stripCodeFences(s))
	for _, pair := range [][2]string{{`"`, `"`}, {"«", "»"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) && len(s) > len(pair[0])+len(pair[1]) {
			trimmed := strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
			// Снимаем кавычки только когда они обрамляют весь текст целиком.
			if !strings.Contains(trimmed, pair[1]) {
				s = trimmed
			}
		}
	}
	return s
}
