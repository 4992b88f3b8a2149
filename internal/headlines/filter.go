package headlines

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/okulov/mindcast_bot/internal/config"
	"github.com/okulov/mindcast_bot/internal/post"
)

// maxPerSourceSelected — не больше двух заголовков от одного источника
// в итоговой выборке, чтобы один источник не доминировал в промпте.
const maxPerSourceSelected = 2

// Filter отбирает заголовки для промпта: жёстко исключает запрещённые
// темы и отдаёт предпочтение разрешённым. Это эвристический фильтр
// качества, а не модель ранжирования.
type Filter struct {
	denylist    []string
	allowlist   []string
	skipMarkers []string
	minTitle    int

	// randMu защищает rng: выборку заголовков могут одновременно
	// запросить цикл расписания и команда /generate.
	randMu sync.Mutex
	rng    *rand.Rand
}

// NewFilter создаёт фильтр. Пустые списки в конфигурации заменяются
// значениями по умолчанию. rng обязателен для воспроизводимых тестов.
func NewFilter(cfg config.Headlines, rng *rand.Rand) *Filter {
	f := &Filter{
		denylist:    lowerAll(cfg.Denylist),
		allowlist:   lowerAll(cfg.Allowlist),
		skipMarkers: lowerAll(cfg.SkipMarkers),
		minTitle:    cfg.MinTitleLength,
		rng:         rng,
	}
	if len(f.denylist) == 0 {
		f.denylist = defaultDenylist
	}
	if len(f.allowlist) == 0 {
		f.allowlist = defaultAllowlist
	}
	if len(f.skipMarkers) == 0 {
		f.skipMarkers = defaultSkipMarkers
	}
	if f.minTitle <= 0 {
		f.minTitle = 20
	}
	return f
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Select возвращает до limit заголовков: сперва жёсткое исключение,
// затем смещённая выборка с приоритетом разрешённых тем и ограничением
// на источник.
func (f *Filter) Select(items []post.Headline, limit int) []post.Headline {
	if limit <= 0 || len(items) == 0 {
		return nil
	}

	var preferred, neutral []post.Headline
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if len([]rune(title)) < f.minTitle {
			continue
		}
		lower := strings.ToLower(title)
		if containsAny(lower, f.skipMarkers) {
			continue
		}
		if containsAny(lower, f.denylist) {
			continue
		}
		if containsAny(lower, f.allowlist) {
			preferred = append(preferred, item)
		} else {
			neutral = append(neutral, item)
		}
	}

	survivors := len(preferred) + len(neutral)
	if survivors <= limit {
		return append(append([]post.Headline{}, preferred...), neutral...)
	}

	return f.sample(preferred, neutral, limit)
}

// Denied сообщает, содержит ли заголовок запрещённое ключевое слово.
// Сравнение без учёта регистра, по подстроке.
func (f *Filter) Denied(title string) bool {
	return containsAny(strings.ToLower(title), f.denylist)
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// sample добирает limit заголовков: гарантирует предпочтительным темам
// минимум max(3, limit-2) мест (если они есть), остаток заполняет
// нейтральными; лимит на источник ослабляется, если иначе мест не набрать.
func (f *Filter) sample(preferred, neutral []post.Headline, limit int) []post.Headline {
	preferredQuota := limit - 2
	if preferredQuota < 3 {
		preferredQuota = 3
	}
	if preferredQuota > limit {
		preferredQuota = limit
	}

	shuffledPreferred := f.shuffled(preferred)
	shuffledNeutral := f.shuffled(neutral)

	selected := make([]post.Headline, 0, limit)
	perSource := make(map[string]int)
	taken := make(map[string]struct{})

	take := func(item post.Headline, capped bool) bool {
		if _, ok := taken[item.Link]; ok {
			return false
		}
		if capped && perSource[item.Source] >= maxPerSourceSelected {
			return false
		}
		selected = append(selected, item)
		perSource[item.Source]++
		taken[item.Link] = struct{}{}
		return true
	}

	for _, item := range shuffledPreferred {
		if len(selected) >= preferredQuota {
			break
		}
		take(item, true)
	}
	for _, item := range shuffledNeutral {
		if len(selected) >= limit {
			break
		}
		take(item, true)
	}
	// Нейтральных не хватило — добираем предпочтительными сверх квоты.
	for _, item := range shuffledPreferred {
		if len(selected) >= limit {
			break
		}
		take(item, true)
	}
	// Лимит на источник помешал набрать limit: ослабляем его.
	if len(selected) < limit {
		rest := append(append([]post.Headline{}, shuffledPreferred...), shuffledNeutral...)
		for _, item := range rest {
			if len(selected) >= limit {
				break
			}
			take(item, false)
		}
	}
	return selected
}

func (f *Filter) shuffled(items []post.Headline) []post.Headline {
	out := make([]post.Headline, len(items))
	copy(out, items)
	f.randMu.Lock()
	f.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	f.randMu.Unlock()
	return out
}
