package history

import (
	"math/rand"
	"sync"

	"github.com/okulov/mindcast_bot/internal/post"
)

// Ring — ограниченная FIFO-история генераций. Используется всеми местами
// вида «выбери X, избегая недавних X»: темами, форматами, концовками.
// При вытеснении старой записи связанные счётчики частоты уменьшаются.
// Безопасен для одновременного использования из нескольких горутин:
// к истории обращаются и цикл расписания, и цикл команд.
type Ring struct {
	mu         sync.Mutex
	max        int
	records    []post.GenerationRecord
	themeFreq  map[string]int
	formatFreq map[string]int
}

// NewRing создаёт историю на max записей.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = 10
	}
	return &Ring{
		max:        max,
		themeFreq:  make(map[string]int),
		formatFreq: make(map[string]int),
	}
}

// Add добавляет запись, вытесняя самую старую при переполнении.
func (r *Ring) Add(rec post.GenerationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	r.themeFreq[rec.Theme]++
	r.formatFreq[rec.Format]++

	if len(r.records) > r.max {
		old := r.records[0]
		r.records = r.records[1:]
		decrement(r.themeFreq, old.Theme)
		decrement(r.formatFreq, old.Format)
	}
}

func decrement(freq map[string]int, key string) {
	freq[key]--
	if freq[key] <= 0 {
		delete(freq, key)
	}
}

// Records возвращает копию всех записей, от старых к новым.
func (r *Ring) Records() []post.GenerationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]post.GenerationRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len возвращает текущий размер истории.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// RecentThemes возвращает темы последних n записей.
func (r *Ring) RecentThemes(n int) []string {
	return r.recent(n, func(rec post.GenerationRecord) string { return rec.Theme })
}

// RecentFormats возвращает форматы последних n записей.
func (r *Ring) RecentFormats(n int) []string {
	return r.recent(n, func(rec post.GenerationRecord) string { return rec.Format })
}

// RecentEndings возвращает концовки последних n записей.
func (r *Ring) RecentEndings(n int) []string {
	return r.recent(n, func(rec post.GenerationRecord) string { return rec.Ending })
}

func (r *Ring) recent(n int, field func(post.GenerationRecord) string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > len(r.records) {
		n = len(r.records)
	}
	out := make([]string, 0, n)
	for _, rec := range r.records[len(r.records)-n:] {
		out = append(out, field(rec))
	}
	return out
}

// ThemeFrequency возвращает счётчик использования темы в текущем окне истории.
func (r *Ring) ThemeFrequency(theme string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.themeFreq[theme]
}

// FormatFrequency возвращает счётчик использования формата в текущем окне истории.
func (r *Ring) FormatFrequency(format string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.formatFreq[format]
}

// Pick выбирает случайный элемент из candidates, избегая recent,
// если после исключения остаются альтернативы. При пустом остатке
// выбор делается из полного списка.
func Pick(rng *rand.Rand, candidates []string, recent []string) string {
	if len(candidates) == 0 {
		return ""
	}

	excluded := make(map[string]struct{}, len(recent))
	for _, r := range recent {
		excluded[r] = struct{}{}
	}

	fresh := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := excluded[c]; !ok {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		fresh = candidates
	}
	return fresh[rng.Intn(len(fresh))]
}
