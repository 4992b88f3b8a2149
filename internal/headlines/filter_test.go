package headlines

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/okulov/mindcast_bot/internal/config"
	"github.com/okulov/mindcast_bot/internal/post"
)

func testFilter(t *testing.T, seed int64) *Filter {
	t.Helper()
	return NewFilter(config.Headlines{
		Denylist:       []string{"война", "обстрел", "нато"},
		Allowlist:      []string{"наука", "культура", "экономика"},
		SkipMarkers:    []string{"реклама", "спонсор"},
		MinTitleLength: 20,
	}, rand.New(rand.NewSource(seed)))
}

func headline(title, source string) post.Headline {
	return post.Headline{
		Title:     title,
		Link:      "https://example.com/" + source + "/" + fmt.Sprintf("%d", len(title)) + title[:1],
		Published: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		Source:    source,
	}
}

func TestFilter_Select_HardExclusions(t *testing.T) {
	f := testFilter(t, 1)

	items := []post.Headline{
		headline("Коротко", "a"),
		headline("Реклама: лучший сервис подписок этого месяца", "a"),
		headline("ВОЙНА цен на рынке смартфонов продолжается", "a"),
		headline("Учёные представили новый метод анализа данных", "b"),
		headline("Обстрел позиций привёл к последствиям в регионе", "c"),
		headline("Городская культура возвращается в парки столицы", "d"),
	}

	got := f.Select(items, 5)
	if len(got) != 2 {
		t.Fatalf("Select() len = %d, want 2", len(got))
	}
	for _, item := range got {
		if f.Denied(item.Title) {
			t.Errorf("Select() returned denied headline %q", item.Title)
		}
		lower := strings.ToLower(item.Title)
		if strings.Contains(lower, "реклама") {
			t.Errorf("Select() returned ad headline %q", item.Title)
		}
	}
}

func TestFilter_Select_DenylistInvariant(t *testing.T) {
	f := testFilter(t, 7)

	// На любом входе ни один возвращённый заголовок не содержит
	// запрещённого слова (без учёта регистра).
	var items []post.Headline
	for i := 0; i < 40; i++ {
		title := fmt.Sprintf("Новость номер %d о событиях в мире сегодня", i)
		if i%3 == 0 {
			title = fmt.Sprintf("НАТО обсуждает очередной вопрос номер %d", i)
		}
		items = append(items, headline(title, fmt.Sprintf("src%d", i%5)))
	}

	got := f.Select(items, 5)
	for _, item := range got {
		if f.Denied(item.Title) {
			t.Errorf("Select() returned denied headline %q", item.Title)
		}
	}
}

func TestFilter_Select_HardExclusionIdempotent(t *testing.T) {
	f := testFilter(t, 3)

	items := []post.Headline{
		headline("Учёные представили новый метод анализа данных", "a"),
		headline("Война санкций обостряется на мировых рынках", "b"),
		headline("Экономика региона показала устойчивый рост за квартал", "c"),
	}

	// Фильтрация уже очищенного списка не отбрасывает ничего нового:
	// жёсткое исключение идемпотентно (порядок выборки может меняться).
	first := f.Select(items, 10)
	second := f.Select(first, 10)
	if len(second) != len(first) {
		t.Errorf("second pass len = %d, want %d", len(second), len(first))
	}
}

func TestFilter_Select_PreferredFirstUnderLimit(t *testing.T) {
	f := testFilter(t, 2)

	items := []post.Headline{
		headline("Обычное событие произошло в одном из городов", "a"),
		headline("Наука снова удивляет: новое открытие физиков", "b"),
	}

	got := f.Select(items, 5)
	if len(got) != 2 {
		t.Fatalf("Select() len = %d, want 2", len(got))
	}
	if !strings.Contains(strings.ToLower(got[0].Title), "наука") {
		t.Errorf("Select() first = %q, want the preferred headline first", got[0].Title)
	}
}

func TestFilter_Select_PerSourceCap(t *testing.T) {
	f := testFilter(t, 5)

	var items []post.Headline
	// Десять разных заголовков одного источника и два от другого.
	for i := 0; i < 10; i++ {
		items = append(items, headline(fmt.Sprintf("Наука и открытие номер %d в лаборатории", i), "mono"))
	}
	items = append(items,
		headline("Культура и выставки в музеях этим летом", "other"),
		headline("Экономика малых городов растёт быстрее ожиданий", "other"),
	)

	got := f.Select(items, 4)
	if len(got) != 4 {
		t.Fatalf("Select() len = %d, want 4", len(got))
	}
	perSource := make(map[string]int)
	for _, item := range got {
		perSource[item.Source]++
	}
	if perSource["mono"] > maxPerSourceSelected {
		t.Errorf("source cap violated: %d items from one source", perSource["mono"])
	}
}

func TestFilter_Select_CapRelaxedWhenShort(t *testing.T) {
	f := testFilter(t, 4)

	// Единственный источник: без ослабления лимита набрать 4 не выйдет.
	var items []post.Headline
	for i := 0; i < 8; i++ {
		items = append(items, headline(fmt.Sprintf("Наука и открытие номер %d в лаборатории", i), "mono"))
	}

	got := f.Select(items, 4)
	if len(got) != 4 {
		t.Errorf("Select() len = %d, want 4 (cap must relax)", len(got))
	}
}

func TestFilter_Select_Empty(t *testing.T) {
	f := testFilter(t, 6)
	if got := f.Select(nil, 5); len(got) != 0 {
		t.Errorf("Select(nil) len = %d, want 0", len(got))
	}
	if got := f.Select([]post.Headline{headline("Наука снова удивляет всех вокруг", "a")}, 0); len(got) != 0 {
		t.Errorf("Select(limit=0) len = %d, want 0", len(got))
	}
}
