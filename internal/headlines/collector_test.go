package headlines

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okulov/mindcast_bot/internal/config"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Тестовая лента</title>
%s
</channel>
</rss>`

func rssItem(title, link string, published time.Time) string {
	return fmt.Sprintf(`<item>
<title>%s</title>
<link>%s</link>
<description>&lt;p&gt;Описание со &lt;b&gt;вёрсткой&lt;/b&gt;&lt;/p&gt;</description>
<pubDate>%s</pubDate>
</item>`, title, link, published.Format(time.RFC1123Z))
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(devNull{})
	return l
}

type devNull struct{}

func (devNull) Write(p []byte) (int, error) { return len(p), nil }

func TestCollectorFetchRecent(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-2 * time.Hour)
	old := now.Add(-48 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := rssItem("Свежая новость о науке", "https://example.com/1", fresh) +
			rssItem("Устаревшая новость", "https://example.com/2", old)
		fmt.Fprintf(w, rssTemplate, items)
	}))
	defer srv.Close()

	cfg := config.Headlines{
		Sources:      []config.Source{{Name: "test", URL: srv.URL}},
		MaxPerSource: 5,
		MaxAgeHours:  24,
	}
	c := NewCollector(cfg, srv.Client(), func() time.Time { return now }, silentLogger())

	items := c.FetchRecent(context.Background())
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (old entry filtered)", len(items))
	}
	h := items[0]
	if h.Title != "Свежая новость о науке" {
		t.Errorf("title = %q", h.Title)
	}
	if h.Source != "test" || h.Link != "https://example.com/1" {
		t.Errorf("headline = %+v", h)
	}
	if h.Summary != "Описание со вёрсткой" {
		t.Errorf("summary must be stripped of markup, got %q", h.Summary)
	}
	if !h.Published.Equal(fresh.Truncate(time.Second)) {
		t.Errorf("published = %v, want %v", h.Published, fresh)
	}
}

func TestCollectorPerSourceCap(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var items string
		for i := 0; i < 10; i++ {
			items += rssItem(fmt.Sprintf("Новость номер %d", i), fmt.Sprintf("https://example.com/%d", i), now.Add(-time.Duration(i)*time.Minute))
		}
		fmt.Fprintf(w, rssTemplate, items)
	}))
	defer srv.Close()

	cfg := config.Headlines{
		Sources:      []config.Source{{Name: "test", URL: srv.URL}},
		MaxPerSource: 3,
		MaxAgeHours:  24,
	}
	c := NewCollector(cfg, srv.Client(), func() time.Time { return now }, silentLogger())

	items := c.FetchRecent(context.Background())
	if len(items) != 3 {
		t.Errorf("items = %d, want per-source cap of 3", len(items))
	}
}

func TestCollectorBrokenFeedSkipped(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssTemplate, rssItem("Рабочая лента", "https://example.com/ok", now.Add(-time.Hour)))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	cfg := config.Headlines{
		Sources: []config.Source{
			{Name: "bad", URL: bad.URL},
			{Name: "good", URL: good.URL},
		},
		MaxPerSource: 5,
		MaxAgeHours:  24,
	}
	c := NewCollector(cfg, good.Client(), func() time.Time { return now }, silentLogger())

	items := c.FetchRecent(context.Background())
	if len(items) != 1 || items[0].Source != "good" {
		t.Errorf("broken feed must be skipped, items = %+v", items)
	}
}

func TestCollectorSortsNewestFirst(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := rssItem("Старее", "https://example.com/1", now.Add(-3*time.Hour)) +
			rssItem("Новее", "https://example.com/2", now.Add(-time.Hour))
		fmt.Fprintf(w, rssTemplate, items)
	}))
	defer srv.Close()

	cfg := config.Headlines{
		Sources:      []config.Source{{Name: "test", URL: srv.URL}},
		MaxPerSource: 5,
		MaxAgeHours:  24,
	}
	c := NewCollector(cfg, srv.Client(), func() time.Time { return now }, silentLogger())

	items := c.FetchRecent(context.Background())
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Title != "Новее" {
		t.Errorf("newest must come first, got %q", items[0].Title)
	}
}
