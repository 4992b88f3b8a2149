package headlines

import (
	"context"
	"html"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/okulov/mindcast_bot/internal/config"
	"github.com/okulov/mindcast_bot/internal/post"
)

// Collector загружает свежие заголовки из настроенных RSS-лент.
type Collector struct {
	sources      []config.Source
	parser       *gofeed.Parser
	sanitizer    *bluemonday.Policy
	clock        func() time.Time
	log          *logrus.Entry
	maxPerSource int
	maxAge       time.Duration
}

// NewCollector создаёт сборщик. При пустом списке источников используются
// ленты по умолчанию.
func NewCollector(cfg config.Headlines, client *http.Client, clock func() time.Time, logger *logrus.Logger) *Collector {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logrus.New()
	}

	sources := cfg.Sources
	if len(sources) == 0 {
		for name, url := range defaultSources {
			sources = append(sources, config.Source{Name: name, URL: url})
		}
		sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	}

	parser := gofeed.NewParser()
	parser.Client = client

	return &Collector{
		sources:      sources,
		parser:       parser,
		sanitizer:    bluemonday.StrictPolicy(),
		clock:        clock,
		log:          logger.WithField("component", "headlines"),
		maxPerSource: cfg.MaxPerSource,
		maxAge:       time.Duration(cfg.MaxAgeHours) * time.Hour,
	}
}

// FetchRecent собирает заголовки со всех источников. Ошибка одной ленты
// логируется и не мешает остальным; пустой результат означает «свежих
// новостей нет», а не сбой.
func (c *Collector) FetchRecent(ctx context.Context) []post.Headline {
	now := c.clock()
	cutoff := now.Add(-c.maxAge)

	var all []post.Headline
	for _, src := range c.sources {
		items, err := c.fetchFeed(ctx, src, now, cutoff)
		if err != nil {
			c.log.WithError(err).WithField("source", src.Name).Warn("fetch feed failed")
			continue
		}
		all = append(all, items...)
	}

	// Новые первыми.
	sort.Slice(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})

	c.log.WithFields(logrus.Fields{
		"headlines": len(all),
		"sources":   len(c.sources),
	}).Info("collected headlines")
	return all
}

func (c *Collector) fetchFeed(ctx context.Context, src config.Source, now, cutoff time.Time) ([]post.Headline, error) {
	feed, err := c.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, err
	}

	var items []post.Headline
	for _, entry := range feed.Items {
		if len(items) >= c.maxPerSource {
			break
		}

		published := now
		switch {
		case entry.PublishedParsed != nil:
			published = *entry.PublishedParsed
		case entry.UpdatedParsed != nil:
			published = *entry.UpdatedParsed
		}
		if published.Before(cutoff) {
			continue
		}

		title := c.cleanText(entry.Title)
		if title == "" {
			continue
		}

		items = append(items, post.Headline{
			Title:     title,
			Summary:   c.cleanText(entry.Description),
			Link:      entry.Link,
			Published: published,
			Source:    src.Name,
		})
	}
	return items, nil
}

// cleanText убирает HTML-разметку и лишние пробелы из текста ленты.
func (c *Collector) cleanText(s string) string {
	s = c.sanitizer.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
