package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okulov/mindcast_bot/internal/post"
)

type (
	// Root объединяет все конфигурационные блоки бота.
	Root struct {
		Schedule   Schedule   `yaml:"schedule"`
		Generation Generation `yaml:"generation"`
		Headlines  Headlines  `yaml:"headlines"`
		Dialogue   Dialogue   `yaml:"dialogue"`
		Telegram   Telegram   `yaml:"telegram"`
		Storage    Storage    `yaml:"storage"`
	}

	// TimeSpec — время суток в расписании.
	TimeSpec struct {
		Hour   int `yaml:"hour"`
		Minute int `yaml:"minute"`
	}

	// Schedule описывает расписание публикаций. Ровно один из двух режимов
	// должен быть задан: либо specific_times, либо окно start_time/end_time
	// с interval_minutes. При заполненных specific_times окно игнорируется.
	Schedule struct {
		Enabled bool `yaml:"enabled"`
		// DaysOfWeek — дни недели, 0 = понедельник (как в исходной конфигурации).
		DaysOfWeek        []int      `yaml:"days_of_week"`
		SpecificTimes     []TimeSpec `yaml:"specific_times"`
		StartTime         *TimeSpec  `yaml:"start_time"`
		EndTime           *TimeSpec  `yaml:"end_time"`
		IntervalMinutes   int        `yaml:"interval_minutes"`
		PollSeconds       int        `yaml:"poll_seconds"`
		SpacingMinutes    int        `yaml:"spacing_minutes"`
		RetentionDays     int        `yaml:"retention_days"`
		GenerateOnStartup bool       `yaml:"generate_on_startup"`
	}

	// Generation содержит параметры генерации текста.
	Generation struct {
		Mode        string   `yaml:"mode"`
		Model       string   `yaml:"model"`
		Themes      []string `yaml:"themes"`
		Formats     []string `yaml:"formats"`
		Endings     []string `yaml:"endings"`
		Keywords    []string `yaml:"keywords"`
		HistorySize int      `yaml:"history_size"`
		HistoryPath string   `yaml:"history_path"`
		MinChars    int      `yaml:"min_chars"`
		MaxChars    int      `yaml:"max_chars"`
	}

	// Headlines настраивает сбор и фильтрацию новостных заголовков.
	Headlines struct {
		Sources        []Source `yaml:"sources"`
		MaxPerSource   int      `yaml:"max_per_source"`
		MaxAgeHours    int      `yaml:"max_age_hours"`
		Limit          int      `yaml:"limit"`
		Denylist       []string `yaml:"denylist"`
		Allowlist      []string `yaml:"allowlist"`
		SkipMarkers    []string `yaml:"skip_markers"`
		MinTitleLength int      `yaml:"min_title_length"`
	}

	// Source — один RSS-источник.
	Source struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	}

	// Dialogue настраивает режим цепочек диалогов.
	Dialogue struct {
		Thinkers          []Thinker `yaml:"thinkers"`
		MaxActiveThreads  int       `yaml:"max_active_threads"`
		MaxPostsPerThread int       `yaml:"max_posts_per_thread"`
		StaleHours        int       `yaml:"stale_hours"`
	}

	// Thinker — участник диалогов.
	Thinker struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Style string `yaml:"style"`
	}

	// Telegram содержит параметры доставки сообщений.
	Telegram struct {
		ParseMode string `yaml:"parse_mode"`
	}

	// Storage задаёт путь к базе данных постов.
	Storage struct {
		Path string `yaml:"path"`
	}
)

// Load читает основной файл конфигурации и подставляет значения по умолчанию.
func Load(path string) (Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Root{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Root
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Root{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Root{}, err
	}
	return cfg, nil
}

func (c *Root) applyDefaults() {
	if c.Schedule.PollSeconds <= 0 {
		c.Schedule.PollSeconds = 60
	}
	if c.Schedule.SpacingMinutes <= 0 {
		c.Schedule.SpacingMinutes = 5
	}
	if c.Schedule.RetentionDays <= 0 {
		c.Schedule.RetentionDays = 30
	}
	if c.Generation.Mode == "" {
		c.Generation.Mode = "classic"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "deepseek-chat"
	}
	if c.Generation.HistorySize <= 0 {
		c.Generation.HistorySize = 10
	}
	if c.Generation.HistoryPath == "" {
		c.Generation.HistoryPath = "state/generation_history.json"
	}
	if c.Generation.MinChars <= 0 {
		c.Generation.MinChars = 225
	}
	if c.Generation.MaxChars <= 0 {
		c.Generation.MaxChars = 375
	}
	if c.Headlines.MaxPerSource <= 0 {
		c.Headlines.MaxPerSource = 5
	}
	if c.Headlines.MaxAgeHours <= 0 {
		c.Headlines.MaxAgeHours = 24
	}
	if c.Headlines.Limit <= 0 {
		c.Headlines.Limit = 5
	}
	if c.Headlines.MinTitleLength <= 0 {
		c.Headlines.MinTitleLength = 20
	}
	if c.Dialogue.MaxActiveThreads <= 0 {
		c.Dialogue.MaxActiveThreads = 3
	}
	if c.Dialogue.MaxPostsPerThread <= 0 {
		c.Dialogue.MaxPostsPerThread = 5
	}
	if c.Dialogue.StaleHours <= 0 {
		c.Dialogue.StaleHours = 48
	}
	if c.Telegram.ParseMode == "" {
		c.Telegram.ParseMode = "HTML"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/scheduled_posts.db"
	}
}

func (c *Root) validate() error {
	hasTimes := len(c.Schedule.SpecificTimes) > 0
	hasWindow := c.Schedule.StartTime != nil || c.Schedule.EndTime != nil || c.Schedule.IntervalMinutes > 0

	if c.Schedule.Enabled && !hasTimes && !hasWindow {
		return fmt.Errorf("schedule: either specific_times or an interval window must be configured")
	}
	if hasWindow && !hasTimes {
		if c.Schedule.StartTime == nil || c.Schedule.EndTime == nil {
			return fmt.Errorf("schedule: interval window requires both start_time and end_time")
		}
		if c.Schedule.IntervalMinutes <= 0 {
			return fmt.Errorf("schedule: interval window requires positive interval_minutes")
		}
	}

	for _, d := range c.Schedule.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("schedule: day_of_week %d out of range 0-6", d)
		}
	}

	for _, t := range c.Schedule.SpecificTimes {
		if err := t.validate(); err != nil {
			return fmt.Errorf("schedule: specific_times: %w", err)
		}
	}

	if !post.Mode(c.Generation.Mode).Valid() {
		return fmt.Errorf("generation: unknown mode %q", c.Generation.Mode)
	}
	return nil
}

func (t TimeSpec) validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("invalid time %02d:%02d", t.Hour, t.Minute)
	}
	return nil
}
