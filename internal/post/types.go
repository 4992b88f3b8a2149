package post

import "time"

// ScheduledPost описывает запись очереди публикаций.
// scheduled_time выставляется при создании и больше не меняется;
// IsSent переходит из false в true ровно один раз.
type ScheduledPost struct {
	ID              int64     `json:"id"`
	ScheduledTime   time.Time `json:"scheduled_time"`
	Text            string    `json:"text"`
	IsSent          bool      `json:"is_sent"`
	IsAutoGenerated bool      `json:"is_auto_generated"`
}

// CachedPost — заранее сгенерированный пост из кэша.
// После установки IsUsed запись больше никогда не выдаётся.
type CachedPost struct {
	ID            int64     `json:"id"`
	GeneratedTime time.Time `json:"generated_time"`
	Text          string    `json:"text"`
	IsUsed        bool      `json:"is_used"`
}

// Headline — один заголовок, полученный из RSS-источника.
type Headline struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Source    string    `json:"source"`
}

// GenerationRecord хранит параметры одной генерации для учёта свежести
// тем и форматов при последующем случайном выборе.
type GenerationRecord struct {
	Theme     string    `json:"theme"`
	Format    string    `json:"format"`
	Ending    string    `json:"ending"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Mode задаёт режим генерации постов.
type Mode string

const (
	// ModeClassic — одиночные посты по теме/формату/концовке.
	ModeClassic Mode = "classic"
	// ModeKeywords — посты на основе случайных ключевых слов.
	ModeKeywords Mode = "keywords"
	// ModeHeadlines — посты с опорой на отфильтрованные новостные заголовки.
	ModeHeadlines Mode = "headlines"
	// ModeThreads — цепочки постов-диалогов между мыслителями.
	ModeThreads Mode = "threads"
	// ModeMixed — случайный выбор между classic и threads.
	ModeMixed Mode = "mixed"
)

// Valid сообщает, известен ли режим.
func (m Mode) Valid() bool {
	switch m {
	case ModeClassic, ModeKeywords, ModeHeadlines, ModeThreads, ModeMixed:
		return true
	}
	return false
}
