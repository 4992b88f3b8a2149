package dialogue

import (
	"time"

	"github.com/google/uuid"
)

// ThreadPost — один пост внутри диалоговой цепочки.
type ThreadPost struct {
	ThinkerID string    `json:"thinker_id"`
	Text      string    `json:"text"`
	MessageID int64     `json:"message_id"`
	PostedAt  time.Time `json:"posted_at"`
}

// Thread — цепочка постов-реплик вокруг одной темы. Посты публикуются
// ответами друг на друга, поэтому цепочка хранит message_id последнего
// поста. Закрытая цепочка не продолжается никогда.
type Thread struct {
	ID          string       `json:"id"`
	Theme       string       `json:"theme"`
	Posts       []ThreadPost `json:"posts"`
	LastSpeaker string       `json:"last_speaker"`
	CreatedAt   time.Time    `json:"created_at"`
	LastPostAt  time.Time    `json:"last_post_at"`
	Active      bool         `json:"active"`
}

// newThread создаёт пустую активную цепочку.
func newThread(theme string, now time.Time) *Thread {
	return &Thread{
		ID:        uuid.NewString(),
		Theme:     theme,
		CreatedAt: now,
		Active:    true,
	}
}

// lastMessageID возвращает message_id последнего поста цепочки.
func (t *Thread) lastMessageID() int64 {
	if len(t.Posts) == 0 {
		return 0
	}
	return t.Posts[len(t.Posts)-1].MessageID
}

// append добавляет пост и сдвигает метки.
func (t *Thread) append(p ThreadPost) {
	t.Posts = append(t.Posts, p)
	t.LastSpeaker = p.ThinkerID
	t.LastPostAt = p.PostedAt
}

// stale сообщает, простаивает ли цепочка дольше limit.
func (t *Thread) stale(now time.Time, limit time.Duration) bool {
	ref := t.LastPostAt
	if ref.IsZero() {
		ref = t.CreatedAt
	}
	return now.Sub(ref) > limit
}
