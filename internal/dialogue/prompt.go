package dialogue

import (
	"fmt"
	"strings"

	"github.com/okulov/mindcast_bot/internal/config"
)

// contextPosts — сколько последних реплик цепочки попадает в промпт.
const contextPosts = 3

func buildOpeningPrompt(thinker config.Thinker, theme string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ты %s. Твоя манера: %s.\n\n", thinker.Name, thinker.Style)
	fmt.Fprintf(&b, "Начни размышление на тему «%s» для Telegram-канала.\n", theme)
	b.WriteString("Это первая реплика будущего диалога: вырази позицию, ")
	b.WriteString("на которую собеседнику захочется ответить.\n")
	b.WriteString("Объём 200-350 символов. Пиши только текст реплики, без пояснений и кавычек.")
	return b.String()
}

func buildReplyPrompt(thinker config.Thinker, th *Thread) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ты %s. Твоя манера: %s.\n\n", thinker.Name, thinker.Style)
	fmt.Fprintf(&b, "Идёт диалог на тему «%s». Последние реплики:\n\n", th.Theme)

	posts := th.Posts
	if len(posts) > contextPosts {
		posts = posts[len(posts)-contextPosts:]
	}
	for _, p := range posts {
		fmt.Fprintf(&b, "[%s]: %s\n\n", p.ThinkerID, p.Text)
	}

	b.WriteString("Ответь на последнюю реплику: согласись, возрази или разверни мысль.\n")
	b.WriteString("Объём 200-350 символов. Пиши только текст реплики, без пояснений и кавычек.")
	return b.String()
}
