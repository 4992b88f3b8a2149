package generator

import (
	"fmt"
	"strings"

	"github.com/okulov/mindcast_bot/internal/post"
)

// Списки по умолчанию; перекрываются конфигурацией.

var defaultThemes = []string{
	"Память как редактор: что, если воспоминания выживают за счёт своей драматургии?",
	"Сознание без наблюдателя: возможно ли «я», если никто не фиксирует его наличие?",
	"Нейроэкономика веры: почему мозгу выгодно верить в невыгодное?",
	"Алгоритмы идентичности: кто мы, если нас описывают через паттерны поведения?",
	"Функция скуки в эпоху постоянной стимуляции",
	"Цифровой стыд: почему мы ощущаем вину за то, что видят алгоритмы?",
	"Информационная гомеопатия: может ли микродоза смысла лечить хаос?",
	"Иллюзия выбора между иллюзиями: UX мышления в реальности",
	"Когнитивная синестезия: как запах новостей влияет на вкус реальности",
	"Цифровое просветление и синдром постоянного апдейта",
	"Нейропластичность как философский приговор: нет стабильного «я»",
	"Психологический фоновый шум: как интернет изменил молчание",
	"Чувство времени после лайка: когда момент перестаёт быть настоящим",
	"Археология будущего: что останется от нас в сознании ИИ?",
	"Сакрализация хаоса: как культ неопределённости стал нормой",
	"Психоанализ в формате сторис: разбор себя за 15 секунд",
	"Самоидентификация как пользовательское соглашение",
	"Можно ли ощущать подлинность в эпоху нейросетевого лицемерия?",
	"Когнитивное выгорание как культурный ритуал постиронии",
}

var defaultFormats = []string{
	"когнитивное откровение в стиле твита",
	"псевдонаучное объяснение внутреннего конфликта",
	"сравнение философского вопроса с бытовой ситуацией",
	"культурный нейро-факт с непрошенным выводом",
	"внутренний монолог цифрового шамана",
	"мини-сценка в духе чёрного зеркала",
	"поэтическая декомпозиция абсурдной идеи",
	"утопический прогноз, который выглядит как сатира",
	"краткий инструктаж по выживанию в ментальной симуляции",
	"диалог между архетипами (например, Тень и Эго)",
	"разрушение иллюзии через бытовой пример",
	"история из будущего, в которой всё пошло не так",
	"обращение от лица алгоритма к своему пользователю",
	"сенсорное описание абстрактного понятия",
	"мысленный эксперимент с катастрофическим результатом",
	"ироничная переписка с подсознанием",
	"сравнение человеческого поведения с багом в коде",
	"циничный афоризм в псевдо-коучинговом тоне",
}

var defaultEndings = []string{
	"завершить эффектом недосказанности",
	"завершить внутренним парадоксом без комментариев",
	"завершить неожиданной сменой тона",
	"завершить как будто это был сон",
	"завершить фразой, которую читатель не сможет забыть (и не поймёт почему)",
	"завершить поддельной уверенностью в абсурдной истине",
	"завершить цитатой, которую никто не сможет найти",
	"завершить так, будто это был тизер к продолжению",
	"завершить иллюзией глубокого смысла",
	"завершить обрывом мысли на пике напряжения",
	"завершить ультралаконично, как будто всё сказано одним словом",
	"завершить ощущением, что читатель что-то упустил",
	"завершить намёком на несуществующую концепцию",
	"завершить шёпотом, который слышен в голове",
	"завершить мета-комментарием, ломающим четвёртую стену",
}

var defaultKeywords = []string{
	"внимание", "ритуал", "алгоритм", "тишина", "память", "граница",
	"зеркало", "привычка", "сигнал", "пауза", "иллюзия", "фокус",
	"шум", "архив", "маска", "поток", "след", "порог",
}

const classicTemplate = `Сгенерируй пост для публикации в телеграм-канале на тему «%s».
Пост должен быть в формате: %s.

Длина: %d-%d символов.

Важные инструкции:
- Используй разговорный, но культурный стиль
- Избегай банальных фраз и избитых выражений
- Будь оригинальным, не повторяй шаблонные мысли
- Включи элемент неожиданности или новой перспективы
- Используй HTML-форматирование для выделения текста:
  - Заголовок выделяй тегом <b>жирным</b>
  - Важные термины выделяй тегом <i>курсивом</i>
- %s

ВАЖНО: В канале ОТКЛЮЧЕНЫ комментарии, поэтому НЕ ПРИЗЫВАЙ к обсуждению
и не задавай вопросы, предполагающие ответ в комментариях.`

const keywordsTemplate = `Напиши пост для телеграм-канала, отталкиваясь от ключевых слов: %s.

Длина: %d-%d символов. Стиль разговорный, но культурный; без банальностей.
Ключевые слова — отправная точка, не перечисляй их списком.

Ответ верни строго как JSON-объект вида:
{"post": "текст поста с HTML-тегами <b> и <i>"}`

const headlinesTemplate = `Вот свежие новостные заголовки:
%s

Напиши пост для телеграм-канала: короткое наблюдение о времени, в котором
мы живём, опираясь на эти заголовки, но не пересказывая их.

Длина: %d-%d символов. Используй HTML-теги <b> и <i> для выделения.
Не упоминай источники и не вставляй ссылки.

ВАЖНО: В канале ОТКЛЮЧЕНЫ комментарии, не призывай к обсуждению.`

func buildClassicPrompt(theme, format, ending string, minChars, maxChars int) string {
	return fmt.Sprintf(classicTemplate, theme, format, minChars, maxChars, ending)
}

func buildKeywordsPrompt(keywords []string, minChars, maxChars int) string {
	return fmt.Sprintf(keywordsTemplate, strings.Join(keywords, ", "), minChars, maxChars)
}

func buildHeadlinesPrompt(items []post.Headline, minChars, maxChars int) string {
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item.Title)
	}
	return fmt.Sprintf(headlinesTemplate, sb.String(), minChars, maxChars)
}
