package headlines

// Списки по умолчанию; перекрываются конфигурацией.

// defaultDenylist — жёсткое исключение военной и конфликтной тематики.
var defaultDenylist = []string{
	"всу", "удар", "обстрел", "военный", "армия", "конфликт", "война",
	"боевые действия", "атака", "наступление", "оборона", "фронт",
	"солдат", "офицер", "генерал", "командование", "штаб",
	"белгород", "донбасс", "украина", "сво", "луганск", "донецк",
	"херсон", "запорожье", "крым", "курск",
	"танк", "бпла", "ракета", "дрон", "артиллерия", "снаряд",
	"беспилотник", "истребитель", "бомбардировщик", "ввс",
	"корабль", "подлодка", "флот", "крейсер", "фрегат",
	"операция", "мобилизация", "призыв", "резерв", "батальон",
	"полк", "дивизия", "бригада", "взвод", "рота",
	"нато", "пентагон", "генштаб", "минобороны", "разведка",
	"санкции", "взрывы", "подрыв", "конфискация", "геополитика",
	"дипломатия", "посол", "мид", "внешняя политика",
}

// defaultAllowlist — предпочтительные мирные темы.
var defaultAllowlist = []string{
	"исследование", "ученые", "открытие", "ии", "искусственный интеллект",
	"стартап", "технология", "инновация", "разработка", "изобретение",
	"космос", "наука", "эксперимент", "лаборатория",
	"экономика", "бизнес", "инвестиции", "рынок", "компания",
	"банк", "финансы", "торговля", "производство", "промышленность",
	"рост", "развитие", "проект", "инициатива",
	"культура", "искусство", "образование", "музей", "театр",
	"фестиваль", "выставка", "концерт", "книга", "литература",
	"кино", "университет", "школа", "студенты",
	"здоровье", "медицина", "лечение", "вакцина", "терапия",
	"экология", "природа", "окружающая среда", "климат",
	"социальный", "благотворительность", "помощь", "поддержка",
	"спорт", "олимпиада", "чемпионат", "соревнование", "турнир",
}

// defaultSkipMarkers — рекламные и служебные пометки.
var defaultSkipMarkers = []string{"реклама", "спонсор", "партнер", "pr", "промо"}

// defaultSources — RSS-ленты из исходной конфигурации сборщика.
var defaultSources = map[string]string{
	"ria":       "https://ria.ru/export/rss2/archive/index.xml",
	"lenta":     "https://lenta.ru/rss",
	"rbc":       "https://rssexport.rbc.ru/rbcnews/news/20/full.rss",
	"vedomosti": "https://www.vedomosti.ru/rss/news",
	"habr":      "https://habr.com/ru/rss/all/all/",
	"nplus1":    "https://nplus1.ru/rss",
}
