package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/okulov/mindcast_bot/internal/config"
)

// TimeOfDay — время суток с точностью до минуты.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// MinuteOfDay возвращает время как номер минуты с начала суток.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Window — режим публикаций через равные интервалы внутри дневного окна.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
	// Every — шаг между публикациями в минутах.
	Every int
}

// Config — расписание публикаций в развёрнутом виде. Ровно один из двух
// режимов активен: непустой Times имеет приоритет над Window, так что
// инвариант «один режим за проверку» обеспечен структурно.
type Config struct {
	Enabled bool
	Days    map[time.Weekday]bool
	Times   []TimeOfDay
	Window  *Window
}

// FromConfig разворачивает YAML-блок расписания. Дни недели в конфигурации
// нумеруются с понедельника (0), как в исходных настройках.
func FromConfig(sc config.Schedule) (Config, error) {
	cfg := Config{
		Enabled: sc.Enabled,
		Days:    make(map[time.Weekday]bool, len(sc.DaysOfWeek)),
	}
	for _, d := range sc.DaysOfWeek {
		if d < 0 || d > 6 {
			return Config{}, fmt.Errorf("day_of_week %d out of range 0-6", d)
		}
		cfg.Days[time.Weekday((d+1)%7)] = true
	}

	if len(sc.SpecificTimes) > 0 {
		for _, t := range sc.SpecificTimes {
			cfg.Times = append(cfg.Times, TimeOfDay{Hour: t.Hour, Minute: t.Minute})
		}
		sort.Slice(cfg.Times, func(i, j int) bool {
			return cfg.Times[i].MinuteOfDay() < cfg.Times[j].MinuteOfDay()
		})
		return cfg, nil
	}

	if sc.StartTime != nil && sc.EndTime != nil && sc.IntervalMinutes > 0 {
		w := &Window{
			Start: TimeOfDay{Hour: sc.StartTime.Hour, Minute: sc.StartTime.Minute},
			End:   TimeOfDay{Hour: sc.EndTime.Hour, Minute: sc.EndTime.Minute},
			Every: sc.IntervalMinutes,
		}
		if w.End.MinuteOfDay() < w.Start.MinuteOfDay() {
			return Config{}, fmt.Errorf("window end %s before start %s", w.End, w.Start)
		}
		cfg.Window = w
	}
	return cfg, nil
}

// SlotMatches сообщает, приходится ли now на момент публикации.
// Сравнение идёт с точностью до минуты: любой вызов внутри подходящей
// минуты считается совпадением, что покрывает дрожание цикла опроса.
func SlotMatches(cfg Config, now time.Time) bool {
	if !cfg.Enabled {
		return false
	}
	if !cfg.Days[now.Weekday()] {
		return false
	}

	md := now.Hour()*60 + now.Minute()

	if len(cfg.Times) > 0 {
		for _, t := range cfg.Times {
			if t.MinuteOfDay() == md {
				return true
			}
		}
		return false
	}

	if cfg.Window == nil {
		return false
	}
	start := cfg.Window.Start.MinuteOfDay()
	end := cfg.Window.End.MinuteOfDay()
	if md < start || md > end {
		return false
	}
	return (md-start)%cfg.Window.Every == 0
}

// NextSlot ищет ближайший будущий момент публикации в пределах недели
// вперёд. Возвращённое время всегда строго позже now и всегда приходится
// на день из cfg.Days. Второе значение false означает, что подходящего
// момента нет (расписание выключено или пустое).
func NextSlot(cfg Config, now time.Time) (time.Time, bool) {
	if !cfg.Enabled || len(cfg.Days) == 0 {
		return time.Time{}, false
	}
	if len(cfg.Times) == 0 && cfg.Window == nil {
		return time.Time{}, false
	}

	for offset := 0; offset <= 7; offset++ {
		day := now.AddDate(0, 0, offset)
		if !cfg.Days[day.Weekday()] {
			continue
		}

		for _, md := range daySlots(cfg) {
			candidate := time.Date(day.Year(), day.Month(), day.Day(), md/60, md%60, 0, 0, now.Location())
			if candidate.After(now) {
				return candidate, true
			}
		}
	}
	return time.Time{}, false
}

// daySlots возвращает моменты публикации одного дня в минутах от полуночи.
func daySlots(cfg Config) []int {
	if len(cfg.Times) > 0 {
		out := make([]int, 0, len(cfg.Times))
		for _, t := range cfg.Times {
			out = append(out, t.MinuteOfDay())
		}
		return out
	}

	var out []int
	for md := cfg.Window.Start.MinuteOfDay(); md <= cfg.Window.End.MinuteOfDay(); md += cfg.Window.Every {
		out = append(out, md)
	}
	return out
}
