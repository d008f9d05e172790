package calendar

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Formatter renders dates for display in one locale
type Formatter interface {
	Locale() string
	MonthTitle(year int, month time.Month) string
	DayLabel(t time.Time) string
	WeekdayShort(d time.Weekday) string
	Clock(t time.Time) string
}

type localeNames struct {
	tag       language.Tag
	months    [12]string
	weekdays  [7]string // Sunday first
	dayLabel  func(n *localeNames, t time.Time) string
	monthDays [12]string // genitive month names where the language needs them
}

var locales = []*localeNames{
	{
		tag: language.Vietnamese,
		months: [12]string{
			"tháng 1", "tháng 2", "tháng 3", "tháng 4", "tháng 5", "tháng 6",
			"tháng 7", "tháng 8", "tháng 9", "tháng 10", "tháng 11", "tháng 12",
		},
		weekdays: [7]string{"CN", "T2", "T3", "T4", "T5", "T6", "T7"},
		dayLabel: func(n *localeNames, t time.Time) string {
			return fmt.Sprintf("%d %s, %d", t.Day(), n.months[t.Month()-1], t.Year())
		},
	},
	{
		tag: language.English,
		months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		weekdays: [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"},
		dayLabel: func(n *localeNames, t time.Time) string {
			return fmt.Sprintf("%s %d, %d", n.months[t.Month()-1], t.Day(), t.Year())
		},
	},
	{
		tag: language.Russian,
		months: [12]string{
			"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
			"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
		},
		monthDays: [12]string{
			"января", "февраля", "марта", "апреля", "мая", "июня",
			"июля", "августа", "сентября", "октября", "ноября", "декабря",
		},
		weekdays: [7]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"},
		dayLabel: func(n *localeNames, t time.Time) string {
			return fmt.Sprintf("%d %s %d", t.Day(), n.monthDays[t.Month()-1], t.Year())
		},
	},
}

var matcher = newMatcher()

func newMatcher() language.Matcher {
	tags := make([]language.Tag, 0, len(locales))
	for _, l := range locales {
		tags = append(tags, l.tag)
	}
	return language.NewMatcher(tags)
}

// NewFormatter returns the formatter best matching a BCP 47 locale or an
// Accept-Language style list. Unknown or empty input falls back to
// Vietnamese.
func NewFormatter(locale string) Formatter {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return &formatter{names: locales[0]}
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		idx = 0
	}
	return &formatter{names: locales[idx]}
}

type formatter struct {
	names *localeNames
}

func (f *formatter) Locale() string {
	return f.names.tag.String()
}

// MonthTitle renders "MMMM, YYYY"
func (f *formatter) MonthTitle(year int, month time.Month) string {
	return fmt.Sprintf("%s, %d", f.names.months[month-1], year)
}

func (f *formatter) DayLabel(t time.Time) string {
	return f.names.dayLabel(f.names, t)
}

func (f *formatter) WeekdayShort(d time.Weekday) string {
	return f.names.weekdays[d]
}

func (f *formatter) Clock(t time.Time) string {
	return t.Format("15:04")
}
