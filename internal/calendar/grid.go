package calendar

import (
	"time"

	"github.com/tazhate/eventcal/internal/domain"
)

const (
	// Weeks is the number of rows in a month view
	Weeks = 6
	// GridSize is the number of day cells in a month view
	GridSize = Weeks * 7
)

// Cell is one day slot of a month view
type Cell struct {
	Date    time.Time
	Key     string
	Day     int
	InMonth bool
	IsToday bool
}

// MonthGrid returns the 42 cells of the month view for year/month. The
// first row starts on the Sunday on or before the 1st. Cells are dated in
// today's location.
func MonthGrid(year int, month time.Month, today time.Time) []Cell {
	loc := today.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	// Normalize overflowing months such as 13 before comparing below.
	year, month = first.Year(), first.Month()
	start := first.AddDate(0, 0, -int(first.Weekday()))
	todayKey := domain.DateKeyOf(today)

	cells := make([]Cell, 0, GridSize)
	for i := 0; i < GridSize; i++ {
		d := start.AddDate(0, 0, i)
		key := domain.DateKeyOf(d)
		cells = append(cells, Cell{
			Date:    d,
			Key:     key,
			Day:     d.Day(),
			InMonth: d.Year() == year && d.Month() == month,
			IsToday: key == todayKey,
		})
	}
	return cells
}

// Shift moves year/month by delta months
func Shift(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

// Rows splits a grid into weeks
func Rows(cells []Cell) [][]Cell {
	var rows [][]Cell
	for i := 0; i+7 <= len(cells); i += 7 {
		rows = append(rows, cells[i:i+7])
	}
	return rows
}
