package controller

import (
	"time"

	"github.com/tazhate/eventcal/internal/calendar"
)

// State is the widget's interaction state
type State int

const (
	Idle State = iota
	DateSelected
	FormOpen
	ModalOpen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DateSelected:
		return "date-selected"
	case FormOpen:
		return "form-open"
	case ModalOpen:
		return "modal-open"
	}
	return "unknown"
}

// ToastKind selects the toast style
type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastSuccess
	ToastError
)

// Toast is a short transient message
type Toast struct {
	Kind    ToastKind
	Message string
}

// MonthView is everything needed to draw the month grid
type MonthView struct {
	Year     int
	Month    time.Month
	Title    string
	Cells    []calendar.Cell
	Counts   map[string]int // events per date key
	Selected string
}

// Snapshot is a read-only copy of the controller state
type Snapshot struct {
	State      State
	Year       int
	Month      time.Month
	Selected   string
	FormDate   string
	ModalDate  string
	Submitting bool
}

// viewToken identifies what the user is looking at. Async completions
// whose token no longer matches skip their UI effects.
type viewToken struct {
	year     int
	month    time.Month
	selected string
}
