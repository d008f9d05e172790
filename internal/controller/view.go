package controller

import "github.com/tazhate/eventcal/internal/domain"

// View is the display binding driven by the controller. All methods are
// called from the controller loop goroutine.
type View interface {
	RenderMonth(m MonthView)
	RenderUpcoming(events []domain.Event)

	ShowForm(dateKey string)
	SetFormDate(dateKey string)
	ShowFormError(message string)
	SetSubmitEnabled(enabled bool)
	HideForm()

	ShowModal(dateKey string, events []domain.Event)
	HideModal()

	ShowToast(t Toast)
	HideToast()
}
