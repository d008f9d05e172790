package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tazhate/eventcal/internal/calendar"
	"github.com/tazhate/eventcal/internal/domain"
	"github.com/tazhate/eventcal/internal/eventstore"
)

const (
	DefaultUpcomingLimit = 5
	DefaultTimeout       = 30 * time.Second
	DefaultToastDuration = 3 * time.Second
)

// Syncer is the sync client the controller drives
type Syncer interface {
	Store() *eventstore.Store
	LoadAll(ctx context.Context) error
	AddEvent(ctx context.Context, dateKey, description, color string) (domain.Event, error)
	Delete(ctx context.Context, id string) error
}

// Options tune a controller. Zero values select the defaults.
type Options struct {
	Formatter     calendar.Formatter
	UpcomingLimit int
	Timeout       time.Duration
	// ToastDuration is how long a toast stays up; negative keeps it until
	// DismissToast.
	ToastDuration time.Duration
}

// Controller is the widget state machine. Public methods only enqueue
// work; everything runs on the goroutine executing Run.
type Controller struct {
	sync          Syncer
	store         *eventstore.Store
	view          View
	format        calendar.Formatter
	upcomingLimit int
	timeout       time.Duration
	toastDuration time.Duration

	actions chan func()
	done    chan struct{}
	ctx     context.Context

	// loop-owned
	state      State
	prev       State
	year       int
	month      time.Month
	selected   string
	formDate   string
	modalDate  string
	submitting bool
	refreshing bool
	deleting   map[string]bool
	toastSeq   int
}

// New creates a controller. Call Run to start it.
func New(sync Syncer, view View, opts Options) *Controller {
	if opts.Formatter == nil {
		opts.Formatter = calendar.NewFormatter("")
	}
	if opts.UpcomingLimit <= 0 {
		opts.UpcomingLimit = DefaultUpcomingLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ToastDuration == 0 {
		opts.ToastDuration = DefaultToastDuration
	}
	return &Controller{
		sync:          sync,
		store:         sync.Store(),
		view:          view,
		format:        opts.Formatter,
		upcomingLimit: opts.UpcomingLimit,
		timeout:       opts.Timeout,
		toastDuration: opts.ToastDuration,
		actions:       make(chan func(), 64),
		done:          make(chan struct{}),
		ctx:           context.Background(),
		deleting:      make(map[string]bool),
	}
}

// Run renders the current month, loads events and processes actions until
// ctx is done. It must be called once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	c.ctx = ctx

	today := c.today()
	c.year, c.month = today.Year(), today.Month()
	c.render()
	c.refresh()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.actions:
			fn()
		}
	}
}

// post enqueues fn on the loop. It is dropped once the loop has stopped.
func (c *Controller) post(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.done:
	}
}

// Snapshot returns the current state. It blocks until the loop answers.
func (c *Controller) Snapshot() Snapshot {
	ch := make(chan Snapshot, 1)
	c.post(func() {
		ch <- Snapshot{
			State:      c.state,
			Year:       c.year,
			Month:      c.month,
			Selected:   c.selected,
			FormDate:   c.formDate,
			ModalDate:  c.modalDate,
			Submitting: c.submitting,
		}
	})
	select {
	case s := <-ch:
		return s
	case <-c.done:
		return Snapshot{}
	}
}

func (c *Controller) SelectDate(dateKey string) { c.post(func() { c.selectDate(dateKey) }) }
func (c *Controller) ClickDay(dateKey string)   { c.post(func() { c.clickDay(dateKey) }) }
func (c *Controller) OpenForm()                 { c.post(c.openForm) }
func (c *Controller) CancelForm()               { c.post(c.cancelForm) }
func (c *Controller) CloseModal()               { c.post(c.closeModal) }
func (c *Controller) DismissToast()             { c.post(c.dismissToast) }
func (c *Controller) NextMonth()                { c.post(func() { c.navigate(1) }) }
func (c *Controller) PrevMonth()                { c.post(func() { c.navigate(-1) }) }
func (c *Controller) Today()                    { c.post(c.goToday) }
func (c *Controller) Refresh()                  { c.post(c.refresh) }

// Redraw re-renders from the store without contacting the backend
func (c *Controller) Redraw() {
	c.post(func() {
		c.render()
		c.refreshModal(c.modalDate)
	})
}

// Submit adds an event for the form's date. Ignored unless the form is
// open and no submission is in flight.
func (c *Controller) Submit(description, color string) {
	c.post(func() { c.submit(description, color) })
}

// DeleteEvent deletes an event listed in the modal
func (c *Controller) DeleteEvent(id string) {
	c.post(func() { c.deleteEvent(id) })
}

func (c *Controller) token() viewToken {
	return viewToken{year: c.year, month: c.month, selected: c.selected}
}

func (c *Controller) today() time.Time {
	t, err := domain.ParseDateKeyIn(c.store.Today(), c.store.Location())
	if err != nil {
		return time.Now().In(c.store.Location())
	}
	return t
}

func (c *Controller) render() {
	c.renderMonth()
	c.view.RenderUpcoming(c.store.Upcoming(c.upcomingLimit))
}

func (c *Controller) renderMonth() {
	c.view.RenderMonth(MonthView{
		Year:     c.year,
		Month:    c.month,
		Title:    c.format.MonthTitle(c.year, c.month),
		Cells:    calendar.MonthGrid(c.year, c.month, c.today()),
		Counts:   c.store.Counts(c.year, c.month),
		Selected: c.selected,
	})
}

func (c *Controller) toast(kind ToastKind, message string) {
	c.toastSeq++
	seq := c.toastSeq
	c.view.ShowToast(Toast{Kind: kind, Message: message})

	if c.toastDuration > 0 {
		time.AfterFunc(c.toastDuration, func() {
			c.post(func() {
				if c.toastSeq == seq {
					c.view.HideToast()
				}
			})
		})
	}
}

func (c *Controller) dismissToast() {
	c.toastSeq++
	c.view.HideToast()
}

func (c *Controller) selectDate(dateKey string) bool {
	day, err := domain.ParseDateKeyIn(dateKey, c.store.Location())
	if err != nil {
		c.toast(ToastError, "Invalid date")
		return false
	}

	if c.state == ModalOpen {
		c.view.HideModal()
		c.modalDate = ""
		c.state = c.prev
	}

	c.selected = dateKey
	c.formDate = dateKey
	c.year, c.month = day.Year(), day.Month()
	c.view.SetFormDate(dateKey)

	// An open form stays open with the new date
	if c.state != FormOpen {
		c.state = DateSelected
	}
	c.renderMonth()
	return true
}

func (c *Controller) clickDay(dateKey string) {
	if !c.selectDate(dateKey) {
		return
	}
	events := c.store.EventsOn(dateKey)
	if len(events) == 0 {
		return
	}
	c.prev = c.state
	c.state = ModalOpen
	c.modalDate = dateKey
	c.view.ShowModal(dateKey, events)
}

func (c *Controller) openForm() {
	if c.state == ModalOpen {
		c.view.HideModal()
		c.modalDate = ""
	}

	date := c.selected
	if date == "" {
		date = c.store.Today()
	}
	c.formDate = date
	c.state = FormOpen
	c.view.ShowForm(date)
	c.view.SetSubmitEnabled(!c.submitting)
}

func (c *Controller) cancelForm() {
	if c.state != FormOpen {
		return
	}
	c.view.HideForm()
	c.state = c.restingState()
}

// restingState is where the widget returns when nothing is open
func (c *Controller) restingState() State {
	if c.selected != "" {
		return DateSelected
	}
	return Idle
}

func (c *Controller) closeModal() {
	if c.state != ModalOpen {
		return
	}
	c.view.HideModal()
	c.modalDate = ""
	c.state = c.prev
	if c.state == FormOpen {
		c.view.ShowForm(c.formDate)
	}
}

// refreshModal redraws the modal if it still lists dateKey
func (c *Controller) refreshModal(dateKey string) {
	if c.state != ModalOpen || c.modalDate != dateKey {
		return
	}
	events := c.store.EventsOn(dateKey)
	if len(events) == 0 {
		c.closeModal()
		return
	}
	c.view.ShowModal(dateKey, events)
}

func (c *Controller) navigate(delta int) {
	c.year, c.month = calendar.Shift(c.year, c.month, delta)
	c.renderMonth()
}

func (c *Controller) goToday() {
	today := c.today()
	c.year, c.month = today.Year(), today.Month()
	c.renderMonth()
}

func (c *Controller) submit(description, color string) {
	if c.state != FormOpen || c.submitting {
		return
	}
	c.submitting = true
	c.view.SetSubmitEnabled(false)

	date := c.formDate
	ctx := c.ctx
	go func() {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		event, err := c.sync.AddEvent(ctx, date, description, color)
		c.post(func() { c.submitDone(date, event, err) })
	}()
}

// submitDone applies a submission's outcome. The result is stale only when
// the form has been retargeted to another date; month navigation keeps it.
func (c *Controller) submitDone(date string, event domain.Event, err error) {
	c.submitting = false
	c.view.SetSubmitEnabled(true)
	c.render()

	if err != nil && !domain.IsValidation(err) {
		log.Printf("Controller: add event failed: %v", err)
	}
	if c.formDate != date {
		return
	}

	var ve *domain.ValidationError
	switch {
	case err == nil:
		switch {
		case c.state == FormOpen:
			c.view.HideForm()
			c.state = DateSelected
		case c.state == ModalOpen && c.prev == FormOpen:
			c.view.HideForm()
			c.prev = DateSelected
		}
		c.refreshModal(event.DateKey)
		c.toast(ToastSuccess, "Event added")

	case errors.As(err, &ve):
		if c.state == FormOpen {
			c.view.ShowFormError(ve.Error())
		}

	default:
		c.toast(ToastError, "Could not save event")
		if c.state == FormOpen {
			c.view.ShowFormError(fmt.Sprintf("Not saved: %v", err))
		}
	}
}

func (c *Controller) deleteEvent(id string) {
	if c.deleting[id] {
		return
	}
	if domain.IsLocal(id) {
		c.toast(ToastInfo, "Event is still being saved")
		return
	}
	event, ok := c.store.Find(id)
	if !ok {
		c.toast(ToastInfo, "Event was already deleted")
		c.refreshModal(c.modalDate)
		return
	}

	c.deleting[id] = true
	tok := c.token()
	ctx := c.ctx
	go func() {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		err := c.sync.Delete(ctx, id)
		c.post(func() { c.deleteDone(tok, event.DateKey, id, err) })
	}()
}

func (c *Controller) deleteDone(tok viewToken, dateKey, id string, err error) {
	delete(c.deleting, id)
	c.render()
	c.refreshModal(dateKey)

	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Printf("Controller: delete event %s failed: %v", id, err)
	}
	if tok != c.token() {
		return
	}

	switch {
	case err == nil:
		c.toast(ToastSuccess, "Event deleted")
	case errors.Is(err, domain.ErrNotFound):
		c.toast(ToastInfo, "Event was already deleted")
	default:
		c.toast(ToastError, "Could not delete event")
	}
}

func (c *Controller) refresh() {
	if c.refreshing {
		return
	}
	c.refreshing = true

	tok := c.token()
	ctx := c.ctx
	go func() {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		err := c.sync.LoadAll(ctx)
		c.post(func() { c.refreshDone(tok, err) })
	}()
}

func (c *Controller) refreshDone(tok viewToken, err error) {
	c.refreshing = false
	c.render()
	c.refreshModal(c.modalDate)

	if err == nil {
		return
	}
	log.Printf("Controller: load events failed: %v", err)
	if tok == c.token() {
		c.toast(ToastError, "Could not load events")
	}
}
