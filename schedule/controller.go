package schedule

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Almirante-Ming/Rose/booking"
	"github.com/Almirante-Ming/Rose/client"
	"github.com/Almirante-Ming/Rose/role"
	"go.uber.org/zap"
)

const UpcomingLimit = 5

type Gateway interface {
	ListUserBookings(ctx context.Context) (booking.ByDate, error)
	CancelBooking(ctx context.Context, b booking.Booking, reason string) error
	RescheduleBooking(ctx context.Context, b booking.Booking, at time.Time) (booking.Booking, error)
	ConfirmBooking(ctx context.Context, b booking.Booking) error
}

type RoleSource interface {
	CurrentRole(ctx context.Context) (role.Role, error)
}

type Action string

const (
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionConfirm    Action = "confirm"
)

// Prompt is the nested dialog open on top of the booking detail.
type Prompt string

const (
	PromptNone       Prompt = ""
	PromptCancel     Prompt = "cancel"
	PromptReschedule Prompt = "reschedule"
)

type State struct {
	SelectedDate    string
	Bookings        booking.ByDate
	IsLoading       bool
	IsSubmitting    bool
	SelectedBooking *booking.Booking
	IsDetailOpen    bool
	Prompt          Prompt
	RescheduleAt    time.Time
	Message         string
}

// Controller drives the booking screen. Local state only changes from an
// authoritative fetch; actions never patch bookings in place.
type Controller struct {
	mu      sync.Mutex
	gateway Gateway
	roles   RoleSource
	now     func() time.Time
	logger  *zap.Logger
	state   State
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewController(gateway Gateway, roles RoleSource, opts ...Option) *Controller {
	c := &Controller{
		gateway: gateway,
		roles:   roles,
		now:     time.Now,
		logger:  zap.NewNop(),
		state:   State{Bookings: booking.ByDate{}},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(zap.String("component", "schedule"))

	return c
}

// State returns a snapshot safe to read while the controller keeps working.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.state
	snapshot.Bookings = maps.Clone(c.state.Bookings)

	if c.state.SelectedBooking != nil {
		selected := *c.state.SelectedBooking
		snapshot.SelectedBooking = &selected
	}

	return snapshot
}

// Load fetches bookings and keeps the selected date. An open detail is
// refreshed from the new data, or closed when its booking is gone.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()

	if c.state.IsLoading {
		c.mu.Unlock()
		return ErrBusy
	}

	c.state.IsLoading = true
	c.mu.Unlock()

	bookings, err := c.gateway.ListUserBookings(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.IsLoading = false

	if err != nil {
		c.logger.Error("failed to fetch bookings", zap.Error(err))
		c.state.Message = fmt.Sprintf("Could not load bookings: %v", client.Describe(err))
		return err
	}

	c.state.Bookings = bookings

	if c.state.SelectedBooking != nil {
		if fresh, ok := bookings.Find(c.state.SelectedBooking.ID); ok {
			c.state.SelectedBooking = &fresh
		} else {
			c.closeDetail()
		}
	}

	return nil
}

// Refresh starts over: the date selection, the open detail and the
// bookings are cleared before fetching, so a failed refresh leaves an empty
// list.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()

	if c.state.IsLoading {
		c.mu.Unlock()
		return ErrBusy
	}

	c.state.SelectedDate = ""
	c.state.Bookings = booking.ByDate{}
	c.state.Message = ""
	c.closeDetail()
	c.mu.Unlock()

	return c.Load(ctx)
}

// SelectDate only changes which bucket is shown.
func (c *Controller) SelectDate(date string) error {
	if _, err := time.Parse(booking.DateLayout, date); err != nil {
		return fmt.Errorf("%w: '%v'", booking.ErrInvalidDateTime, date)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SelectedDate = date

	return nil
}

func (c *Controller) ClearDate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SelectedDate = ""
}

// Visible returns the selected date's bookings, or the upcoming ones when
// no date is selected.
func (c *Controller) Visible() []booking.Booking {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.state.SelectedDate) > 0 {
		return slices.Clone(c.state.Bookings[c.state.SelectedDate])
	}

	return c.upcoming()
}

func (c *Controller) Upcoming() []booking.Booking {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.upcoming()
}

func (c *Controller) OpenDetail(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	selected, ok := c.state.Bookings.Find(id)

	if !ok {
		return fmt.Errorf("%w: %d", booking.ErrBookingNotFound, id)
	}

	c.state.SelectedBooking = &selected
	c.state.IsDetailOpen = true
	c.state.Prompt = PromptNone
	c.state.Message = ""

	return nil
}

func (c *Controller) CloseDetail() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeDetail()
}

// Actions lists what the acting user may do with the open booking.
func (c *Controller) Actions(ctx context.Context) ([]Action, error) {
	c.mu.Lock()
	selected := c.state.SelectedBooking
	c.mu.Unlock()

	if selected == nil {
		return nil, nil
	}

	acting, err := c.roles.CurrentRole(ctx)

	if err != nil {
		return nil, err
	}

	return AvailableActions(selected.Status, acting), nil
}

func (c *Controller) BeginCancel(ctx context.Context) error {
	if _, err := c.allowed(ctx, ActionCancel); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Prompt = PromptCancel

	return nil
}

// SubmitCancel cancels the open booking with an optional reason, closes the
// detail and fetches again.
func (c *Controller) SubmitCancel(ctx context.Context, reason string) error {
	return c.submit(ctx, ActionCancel, PromptCancel, "Booking cancelled.", func(b booking.Booking) error {
		return c.gateway.CancelBooking(ctx, b, reason)
	})
}

// BeginReschedule opens the picker pre-filled with the current slot.
func (c *Controller) BeginReschedule(ctx context.Context) error {
	selected, err := c.allowed(ctx, ActionReschedule)

	if err != nil {
		return err
	}

	at, err := time.ParseInLocation(booking.DateLayout+" "+booking.TimeLayout, selected.Date+" "+selected.Time, time.Local)

	if err != nil {
		at = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Prompt = PromptReschedule
	c.state.RescheduleAt = at

	return nil
}

func (c *Controller) SubmitReschedule(ctx context.Context, at time.Time) error {
	return c.submit(ctx, ActionReschedule, PromptReschedule, "Booking rescheduled, awaiting confirmation.", func(b booking.Booking) error {
		_, err := c.gateway.RescheduleBooking(ctx, b, at)
		return err
	})
}

func (c *Controller) DismissPrompt() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Prompt = PromptNone
	c.state.RescheduleAt = time.Time{}
}

// Confirm needs no prompt.
func (c *Controller) Confirm(ctx context.Context) error {
	return c.submit(ctx, ActionConfirm, PromptNone, "Booking confirmed.", func(b booking.Booking) error {
		return c.gateway.ConfirmBooking(ctx, b)
	})
}

// AvailableActions maps a status and the acting role to the offered actions.
func AvailableActions(status booking.Status, acting role.Role) []Action {
	switch status {
	case booking.StatusMarked, "":
		return []Action{ActionCancel, ActionReschedule}
	case booking.StatusReserved:
		if acting.IsTrainer() {
			return []Action{ActionCancel, ActionConfirm}
		}

		return []Action{ActionCancel}
	}

	return []Action{}
}

func (c *Controller) submit(ctx context.Context, action Action, prompt Prompt, done string, call func(booking.Booking) error) error {
	selected, err := c.allowed(ctx, action)

	if err != nil {
		return err
	}

	c.mu.Lock()

	if c.state.IsSubmitting {
		c.mu.Unlock()
		return ErrBusy
	}

	if c.state.Prompt != prompt {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrNoPrompt, action)
	}

	c.state.IsSubmitting = true
	c.mu.Unlock()

	err = call(selected)

	c.mu.Lock()
	c.state.IsSubmitting = false

	if err != nil {
		c.logger.Error("booking action failed", zap.String("action", string(action)), zap.Int64("schedule_id", selected.ID), zap.Error(err))
		c.state.Message = fmt.Sprintf("Could not %v booking: %v", action, client.Describe(err))
		c.mu.Unlock()
		return err
	}

	c.logger.Info("booking action done", zap.String("action", string(action)), zap.Int64("schedule_id", selected.ID))
	c.closeDetail()
	c.state.Message = done
	c.mu.Unlock()

	if err := c.Load(ctx); err != nil {
		return fmt.Errorf("reload after %v failed: %w", action, err)
	}

	return nil
}

func (c *Controller) allowed(ctx context.Context, action Action) (booking.Booking, error) {
	c.mu.Lock()
	selected := c.state.SelectedBooking
	open := c.state.IsDetailOpen
	c.mu.Unlock()

	if !open || selected == nil {
		return booking.Booking{}, ErrNoDetail
	}

	acting, err := c.roles.CurrentRole(ctx)

	if err != nil {
		return booking.Booking{}, err
	}

	if !slices.Contains(AvailableActions(selected.Status, acting), action) {
		return booking.Booking{}, fmt.Errorf("%w: %v on a %v booking", ErrActionNotAllowed, action, selected.Status)
	}

	return *selected, nil
}

func (c *Controller) closeDetail() {
	c.state.SelectedBooking = nil
	c.state.IsDetailOpen = false
	c.state.Prompt = PromptNone
	c.state.RescheduleAt = time.Time{}
}

func (c *Controller) upcoming() []booking.Booking {
	return booking.Upcoming(c.state.Bookings, c.now().Format(booking.DateLayout), UpcomingLimit)
}
