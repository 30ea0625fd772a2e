package booking

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

type UserResolver interface {
	UserID(ctx context.Context) (int64, error)
}

// Gateway performs no authorization of its own. Every call first resolves
// the current user and fails with the resolver's error when there is none.
type Gateway struct {
	api    API
	users  UserResolver
	logger *zap.Logger
}

func NewGateway(api API, users UserResolver, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{api: api, users: users, logger: logger.With(zap.String("component", "booking"))}
}

func (g *Gateway) ListUserBookings(ctx context.Context) (ByDate, error) {
	userID, err := g.users.UserID(ctx)

	if err != nil {
		return nil, err
	}

	var bookings []Booking

	if err := g.api.Get(ctx, fmt.Sprintf("/schedule/%d", userID), &bookings); err != nil {
		return nil, err
	}

	g.logger.Debug("fetched bookings", zap.Int64("user_id", userID), zap.Int("count", len(bookings)))

	return GroupByDate(normalize(bookings)), nil
}

// ListUserBookingsInRange narrows the listing to dates between start and
// end inclusive, both YYYY-MM-DD.
func (g *Gateway) ListUserBookingsInRange(ctx context.Context, start, end string) (ByDate, error) {
	if _, err := time.Parse(DateLayout, start); err != nil {
		return nil, fmt.Errorf("%w: start date '%v'", ErrInvalidDateTime, start)
	}

	if _, err := time.Parse(DateLayout, end); err != nil {
		return nil, fmt.Errorf("%w: end date '%v'", ErrInvalidDateTime, end)
	}

	userID, err := g.users.UserID(ctx)

	if err != nil {
		return nil, err
	}

	query := url.Values{"startDate": {start}, "endDate": {end}}

	var bookings []Booking

	if err := g.api.Get(ctx, fmt.Sprintf("/schedules/%d?%v", userID, query.Encode()), &bookings); err != nil {
		return nil, err
	}

	return GroupByDate(normalize(bookings)), nil
}

// CreateBooking validates input and posts it with status marked. Conflicts
// are detected by the server.
func (g *Gateway) CreateBooking(ctx context.Context, input Input) (Booking, error) {
	if _, err := g.users.UserID(ctx); err != nil {
		return Booking{}, err
	}

	input.Message = strings.TrimSpace(input.Message)
	input.Status = StatusMarked

	if err := input.Validate(); err != nil {
		return Booking{}, err
	}

	var created Booking

	if err := g.api.Post(ctx, "/schedules/", input, &created); err != nil {
		return Booking{}, err
	}

	if len(created.Status) == 0 {
		created.Status = StatusMarked
	}

	g.logger.Info("created booking", zap.Int64("schedule_id", created.ID))

	return created, nil
}

// UpdateBooking sends every editable field of b as it is.
func (g *Gateway) UpdateBooking(ctx context.Context, b Booking) (Booking, error) {
	if _, err := g.users.UserID(ctx); err != nil {
		return Booking{}, err
	}

	var updated Booking

	if err := g.api.Put(ctx, fmt.Sprintf("/schedules/%d", b.ID), updateOf(b), &updated); err != nil {
		return Booking{}, err
	}

	if updated.ID == 0 {
		return b, nil
	}

	if len(updated.Status) == 0 {
		updated.Status = StatusMarked
	}

	return updated, nil
}

// CancelBooking sets the status to cancelled. A non-blank reason replaces
// the message.
func (g *Gateway) CancelBooking(ctx context.Context, b Booking, reason string) error {
	b.Status = StatusCancelled

	if reason = strings.TrimSpace(reason); len(reason) > 0 {
		b.Message = reason
	}

	if _, err := g.UpdateBooking(ctx, b); err != nil {
		return err
	}

	g.logger.Info("cancelled booking", zap.Int64("schedule_id", b.ID))

	return nil
}

// RescheduleBooking moves b in place to at and sets it to reserved until a
// trainer confirms it.
func (g *Gateway) RescheduleBooking(ctx context.Context, b Booking, at time.Time) (Booking, error) {
	if at.IsZero() {
		return Booking{}, fmt.Errorf("%w: no new date", ErrInvalidDateTime)
	}

	b.Date = at.Format(DateLayout)
	b.Time = at.Format(TimeLayout)
	b.Status = StatusReserved

	updated, err := g.UpdateBooking(ctx, b)

	if err != nil {
		return Booking{}, err
	}

	g.logger.Info("rescheduled booking",
		zap.Int64("schedule_id", b.ID),
		zap.String("date", b.Date),
		zap.String("time", b.Time),
	)

	return updated, nil
}

func (g *Gateway) ConfirmBooking(ctx context.Context, b Booking) error {
	b.Status = StatusMarked

	if _, err := g.UpdateBooking(ctx, b); err != nil {
		return err
	}

	g.logger.Info("confirmed booking", zap.Int64("schedule_id", b.ID))

	return nil
}

func (g *Gateway) DeleteBooking(ctx context.Context, id int64) error {
	if _, err := g.users.UserID(ctx); err != nil {
		return err
	}

	return g.api.Delete(ctx, fmt.Sprintf("/schedules/%d", id), nil)
}

func normalize(bookings []Booking) []Booking {
	for i := range bookings {
		if len(bookings[i].Status) == 0 {
			bookings[i].Status = StatusMarked
		}
	}

	return bookings
}
