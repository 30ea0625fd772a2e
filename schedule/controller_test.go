package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Almirante-Ming/Rose/booking"
	"github.com/Almirante-Ming/Rose/client"
	"github.com/Almirante-Ming/Rose/role"
	"github.com/Almirante-Ming/Rose/schedule"
	sc_mocks "github.com/Almirante-Ming/Rose/schedule/mocks"
	"github.com/Almirante-Ming/Rose/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var today = time.Date(2025, 4, 25, 9, 0, 0, 0, time.Local)

var (
	past     = booking.Booking{ID: 1, Date: "2025-04-24", Time: "10:00", Status: booking.StatusCompleted}
	marked   = booking.Booking{ID: 2, Date: "2025-04-26", Time: "10:00", Status: booking.StatusMarked, Message: "legs"}
	reserved = booking.Booking{ID: 3, Date: "2025-04-26", Time: "08:00", Status: booking.StatusReserved}
	later    = booking.Booking{ID: 4, Date: "2025-05-01", Time: "07:30", Status: booking.StatusCancelled}
)

func fixture() booking.ByDate {
	return booking.GroupByDate([]booking.Booking{past, marked, reserved, later})
}

type testDeps struct {
	gateway    *sc_mocks.MockGateway
	roles      *sc_mocks.MockRoleSource
	controller *schedule.Controller
	ctx        context.Context
}

func newTestDeps(t *testing.T) (*gomock.Controller, testDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)

	gateway := sc_mocks.NewMockGateway(ctrl)
	roles := sc_mocks.NewMockRoleSource(ctrl)
	controller := schedule.NewController(gateway, roles, schedule.WithClock(func() time.Time { return today }))

	return ctrl, testDeps{gateway: gateway, roles: roles, controller: controller, ctx: context.Background()}
}

// loaded returns deps whose controller already holds the fixture.
func loaded(t *testing.T) (*gomock.Controller, testDeps) {
	t.Helper()
	ctrl, deps := newTestDeps(t)

	deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(fixture(), nil).Times(1)
	require.NoError(t, deps.controller.Refresh(deps.ctx))

	return ctrl, deps
}

func TestLoad(t *testing.T) {

	t.Run("success", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		state := deps.controller.State()
		require.False(t, state.IsLoading)
		require.Equal(t, fixture(), state.Bookings)
		require.Empty(t, state.Message)
	})

	t.Run("failed load keeps previous bookings", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(nil, &client.HTTPError{StatusCode: 0, Err: errors.New("dial tcp")}).Times(1)

		err := deps.controller.Load(deps.ctx)

		require.Error(t, err)
		state := deps.controller.State()
		require.False(t, state.IsLoading)
		require.Equal(t, fixture(), state.Bookings)
		require.Contains(t, state.Message, "Could not reach the server")
	})

	t.Run("failed refresh leaves an empty list", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.SelectDate("2025-04-26"))
		require.NoError(t, deps.controller.OpenDetail(marked.ID))

		deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(nil, session.ErrNotAuthenticated).Times(1)

		err := deps.controller.Refresh(deps.ctx)

		require.ErrorIs(t, err, session.ErrNotAuthenticated)
		state := deps.controller.State()
		require.False(t, state.IsLoading)
		require.Empty(t, state.Bookings)
		require.Empty(t, state.SelectedDate)
		require.False(t, state.IsDetailOpen)
		require.Nil(t, state.SelectedBooking)
		require.NotEmpty(t, state.Message)
	})

	t.Run("overlapping load is rejected", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.gateway.EXPECT().ListUserBookings(deps.ctx).DoAndReturn(func(ctx context.Context) (booking.ByDate, error) {
			require.True(t, deps.controller.State().IsLoading)
			require.ErrorIs(t, deps.controller.Load(ctx), schedule.ErrBusy)
			return fixture(), nil
		}).Times(1)

		require.NoError(t, deps.controller.Load(deps.ctx))
	})

	t.Run("open detail follows fresh data", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(marked.ID))

		changed := marked
		changed.Message = "arms"
		deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(booking.GroupByDate([]booking.Booking{changed}), nil).Times(1)
		require.NoError(t, deps.controller.Load(deps.ctx))
		require.Equal(t, "arms", deps.controller.State().SelectedBooking.Message)

		deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(booking.ByDate{}, nil).Times(1)
		require.NoError(t, deps.controller.Load(deps.ctx))
		require.False(t, deps.controller.State().IsDetailOpen)
	})
}

func TestSelectDate(t *testing.T) {
	ctrl, deps := loaded(t)
	defer ctrl.Finish()

	deps.gateway.EXPECT().ListUserBookings(gomock.Any()).Times(0)

	require.Equal(t, []booking.Booking{reserved, marked, later}, deps.controller.Visible())

	require.NoError(t, deps.controller.SelectDate("2025-04-26"))
	require.Equal(t, []booking.Booking{marked, reserved}, deps.controller.Visible())

	require.NoError(t, deps.controller.SelectDate("2025-04-24"))
	require.Equal(t, []booking.Booking{past}, deps.controller.Visible())

	require.NoError(t, deps.controller.SelectDate("2025-06-01"))
	require.Empty(t, deps.controller.Visible())

	require.ErrorIs(t, deps.controller.SelectDate("tomorrow"), booking.ErrInvalidDateTime)
	require.Equal(t, "2025-06-01", deps.controller.State().SelectedDate)

	deps.controller.ClearDate()
	require.Equal(t, deps.controller.Upcoming(), deps.controller.Visible())
}

func TestDetail(t *testing.T) {
	ctrl, deps := loaded(t)
	defer ctrl.Finish()

	require.ErrorIs(t, deps.controller.OpenDetail(99), booking.ErrBookingNotFound)
	require.False(t, deps.controller.State().IsDetailOpen)

	require.NoError(t, deps.controller.OpenDetail(reserved.ID))
	state := deps.controller.State()
	require.True(t, state.IsDetailOpen)
	require.Equal(t, reserved, *state.SelectedBooking)

	deps.controller.CloseDetail()
	state = deps.controller.State()
	require.False(t, state.IsDetailOpen)
	require.Nil(t, state.SelectedBooking)
}

func TestAvailableActions(t *testing.T) {
	user := role.FromLevel(0)
	trainer := role.FromLevel(1)
	admin := role.FromLevel(2)

	tests := []struct {
		status booking.Status
		acting role.Role
		want   []schedule.Action
	}{
		{booking.StatusMarked, user, []schedule.Action{schedule.ActionCancel, schedule.ActionReschedule}},
		{booking.StatusMarked, admin, []schedule.Action{schedule.ActionCancel, schedule.ActionReschedule}},
		{booking.StatusReserved, user, []schedule.Action{schedule.ActionCancel}},
		{booking.StatusReserved, trainer, []schedule.Action{schedule.ActionCancel, schedule.ActionConfirm}},
		{booking.StatusReserved, admin, []schedule.Action{schedule.ActionCancel, schedule.ActionConfirm}},
		{booking.StatusCancelled, admin, []schedule.Action{}},
		{booking.StatusCompleted, admin, []schedule.Action{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status)+"/"+string(tt.acting.Name), func(t *testing.T) {
			require.Equal(t, tt.want, schedule.AvailableActions(tt.status, tt.acting))
		})
	}
}

func TestActions(t *testing.T) {
	ctrl, deps := loaded(t)
	defer ctrl.Finish()

	actions, err := deps.controller.Actions(deps.ctx)
	require.NoError(t, err)
	require.Nil(t, actions)

	deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(1), nil).Times(1)
	require.NoError(t, deps.controller.OpenDetail(reserved.ID))

	actions, err = deps.controller.Actions(deps.ctx)
	require.NoError(t, err)
	require.Equal(t, []schedule.Action{schedule.ActionCancel, schedule.ActionConfirm}, actions)
}

func TestCancel(t *testing.T) {

	t.Run("success closes detail and refetches", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.SelectDate("2025-04-26"))
		require.NoError(t, deps.controller.OpenDetail(marked.ID))

		cancelled := marked
		cancelled.Status = booking.StatusCancelled
		cancelled.Message = "sick"

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(0), nil).Times(2)
		gomock.InOrder(
			deps.gateway.EXPECT().CancelBooking(deps.ctx, marked, "sick").Return(nil).Times(1),
			deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(booking.GroupByDate([]booking.Booking{cancelled, reserved}), nil).Times(1),
		)

		require.NoError(t, deps.controller.BeginCancel(deps.ctx))
		require.Equal(t, schedule.PromptCancel, deps.controller.State().Prompt)

		require.NoError(t, deps.controller.SubmitCancel(deps.ctx, "sick"))

		state := deps.controller.State()
		require.False(t, state.IsDetailOpen)
		require.False(t, state.IsSubmitting)
		require.Equal(t, schedule.PromptNone, state.Prompt)
		require.Equal(t, "2025-04-26", state.SelectedDate)
		require.Equal(t, "Booking cancelled.", state.Message)
		require.Equal(t, []booking.Booking{cancelled, reserved}, deps.controller.Visible())
	})

	t.Run("failure keeps detail open", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(marked.ID))

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(0), nil).Times(2)
		deps.gateway.EXPECT().CancelBooking(deps.ctx, marked, "").Return(&client.HTTPError{StatusCode: 500, Body: []byte(`{"detail":"db down"}`)}).Times(1)
		deps.gateway.EXPECT().ListUserBookings(gomock.Any()).Times(0)

		require.NoError(t, deps.controller.BeginCancel(deps.ctx))
		err := deps.controller.SubmitCancel(deps.ctx, "")

		var httpErr *client.HTTPError
		require.ErrorAs(t, err, &httpErr)

		state := deps.controller.State()
		require.True(t, state.IsDetailOpen)
		require.Equal(t, schedule.PromptCancel, state.Prompt)
		require.False(t, state.IsSubmitting)
		require.Equal(t, "Could not cancel booking: db down", state.Message)
		require.Equal(t, fixture(), state.Bookings)
	})

	t.Run("submit without prompt", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(marked.ID))

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(0), nil).Times(1)
		deps.gateway.EXPECT().CancelBooking(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		require.ErrorIs(t, deps.controller.SubmitCancel(deps.ctx, ""), schedule.ErrNoPrompt)
	})

	t.Run("view only booking", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(later.ID))

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(2), nil).Times(1)

		require.ErrorIs(t, deps.controller.BeginCancel(deps.ctx), schedule.ErrActionNotAllowed)
	})

	t.Run("no detail", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.ErrorIs(t, deps.controller.BeginCancel(deps.ctx), schedule.ErrNoDetail)
	})

	t.Run("overlapping submit is rejected", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(marked.ID))

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(0), nil).Times(3)
		deps.gateway.EXPECT().CancelBooking(deps.ctx, marked, "").DoAndReturn(func(ctx context.Context, _ booking.Booking, _ string) error {
			require.ErrorIs(t, deps.controller.SubmitCancel(ctx, ""), schedule.ErrBusy)
			return errors.New("server said no")
		}).Times(1)

		require.NoError(t, deps.controller.BeginCancel(deps.ctx))
		require.EqualError(t, deps.controller.SubmitCancel(deps.ctx, ""), "server said no")
	})
}

func TestReschedule(t *testing.T) {

	t.Run("prefilled and submitted", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(marked.ID))

		at := time.Date(2025, 4, 28, 18, 0, 0, 0, time.Local)
		moved := marked
		moved.Date = "2025-04-28"
		moved.Time = "18:00"
		moved.Status = booking.StatusReserved

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(0), nil).Times(2)
		gomock.InOrder(
			deps.gateway.EXPECT().RescheduleBooking(deps.ctx, marked, at).Return(moved, nil).Times(1),
			deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(booking.GroupByDate([]booking.Booking{moved}), nil).Times(1),
		)

		require.NoError(t, deps.controller.BeginReschedule(deps.ctx))
		state := deps.controller.State()
		require.Equal(t, schedule.PromptReschedule, state.Prompt)
		require.Equal(t, time.Date(2025, 4, 26, 10, 0, 0, 0, time.Local), state.RescheduleAt)

		require.NoError(t, deps.controller.SubmitReschedule(deps.ctx, at))

		state = deps.controller.State()
		require.False(t, state.IsDetailOpen)
		require.True(t, state.RescheduleAt.IsZero())
		require.Equal(t, booking.ByDate{"2025-04-28": {moved}}, state.Bookings)
	})

	t.Run("not offered on reserved booking", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(reserved.ID))

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(2), nil).Times(1)

		require.ErrorIs(t, deps.controller.BeginReschedule(deps.ctx), schedule.ErrActionNotAllowed)
	})

	t.Run("dismiss", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(marked.ID))
		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(0), nil).Times(1)

		require.NoError(t, deps.controller.BeginReschedule(deps.ctx))
		deps.controller.DismissPrompt()

		state := deps.controller.State()
		require.True(t, state.IsDetailOpen)
		require.Equal(t, schedule.PromptNone, state.Prompt)
	})
}

func TestConfirm(t *testing.T) {

	t.Run("trainer confirms", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(reserved.ID))

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(1), nil).Times(1)
		gomock.InOrder(
			deps.gateway.EXPECT().ConfirmBooking(deps.ctx, reserved).Return(nil).Times(1),
			deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(fixture(), nil).Times(1),
		)

		require.NoError(t, deps.controller.Confirm(deps.ctx))
		require.False(t, deps.controller.State().IsDetailOpen)
		require.Equal(t, "Booking confirmed.", deps.controller.State().Message)
	})

	t.Run("user cannot confirm", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(reserved.ID))

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(0), nil).Times(1)
		deps.gateway.EXPECT().ConfirmBooking(gomock.Any(), gomock.Any()).Times(0)

		require.ErrorIs(t, deps.controller.Confirm(deps.ctx), schedule.ErrActionNotAllowed)
	})

	t.Run("reload failure after success", func(t *testing.T) {
		ctrl, deps := loaded(t)
		defer ctrl.Finish()

		require.NoError(t, deps.controller.OpenDetail(reserved.ID))

		deps.roles.EXPECT().CurrentRole(deps.ctx).Return(role.FromLevel(2), nil).Times(1)
		deps.gateway.EXPECT().ConfirmBooking(deps.ctx, reserved).Return(nil).Times(1)
		deps.gateway.EXPECT().ListUserBookings(deps.ctx).Return(nil, errors.New("offline")).Times(1)

		err := deps.controller.Confirm(deps.ctx)

		require.ErrorContains(t, err, "reload after confirm failed")
		require.False(t, deps.controller.State().IsDetailOpen)
	})
}
