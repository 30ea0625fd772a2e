package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Almirante-Ming/Rose/booking"
	"github.com/Almirante-Ming/Rose/store"
	"github.com/Almirante-Ming/Rose/token"
	"github.com/gin-gonic/gin"
)

type ScheduleStore interface {
	ListSchedules(ctx context.Context, personID int64, r store.Range) ([]booking.Booking, error)
	GetSchedule(ctx context.Context, id int64) (booking.Booking, error)
	InsertSchedule(ctx context.Context, b booking.Booking) (booking.Booking, error)
	UpdateSchedule(ctx context.Context, b booking.Booking) (booking.Booking, error)
	DeleteSchedule(ctx context.Context, id int64) error
}

// ScheduleHandler serves bookings. Trainers and admins may act on any
// booking; customers only on their own, and they cannot confirm.
type ScheduleHandler struct {
	store ScheduleStore
}

func NewScheduleHandler(store ScheduleStore) *ScheduleHandler {
	return &ScheduleHandler{store: store}
}

func (h *ScheduleHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/schedule/:userId", h.ListForUser)
	rg.GET("/schedules/:userId", h.ListForUserInRange)
	rg.POST("/schedules/", h.Create)
	rg.PUT("/schedules/:id", h.Update)
	rg.DELETE("/schedules/:id", h.Delete)
}

func (h *ScheduleHandler) ListForUser(c *gin.Context) {
	h.list(c, store.Range{})
}

func (h *ScheduleHandler) ListForUserInRange(c *gin.Context) {
	r := store.Range{Start: c.Query("startDate"), End: c.Query("endDate")}

	if len(r.Start) > 0 {
		if _, err := time.Parse(time.DateOnly, r.Start); err != nil {
			c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse startDate"})
			return
		}
	}

	if len(r.End) > 0 {
		if _, err := time.Parse(time.DateOnly, r.End); err != nil {
			c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse endDate"})
			return
		}
	}

	h.list(c, r)
}

func (h *ScheduleHandler) list(c *gin.Context, r store.Range) {
	userID, ok := idParam(c, "userId")

	if !ok {
		return
	}

	caller := claims(c)

	if caller.UserID != userID && caller.AccessLevel < 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to view these schedules"})
		return
	}

	schedules, err := h.store.ListSchedules(c.Request.Context(), userID, r)

	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get schedules"})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	in, ok := bindInput(c)

	if !ok {
		return
	}

	caller := claims(c)

	if caller.AccessLevel < 1 && in.CustomerID != caller.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to book for someone else"})
		return
	}

	if len(in.Status) == 0 {
		in.Status = booking.StatusMarked
	}

	inserted, err := h.store.InsertSchedule(c.Request.Context(), fromInput(0, in))

	if err != nil {
		storeError(c, err, "schedule", "failed to create schedule")
		return
	}

	c.JSON(http.StatusCreated, inserted)
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")

	if !ok {
		return
	}

	in, ok := bindInput(c)

	if !ok {
		return
	}

	current, err := h.store.GetSchedule(c.Request.Context(), id)

	if err != nil {
		storeError(c, err, "schedule", "failed to fetch schedule")
		return
	}

	if !mayModify(claims(c), current, in) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to modify this schedule"})
		return
	}

	if len(in.Status) == 0 {
		in.Status = current.Status
	}

	updated, err := h.store.UpdateSchedule(c.Request.Context(), fromInput(id, in))

	if err != nil {
		storeError(c, err, "schedule", "failed to update schedule")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")

	if !ok {
		return
	}

	current, err := h.store.GetSchedule(c.Request.Context(), id)

	if err != nil {
		storeError(c, err, "schedule", "failed to fetch schedule")
		return
	}

	caller := claims(c)

	if caller.AccessLevel < 1 && current.CustomerID != caller.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this schedule"})
		return
	}

	if err := h.store.DeleteSchedule(c.Request.Context(), id); err != nil {
		storeError(c, err, "schedule", "failed to delete schedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "schedule deleted"})
}

func mayModify(caller token.Payload, current booking.Booking, in booking.Input) bool {
	if caller.AccessLevel >= 1 {
		return true
	}

	if current.CustomerID != caller.UserID || in.CustomerID != caller.UserID {
		return false
	}

	return !(current.Status == booking.StatusReserved && in.Status == booking.StatusMarked)
}

func bindInput(c *gin.Context) (booking.Input, bool) {
	var in booking.Input

	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return booking.Input{}, false
	}

	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return booking.Input{}, false
	}

	return in, true
}

func fromInput(id int64, in booking.Input) booking.Booking {
	return booking.Booking{
		ID:         id,
		Date:       in.Date,
		Time:       in.Time,
		TrainerID:  in.TrainerID,
		CustomerID: in.CustomerID,
		MachineID:  in.MachineID,
		Message:    in.Message,
		Status:     in.Status,
	}
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)

	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}

	return id, true
}

// storeError writes the response for a failed store call on kind.
func storeError(c *gin.Context, err error, kind, fallback string) {
	c.Error(err)

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": kind + " not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": kind + " conflicts with an existing record"})
	case errors.Is(err, store.ErrInvalidReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": store.ErrInvalidReference.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
