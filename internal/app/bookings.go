package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/schedule"
	"interview-scheduler/internal/store"
)

type createBookingReq struct {
	CandidateID     string `json:"candidate_id" binding:"required"`
	FromDate        string `json:"from_date,omitempty"`
	ToDate          string `json:"to_date,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	InterviewType   string `json:"interview_type,omitempty"`
}

// POST /api/resources/:id/bookings
// Finds the earliest free slot in the requested range and commits it.
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req createBookingReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := a.Engine.AllocateBooking(c.Request.Context(), schedule.FindSlotRequest{
		CandidateID:     req.CandidateID,
		ResourceID:      c.Param("id"),
		FromDate:        req.FromDate,
		ToDate:          req.ToDate,
		DurationMinutes: req.DurationMinutes,
		InterviewType:   req.InterviewType,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// GET /api/resources/:id/bookings?from=2006-01-02&to=2006-01-02
func (a *App) ListBookingsHandler(c *gin.Context) {
	bookings, err := a.Store.ListBookingsInRange(c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GET /api/bookings/:id
func (a *App) GetBookingHandler(c *gin.Context) {
	booking, ok, err := a.Store.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}
	c.JSON(http.StatusOK, booking)
}

// POST /api/bookings/:id/confirm etc. share one transition handler.
func (a *App) transitionHandler(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, err := a.Engine.Transition(c.Request.Context(), c.Param("id"), target)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, booking)
	}
}

func (a *App) ConfirmBookingHandler(c *gin.Context) {
	a.transitionHandler(store.BookingConfirmed)(c)
}

func (a *App) CompleteBookingHandler(c *gin.Context) {
	a.transitionHandler(store.BookingCompleted)(c)
}

func (a *App) CancelBookingHandler(c *gin.Context) {
	a.transitionHandler(store.BookingCancelled)(c)
}

func (a *App) NoShowBookingHandler(c *gin.Context) {
	a.transitionHandler(store.BookingNoShow)(c)
}

type rescheduleReq struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
}

// POST /api/bookings/:id/reschedule
func (a *App) RescheduleBookingHandler(c *gin.Context) {
	var req rescheduleReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	booking, err := a.Engine.Reschedule(c.Request.Context(), c.Param("id"), req.Date, req.StartTime)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
