package app

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/store"
)

// POST /api/resources/:id/availability
// Accepts a list of windows for the resource.
func (a *App) SetAvailabilityHandler(c *gin.Context) {
	resourceID := c.Param("id")
	var payload []store.AvailabilityWindow
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	var saved []store.AvailabilityWindow
	for i := range payload {
		w := &payload[i]
		w.ResourceID = resourceID
		if w.Kind == "" {
			w.Kind = store.WindowInterview
		}
		if w.StartTime >= w.EndTime {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be before end_time"})
			return
		}
		if err := a.Store.InsertWindow(ctx, w); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		saved = append(saved, *w)
	}

	c.JSON(http.StatusCreated, saved)
}

// PUT /api/resources/:id/availability/:window_id
func (a *App) UpdateAvailabilityHandler(c *gin.Context) {
	resourceID := c.Param("id")
	windowID, err := strconv.ParseInt(c.Param("window_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window id"})
		return
	}

	var payload store.AvailabilityWindow
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.StartTime >= payload.EndTime {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be before end_time"})
		return
	}
	payload.ID = windowID
	payload.ResourceID = resourceID
	if payload.Kind == "" {
		payload.Kind = store.WindowInterview
	}

	ok, err := a.Store.UpdateWindow(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "availability window not found"})
		return
	}
	c.JSON(http.StatusOK, payload)
}

// GET /api/resources/:id/availability?from=2006-01-02&to=2006-01-02
func (a *App) ListAvailabilityHandler(c *gin.Context) {
	windows, err := a.Store.ListWindows(c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, windows)
}

// GET /api/resources/:id/slots?from=2006-01-02&to=2006-01-02
func (a *App) GetSlotsHandler(c *gin.Context) {
	slots, err := a.Engine.ListOpenSlots(c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
