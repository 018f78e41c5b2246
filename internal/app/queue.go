package app

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/schedule"
)

// POST /api/queue/entries
// Idempotent: re-enqueueing a candidate with an active entry returns it.
func (a *App) EnqueueHandler(c *gin.Context) {
	var req schedule.EnqueueRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, created, err := a.Engine.Enqueue(c.Request.Context(), req)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, entry)
}

// GET /api/queue?status=waiting&limit=50
func (a *App) ListQueueHandler(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := a.Engine.ListQueue(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// POST /api/queue/run-cycle
func (a *App) RunCycleHandler(c *gin.Context) {
	result, err := a.Engine.RunCycle(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// POST /api/control/emergency-stop
func (a *App) EmergencyStopHandler(c *gin.Context) {
	if err := a.Engine.EmergencyStop(c.Request.Context()); err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.Engine.ControlStatus())
}

// POST /api/control/resume
func (a *App) ResumeHandler(c *gin.Context) {
	if err := a.Engine.Resume(c.Request.Context()); err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.Engine.ControlStatus())
}

// GET /api/control
func (a *App) ControlStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.Engine.ControlStatus())
}

// GET /api/risk/profiles
func (a *App) RiskProfilesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.Engine.Risk().Profiles())
}

// POST /api/risk/recompute?window_days=30
func (a *App) RiskRecomputeHandler(c *gin.Context) {
	windowDays := 0
	if raw := c.Query("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window_days"})
			return
		}
		windowDays = n
	}
	profiles, err := a.Engine.Risk().Recompute(c.Request.Context(), windowDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// GET /api/candidates/:id/funnel
func (a *App) CandidateFunnelHandler(c *gin.Context) {
	events, err := a.Engine.Tracker().History(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

// GET /api/funnel/summary
func (a *App) FunnelSummaryHandler(c *gin.Context) {
	summary, err := a.Engine.Tracker().Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /ws/events
func (a *App) EventStreamHandler(c *gin.Context) {
	if a.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream not enabled"})
		return
	}
	a.Hub.ServeWS(c.Writer, c.Request)
}
