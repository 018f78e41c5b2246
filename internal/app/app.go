// Package app exposes the scheduling engine over HTTP. Handlers translate
// between the wire and the engine; no scheduling rules live here.
package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/notify"
	"interview-scheduler/internal/schedule"
	"interview-scheduler/internal/store"
)

type App struct {
	Engine *schedule.Engine
	Store  store.Store
	Hub    *notify.Hub
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
// Policy violations and conflicts are rejected operations, not failures.
func writeEngineError(c *gin.Context, err error) {
	var pe *schedule.PolicyError
	if errors.As(err, &pe) {
		status := http.StatusConflict
		if pe.Code == schedule.PolicyRescheduleLocked {
			status = http.StatusLocked
		}
		c.JSON(status, gin.H{"error": pe.Message, "code": pe.Code})
		return
	}
	if errors.Is(err, schedule.ErrNoSlot) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "no_slot"})
		return
	}
	if errors.Is(err, schedule.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "conflict"})
		return
	}
	var ie *schedule.IntegrityError
	if errors.As(err, &ie) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ie.Error(), "code": "data_integrity"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
