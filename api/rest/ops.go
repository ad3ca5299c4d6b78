package rest

import (
	"net/http"

	"github.com/dentscan/dentclaim/scheduler"
	"github.com/gin-gonic/gin"
)

// Ping handles GET /api/pingServer.
func Ping(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// OpsHandler exposes process health for administrators.
type OpsHandler struct {
	sched *scheduler.Scheduler
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(sched *scheduler.Scheduler) *OpsHandler {
	return &OpsHandler{sched: sched}
}

// Tasks handles GET /api/admin/tasks.
func (h *OpsHandler) Tasks(c *gin.Context) {
	ok(c, gin.H{"scheduler_tasks": h.sched.ListTickers()}, MsgRecordFetched)
}
