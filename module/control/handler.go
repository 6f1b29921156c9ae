package control

import (
	"net/http"

	"RTHub/logger"
	mid "RTHub/middleware"
	midsec "RTHub/middleware/security"
	"RTHub/service/hub"

	"github.com/gin-gonic/gin"
)

// PushRequest is the control API body: one delivery injected by a
// trusted internal caller, no bus hop. Target precedence: room, then
// userId, else everyone.
type PushRequest struct {
	Event  string         `json:"event" binding:"required"`
	Data   map[string]any `json:"data"`
	Room   string         `json:"room"`
	UserID string         `json:"userId"`
}

// Register mounts the control and health routes.
func Register(r gin.IRoutes, h *hub.Hub, ctrlSecret, busDriver string) {
	mid.POST(r, "/internal/push", Push(h), mid.RouteOpt{Internal: true, InternalSecret: ctrlSecret})
	mid.GET(r, "/healthz", Health(h, busDriver), mid.RouteOpt{})
}

// Push injects a delivery. Any malformed body gets the same opaque 403
// as a bad secret.
func Push(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			midsec.Forbidden(c)
			return
		}

		d := &hub.Delivery{Event: req.Event, Data: req.Data, Kind: hub.TargetAll}
		switch {
		case req.Room != "":
			d.Kind = hub.TargetRoom
			d.Room = req.Room
		case req.UserID != "":
			d.Kind = hub.TargetUser
			d.UserID = req.UserID
		}

		if err := h.Deliver(d); err != nil {
			logger.Errorf("[control] push failed event=%s err=%v", req.Event, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// Health reports node liveness and the core gauges.
func Health(h *hub.Hub, busDriver string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conns, rooms, uptime := h.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"node":        h.NodeID(),
			"bus":         busDriver,
			"connections": conns,
			"rooms":       rooms,
			"uptime":      int64(uptime.Seconds()),
		})
	}
}
