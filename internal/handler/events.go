package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"autodca/internal/events"
	"autodca/internal/repository"
)

type EventHandler struct {
	Repo   repository.Repository
	Hub    *events.Hub
	Logger *zap.Logger
}

func (h *EventHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/events")
	group.GET("", h.list)
	group.GET("/stream", h.stream)
}

// @Summary List persisted plan events
// @Tags events
// @Param owner query string false "owner address"
// @Param type query string false "event type"
// @Param plan_id query int false "plan id"
// @Success 200 {object} apiResponse
// @Router /api/v1/events [get]
func (h *EventHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var planID *uint64
	if raw := intQuery(c, "plan_id", 0); raw > 0 {
		id := uint64(raw)
		planID = &id
	}
	items, err := h.Repo.ListEvents(c.Request.Context(), repository.ListEventsParams{
		Owner:  strQueryPtr(c, "owner"),
		Type:   strQueryPtr(c, "type"),
		PlanID: planID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	meta := paginationMeta(limit, offset, len(items))
	Ok(c, items, meta)
}

// @Summary Stream plan events over websocket
// @Tags events
// @Router /api/v1/events/stream [get]
func (h *EventHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusServiceUnavailable, "event hub unavailable", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := c.Request.Context()
	ch, cancel := h.Hub.Subscribe(64)
	defer cancel()

	// Drain reads so close frames from the client are processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeCtx, done := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, evt)
			done()
			if err != nil {
				return
			}
		}
	}
}
