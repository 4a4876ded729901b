package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/orbitdesk/ticketrouter/pkg/database"
	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// wsWriteTimeout bounds how long a single event send may take before the
// connection is considered stalled and dropped.
const wsWriteTimeout = 5 * time.Second

// eventsWSHandler handles GET /api/v1/batches/:batchID/events. On connect it
// replays every stage outcome recorded so far for the batch, then streams
// live events from the bus until the client disconnects or the batch
// reaches a terminal status. Replay-then-subscribe has a gap: events
// published between the catchup query and the bus subscription call could
// be missed. That window is covered because progress rows are durable:
// a client that reconnects re-runs catchup and sees anything it missed.
func (s *Server) eventsWSHandler(c *gin.Context) {
	batchID := c.Param("batchID")

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := c.Request.Context()

	outcomes, err := database.NewProgressRepo(s.db, ctx).ByBatch(batchID)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "catchup query failed")
		return
	}
	for _, outcome := range outcomes {
		if !sendEvent(ctx, conn, outcomeToEvent(batchID, outcome).ToJSON()) {
			return
		}
	}

	sub, err := s.events.Subscribe(0)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "event bus closed")
		return
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			if evt.BatchID != batchID {
				continue
			}
			if !sendEvent(ctx, conn, evt.ToJSON()) {
				return
			}
			if evt.TicketID == "" && (evt.Status == "completed" || evt.Status == "failed") {
				conn.Close(websocket.StatusNormalClosure, "batch finished")
				return
			}
		}
	}
}

func sendEvent(ctx context.Context, conn *websocket.Conn, payload models.JSON) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return true
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data) == nil
}

// outcomeToEvent adapts a persisted StageOutcome into the live Event shape
// so catchup replay and the live stream share one wire encoding.
func outcomeToEvent(batchID string, o models.StageOutcome) models.Event {
	return models.Event{
		TicketID:  o.TicketID,
		BatchID:   batchID,
		Stage:     o.Stage,
		Status:    string(o.Status),
		Message:   o.Message,
		Timestamp: o.Start,
	}
}
