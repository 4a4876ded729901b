package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/orbitdesk/ticketrouter/pkg/services"
)

// ticketUpload is the wire shape of one row in a batch creation request.
type ticketUpload struct {
	Description   string   `json:"description" binding:"required"`
	Age           *int     `json:"age"`
	Segment       string   `json:"segment" binding:"required"`
	Country       string   `json:"country"`
	Region        string   `json:"region"`
	City          string   `json:"city"`
	Street        string   `json:"street"`
	House         string   `json:"house"`
	IDCountOfUser int      `json:"id_count_of_user"`
}

type createBatchRequest struct {
	Filename string         `json:"filename" binding:"required"`
	Tickets  []ticketUpload `json:"tickets" binding:"required,min=1"`
}

// createBatchHandler handles POST /api/v1/batches: ingest rows, but do not
// start the pipeline yet (the caller issues a separate start call so a
// batch can be reviewed/cancelled before it consumes retry budget).
func (s *Server) createBatchHandler(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickets := make([]models.Ticket, len(req.Tickets))
	for i, t := range req.Tickets {
		tickets[i] = models.Ticket{
			Description:   t.Description,
			Age:           t.Age,
			Segment:       models.Segment(t.Segment),
			IDCountOfUser: t.IDCountOfUser,
			Address: models.Address{
				Country: t.Country, Region: t.Region, City: t.City, Street: t.Street, House: t.House,
			},
			CreatedAt: time.Now(),
		}
	}

	batchID, err := s.batches.IngestBatch(c.Request.Context(), req.Filename, tickets)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"batch_id": batchID})
}

// startBatchHandler handles POST /api/v1/batches/:batchID/start.
func (s *Server) startBatchHandler(c *gin.Context) {
	batchID := c.Param("batchID")
	if err := s.batches.Start(c.Request.Context(), batchID); err != nil {
		if errors.Is(err, services.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"batch_id": batchID, "status": "in_progress"})
}

// cancelBatchHandler handles POST /api/v1/batches/:batchID/cancel.
func (s *Server) cancelBatchHandler(c *gin.Context) {
	s.batches.Cancel(c.Param("batchID"))
	c.Status(http.StatusAccepted)
}

// progressHandler handles GET /api/v1/batches/:batchID/progress.
func (s *Server) progressHandler(c *gin.Context) {
	batch, outcomes, err := s.batches.Progress(c.Request.Context(), c.Param("batchID"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": batch, "stage_outcomes": outcomes})
}
