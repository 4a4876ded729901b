// Package api exposes the batch control surface over HTTP: uploading and
// starting a batch, cancelling it, polling its progress, and a WebSocket
// event stream with catchup for clients that connect mid-run.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orbitdesk/ticketrouter/pkg/bus"
	"github.com/orbitdesk/ticketrouter/pkg/database"
	"github.com/orbitdesk/ticketrouter/pkg/services"
)

// Server holds the router's dependencies.
type Server struct {
	router  *gin.Engine
	db      *database.Client
	events  *bus.Bus
	batches *services.BatchService
}

// NewServer builds the Gin router and registers every route. reg is the
// registry the pipeline's metrics.Metrics was constructed against; it is
// exposed read-only at GET /metrics.
func NewServer(db *database.Client, events *bus.Bus, batches *services.BatchService, reg *prometheus.Registry) *Server {
	s := &Server{router: gin.New(), db: db, events: events, batches: batches}
	s.router.Use(gin.Recovery())

	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	v1.POST("/batches", s.createBatchHandler)
	v1.POST("/batches/:batchID/start", s.startBatchHandler)
	v1.POST("/batches/:batchID/cancel", s.cancelBatchHandler)
	v1.GET("/batches/:batchID/progress", s.progressHandler)
	v1.GET("/batches/:batchID/events", s.eventsWSHandler)

	return s
}

// Handler returns the http.Handler to pass to http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}
