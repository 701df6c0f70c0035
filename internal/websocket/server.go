package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server represents the WebSocket server
type Server struct {
	Hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server
func NewServer() *Server {
	return &Server{
		Hub: NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking is handled by the CORS layer.
				return true
			},
		},
	}
}

// Start starts the WebSocket server
func (s *Server) Start() {
	go s.Hub.Run()
	logrus.Info("websocket server started")
}

// Stop stops the WebSocket server
func (s *Server) Stop() {
	s.Hub.Stop()
	logrus.Info("websocket server stopped")
}

// HandleEventsWebSocket upgrades a connection onto the event feed.
func (s *Server) HandleEventsWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewClient(conn, s.Hub, uuid.NewString())
	if address := c.GetString("user_address"); address != "" {
		client.SetAuth(address)
	}

	s.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	logrus.WithField("client_id", client.ID).Debug("websocket client connected")
}

// HandleWebSocketStats returns WebSocket connection statistics
func (s *Server) HandleWebSocketStats(c *gin.Context) {
	stats := s.Hub.GetStats()
	stats.ActiveConnections = s.Hub.GetClientCount()
	stats.TotalSubscriptions = s.Hub.GetSubscriptionCount()
	stats.LastUpdate = time.Now()

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers WebSocket routes with the Gin router
func (s *Server) RegisterRoutes(router *gin.Engine) {
	ws := router.Group("/ws")
	{
		ws.GET("/events", s.HandleEventsWebSocket)
		ws.GET("/stats", s.HandleWebSocketStats)
	}
}
