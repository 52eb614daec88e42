// Package server exposes the study controller over HTTP, SSE and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/studybuddy/studybuddy/internal/conversation"
	"github.com/studybuddy/studybuddy/internal/observability"
	"github.com/studybuddy/studybuddy/internal/study"
)

// Server routes HTTP requests to one shared controller.
type Server struct {
	// controller holds the single conversation.
	controller *conversation.Controller
	// engine is the gin router.
	engine *gin.Engine
	// upgrader turns /ws requests into WebSocket connections.
	upgrader websocket.Upgrader
	// hub fans snapshots out to WebSocket clients.
	hub *hub
}

// New builds the router.
func New(controller *conversation.Controller) *Server {
	gin.SetMode(gin.ReleaseMode)
	server := &Server{
		controller: controller,
		engine:     gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: newHub(),
	}
	server.routes()
	return server
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		observability.Logger().Info("http server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.closeAll()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.GET("/modes", s.handleModes)
	api.GET("/conversation", s.handleConversation)
	api.POST("/mode", s.handleMode)
	api.POST("/chat", s.handleChat)
	api.POST("/session/reset", s.handleReset)

	s.engine.GET("/ws", s.handleWebSocket)
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = observability.NewRequestID()
		}
		ctx := observability.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		observability.LoggerFromContext(ctx).Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": newModeViews(), "footer": study.FooterText})
}

func (s *Server) handleConversation(c *gin.Context) {
	c.JSON(http.StatusOK, newConversationView(s.controller.Snapshot()))
}

// modeRequest selects a mode.
type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) handleMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.setMode(req.Mode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snapshot := s.controller.Snapshot()
	s.hub.broadcast(snapshot)
	c.JSON(http.StatusOK, newConversationView(snapshot))
}

// chatRequest submits a prompt, optionally switching modes first.
type chatRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode,omitempty"`
}

// handleChat streams one turn as server-sent events. Errors detected before
// the turn starts are plain JSON responses.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mode != "" {
		if err := s.setMode(req.Mode); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	// The turn outlives a disconnected client.
	ctx := context.WithoutCancel(c.Request.Context())
	started := false
	lastText := ""
	final, err := s.controller.Submit(ctx, req.Text, func(snapshot conversation.Snapshot) {
		s.hub.broadcast(snapshot)
		if snapshot.State != conversation.Generating || len(snapshot.Messages) < 2 {
			return
		}
		reply := snapshot.Messages[len(snapshot.Messages)-1]
		if !started {
			started = true
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Status(http.StatusOK)
			c.SSEvent("user", newMessageView(snapshot.Messages[len(snapshot.Messages)-2]))
			c.Writer.Flush()
			return
		}
		if reply.Text == lastText {
			return
		}
		lastText = reply.Text
		c.SSEvent("delta", newMessageView(reply))
		c.Writer.Flush()
	})
	switch {
	case errors.Is(err, conversation.ErrBlankInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, conversation.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	event := "done"
	if final.IsError {
		event = "error"
	}
	c.SSEvent(event, newMessageView(final))
	c.Writer.Flush()
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.controller.NewSession(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	s.hub.broadcast(s.controller.Snapshot())
	c.Status(http.StatusNoContent)
}

func (s *Server) setMode(value string) error {
	mode, err := study.ParseMode(value)
	if err != nil {
		return err
	}
	return s.controller.SetMode(mode)
}
