package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/studybuddy/studybuddy/internal/conversation"
	"github.com/studybuddy/studybuddy/internal/observability"
)

const (
	writeWait = 10 * time.Second
	// sendBuffer is the number of frames queued per client before it is
	// treated as stalled and dropped.
	sendBuffer = 32
)

// clientFrame is a command sent by a WebSocket client.
type clientFrame struct {
	// Type is submit, reset or mode.
	Type string `json:"type"`
	// Text is the prompt for submit.
	Text string `json:"text,omitempty"`
	// Mode optionally switches modes for submit and mode.
	Mode string `json:"mode,omitempty"`
}

// serverFrame is pushed to WebSocket clients.
type serverFrame struct {
	// Type is snapshot or error.
	Type string `json:"type"`
	// Conversation is set on snapshot frames.
	Conversation *conversationView `json:"conversation,omitempty"`
	// Error is set on error frames.
	Error string `json:"error,omitempty"`
}

// wsClient owns one connection. Frames are queued on send and written by
// writePump, so producers never wait on the network.
type wsClient struct {
	conn      *websocket.Conn
	send      chan serverFrame
	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan serverFrame, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue queues frame without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *wsClient) enqueue(frame serverFrame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close stops writePump and closes the connection; repeated calls are no-ops.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump writes queued frames in order until the client closes or a write fails.
func (c *wsClient) writePump() {
	defer c.close()
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

// hub tracks connected clients.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{clients: map[*wsClient]struct{}{}}
}

func (h *hub) add(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *hub) remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast queues snapshot for every client.
func (h *hub) broadcast(snapshot conversation.Snapshot) {
	view := newConversationView(snapshot)
	h.fanOut(serverFrame{Type: "snapshot", Conversation: &view})
}

func (h *hub) broadcastError(err error) {
	h.fanOut(serverFrame{Type: "error", Error: err.Error()})
}

// fanOut never blocks; clients that cannot keep up are dropped.
func (h *hub) fanOut(frame serverFrame) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if client.enqueue(frame) {
			continue
		}
		h.remove(client)
		client.close()
		observability.Logger().Warn("websocket client dropped",
			"reason", "send buffer full",
			"remaining", h.count(),
		)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
		delete(h.clients, client)
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		observability.LoggerFromContext(c.Request.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}
	client := newWSClient(conn)
	view := newConversationView(s.controller.Snapshot())
	client.enqueue(serverFrame{Type: "snapshot", Conversation: &view})
	s.hub.add(client)
	go client.writePump()
	defer func() {
		s.hub.remove(client)
		client.close()
	}()

	ctx := context.WithoutCancel(c.Request.Context())
	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				observability.LoggerFromContext(ctx).Warn("websocket read failed", "error", err)
			}
			return
		}
		if err := s.dispatch(ctx, frame); err != nil {
			client.enqueue(serverFrame{Type: "error", Error: err.Error()})
		}
	}
}

// dispatch applies one client command. Submissions run in the background so
// the connection keeps reading; their errors are reported to every client.
func (s *Server) dispatch(ctx context.Context, frame clientFrame) error {
	switch frame.Type {
	case "mode":
		if err := s.setMode(frame.Mode); err != nil {
			return err
		}
		s.hub.broadcast(s.controller.Snapshot())
		return nil
	case "reset":
		if err := s.controller.NewSession(); err != nil {
			return err
		}
		s.hub.broadcast(s.controller.Snapshot())
		return nil
	case "submit":
		if frame.Mode != "" {
			if err := s.setMode(frame.Mode); err != nil {
				return err
			}
		}
		if !s.controllerIdle() {
			return conversation.ErrBusy
		}
		go func() {
			if _, err := s.controller.Submit(ctx, frame.Text, s.hub.broadcast); err != nil {
				s.hub.broadcastError(err)
			}
		}()
		return nil
	}
	return errors.New("unknown frame type: " + frame.Type)
}

func (s *Server) controllerIdle() bool {
	return s.controller.State() == conversation.Idle
}
