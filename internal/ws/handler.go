package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/syncpad/backend/internal/access"
	"github.com/syncpad/backend/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Frames above maxMessageSize are answered with an error frame and
	// dropped; the connection stays open.
	maxMessageSize = 256 * 1024

	// readLimit is the hard cap at which the transport gives up entirely:
	// gorilla answers a frame above it with close code 1009 and fails the
	// read, unlike the soft maxMessageSize band where the connection
	// survives.
	readLimit = 1024 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Handler gates and upgrades collaboration connections.
type Handler struct {
	svc  *Service
	gate *access.Gate
}

// NewHandler creates a new WebSocket handler.
func NewHandler(svc *Service, gate *access.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

// HandleConnection authorizes and upgrades a connection to the room
// (groupID, projectID). user is nil for unauthenticated requests. Gate
// rejections are delivered as close codes on the upgraded connection so the
// client can distinguish them.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request, groupID, projectID int64, user *model.User, shareToken string) error {
	decision := h.gate.Authorize(r.Context(), user, groupID, projectID, shareToken)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	if !decision.Allowed {
		client := NewClient(conn)
		client.CloseWithCode(decision.CloseCode, decision.Reason)
		return nil
	}

	client := NewClient(conn)
	sess, err := h.svc.StartSession(context.Background(), RoomKey{GroupID: groupID, ProjectID: projectID}, decision.Identity, client)
	if err != nil {
		log.Printf("failed to start session: %v", err)
		client.CloseWithCode(websocket.CloseInternalServerErr, "session start failed")
		return err
	}

	go h.writePump(client)
	go h.readPump(client, sess)

	return nil
}

// readPump pumps messages from the WebSocket connection into the session.
func (h *Handler) readPump(client *Client, sess *Session) {
	defer func() {
		sess.Disconnect()
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(readLimit)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if len(data) > maxMessageSize {
			client.SendMessage(&Message{Type: MessageTypeError, Message: "Message too large"})
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are dropped, never fatal.
			continue
		}

		sess.HandleMessage(context.Background(), &msg)
	}
}

// writePump pumps queued messages to the WebSocket connection.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The session closed the queue
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Send each message in a separate WebSocket frame so the
			// client can JSON-parse them independently
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
