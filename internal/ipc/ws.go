package ipc

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rogersf/court-engine/internal/court"
	"github.com/rogersf/court-engine/internal/domain"
)

// Websocket message types.
const (
	MsgChoice  = "CHOICE"
	MsgAdvance = "ADVANCE"
	MsgTax     = "TAX"

	MsgEvent  = "EVENT"
	MsgResult = "RESULT"
	MsgError  = "ERROR"
)

// ClientMsg is an action sent by a websocket client.
type ClientMsg struct {
	Type        string  `json:"type"`
	PetitionID  int     `json:"petition_id,omitempty"`
	ChoiceIndex int     `json:"choice_index,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
}

// ServerMsg is pushed to websocket clients.
type ServerMsg struct {
	Type   string               `json:"type"`
	Event  *domain.SessionEvent `json:"event,omitempty"`
	Result *court.ActionResult  `json:"result,omitempty"`
	Error  *APIError            `json:"error,omitempty"`
}

// Keepalive defaults. Pings go out well inside the pong wait.
const (
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = 54 * time.Second
)

// WSServer serves the per-session websocket: journal events are pushed as
// they happen and action messages are answered with a RESULT or ERROR.
type WSServer struct {
	manager *court.Manager
	log     *log.Logger

	upgrader websocket.Upgrader

	pongWait   time.Duration
	pingPeriod time.Duration
}

// NewWSServer creates a websocket server bound to m.
func NewWSServer(m *court.Manager, logger *log.Logger) *WSServer {
	if logger == nil {
		logger = log.Default()
	}
	return &WSServer{
		manager: m,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pongWait:   defaultPongWait,
		pingPeriod: defaultPingPeriod,
	}
}

// Handler handles GET /api/v1/session/{id}/ws.
func (s *WSServer) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		view, err := s.manager.View(id)
		if err != nil {
			writeError(rw, err)
			return
		}
		events, unsubscribe, err := s.manager.Subscribe(id)
		if err != nil {
			writeError(rw, err)
			return
		}
		defer unsubscribe()

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, 64)
		send := func(msg ServerMsg) {
			b, err := json.Marshal(msg)
			if err != nil {
				s.log.Printf("ws: session %s: marshal %s: %v", id, msg.Type, err)
				return
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}

		// Writer goroutine. Also owns the ping ticker.
		go func() {
			ticker := time.NewTicker(s.pingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Event forwarder. A closed subscription means the session closed.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
							time.Now().Add(time.Second))
						cancel()
						_ = conn.Close()
						return
					}
					b, err := json.Marshal(ServerMsg{Type: MsgEvent, Event: &ev})
					if err != nil {
						continue
					}
					select {
					case out <- b:
					default:
					}
				}
			}
		}()

		send(ServerMsg{Type: MsgResult, Result: &court.ActionResult{View: view}})

		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.pongWait))
		})

		// Reader loop.
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
			var msg ClientMsg
			if err := json.Unmarshal(raw, &msg); err != nil {
				send(ServerMsg{Type: MsgError, Error: &APIError{Code: 400, Message: "invalid message"}})
				continue
			}

			var res *court.ActionResult
			switch msg.Type {
			case MsgChoice:
				res, err = s.manager.Choice(ctx, id, msg.PetitionID, msg.ChoiceIndex)
			case MsgAdvance:
				res, err = s.manager.Advance(ctx, id)
			case MsgTax:
				res, err = s.manager.SetTax(ctx, id, msg.Rate)
			default:
				send(ServerMsg{Type: MsgError, Error: &APIError{Code: 400, Message: "unknown message type " + msg.Type}})
				continue
			}
			if err != nil {
				_, body := apiError(err)
				send(ServerMsg{Type: MsgError, Error: &body})
				continue
			}
			send(ServerMsg{Type: MsgResult, Result: res})
		}
	}
}
