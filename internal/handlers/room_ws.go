// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/game"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/middleware"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/session"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/store"
	"github.com/coder/websocket"
	"golang.org/x/time/rate"
)

const (
	wsSubprotocol   = "room"
	wsOutBuffer     = 32
	wsWriteTimeout  = 5 * time.Second
	wsIntentTimeout = 5 * time.Second
	wsPingInterval  = 30 * time.Second
)

// wsMessage is every frame the server sends: "state", "ack" or "error".
type wsMessage struct {
	Type    string           `json:"type"`
	Ref     string           `json:"ref,omitempty"`
	State   *models.RoomView `json:"state,omitempty"`
	Events  []game.Event     `json:"events,omitempty"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}

// wsIntent is an intent frame from the client. Ref is echoed in the reply.
type wsIntent struct {
	game.Intent
	Ref string `json:"ref,omitempty"`
}

// roomConn is one participant's socket attached to a session.
type roomConn struct {
	ws       *websocket.Conn
	out      chan wsMessage
	dropOnce sync.Once
}

// send queues m without blocking. A client that cannot keep up is
// disconnected rather than allowed to stall the room.
func (c *roomConn) send(m wsMessage) {
	select {
	case c.out <- m:
	default:
		c.dropOnce.Do(func() {
			go c.ws.Close(SlowConsumerError, "client too slow")
		})
	}
}

func (c *roomConn) push(u session.Update) {
	view := u.State
	c.send(wsMessage{Type: "state", State: &view, Events: u.Events})
}

// RoomWSHandler attaches the caller to a room: snapshots are pushed as they
// are committed and intent frames are applied on the caller's behalf.
func (s *RoomServer) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	participant, err := EnsureParticipant(w, r)
	if err != nil {
		http.Error(w, "could not issue identity", http.StatusInternalServerError)
		return
	}
	code := session.NormalizeCode(r.PathValue("code"))

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{wsSubprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.CloseNow()

	if c.Subprotocol() != wsSubprotocol {
		c.Close(BadSubprotocolError, "client must speak the room subprotocol")
		return
	}

	sess, err := s.Manager.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.Close(RoomNotFoundError, "room does not exist")
			return
		}
		s.Logger.WithError(err).WithField("room", code).Warn("load room for websocket")
		c.Close(RoomUnavailableError, "room store unavailable")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &roomConn{ws: c, out: make(chan wsMessage, wsOutBuffer)}
	unsubscribe := sess.Subscribe(participant, conn.push)
	defer unsubscribe()

	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, code, participant)
	go s.writePump(ctx, conn)

	err = s.readPump(ctx, conn, sess, participant)
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, code, participant, err)
	if err == nil {
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readPump applies intent frames until the socket closes. It returns nil
// on a clean close.
func (s *RoomServer) readPump(ctx context.Context, conn *roomConn, sess *session.Session, participant string) error {
	limiter := rate.NewLimiter(s.WSRate, s.WSBurst)
	for {
		typ, data, err := conn.ws.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			conn.send(wsMessage{Type: "error", Error: "invalid", Message: "text frames only"})
			continue
		}

		var msg wsIntent
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			conn.send(wsMessage{Type: "error", Error: "invalid", Message: "malformed intent"})
			continue
		}
		if !limiter.Allow() {
			conn.send(wsMessage{Type: "error", Ref: msg.Ref, Error: "rate_limited", Message: "slow down"})
			continue
		}

		msg.Actor = participant
		dctx, dcancel := context.WithTimeout(ctx, wsIntentTimeout)
		err = sess.Dispatch(dctx, msg.Intent)
		dcancel()

		switch {
		case err == nil, errors.Is(err, game.ErrNoChange):
			if msg.Ref != "" {
				conn.send(wsMessage{Type: "ack", Ref: msg.Ref})
			}
		case errors.Is(err, store.ErrNotFound):
			conn.ws.Close(RoomNotFoundError, "room no longer exists")
			return err
		default:
			_, code := classify(err)
			conn.send(wsMessage{Type: "error", Ref: msg.Ref, Error: code, Message: err.Error()})
		}
	}
}

// writePump drains the outgoing queue and keeps the connection alive.
func (s *RoomServer) writePump(ctx context.Context, conn *roomConn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.ws.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case msg := <-conn.out:
			data, err := json.Marshal(msg)
			if err != nil {
				s.Logger.Warnf("failed to marshal outgoing %s message: %v", msg.Type, err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = conn.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
