package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/middleware"
	"github.com/animechat/server/internal/relay"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadLimit    = 64 << 10
)

// clientEvent is anything a client may send. "private_message" and
// "message" are the same thing; older clients put the text in "message".
type clientEvent struct {
	Type       string `json:"type"`
	UserID     int64  `json:"userId"`
	ReceiverID int64  `json:"receiverId"`
	Content    string `json:"content"`
	Message    string `json:"message"`
}

type serverNotice struct {
	Type    string `json:"type"`
	UserID  int64  `json:"userId,omitempty"`
	Message string `json:"message,omitempty"`
}

// RelayWS upgrades to a websocket subscribed to the caller's own channel.
// Messages sent over the socket are stored before they are relayed.
func (s *APIServer) RelayWS(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.WSOrigins,
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.CloseNow()
	c.SetReadLimit(wsReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := s.Broker.Subscribe(ctx, me.ID)
	if err != nil {
		s.Logger.WithError(err).WithField("user", me.ID).Error("relay subscribe failed")
		c.Close(RelayUnavailableError, "relay unavailable")
		return
	}
	defer sub.Close()

	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, me.ID)

	go func() {
		defer cancel()
		s.writePump(ctx, c, sub)
	}()
	err = s.readPump(ctx, c, me.ID)

	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, me.ID, err)
}

// readPump handles client events until the connection closes. It returns
// nil on a normal close.
func (s *APIServer) readPump(ctx context.Context, c *websocket.Conn, me int64) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.notify(ctx, c, serverNotice{Type: "error", Message: "text frames only"})
			continue
		}

		var ev clientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.notify(ctx, c, serverNotice{Type: "error", Message: "invalid JSON"})
			continue
		}
		s.handleClientEvent(ctx, c, me, ev)
	}
}

func (s *APIServer) handleClientEvent(ctx context.Context, c *websocket.Conn, me int64, ev clientEvent) {
	switch ev.Type {
	case "join":
		// the connection is already on its own channel
		if ev.UserID != me {
			s.notify(ctx, c, serverNotice{Type: "error", Message: "can only join your own channel"})
			return
		}
		s.notify(ctx, c, serverNotice{Type: "joined", UserID: me})
	case "message", "private_message":
		content := ev.Content
		if content == "" {
			content = ev.Message
		}
		if ev.ReceiverID <= 0 || content == "" {
			s.notify(ctx, c, serverNotice{Type: "error", Message: "receiverId and content are required"})
			return
		}
		if _, err := s.deliver(ctx, me, ev.ReceiverID, content); err != nil {
			if apperr.KindOf(err).HTTPStatus() >= http.StatusInternalServerError {
				s.Logger.WithError(err).WithField("user", me).Error("relay message failed")
			}
			s.notify(ctx, c, serverNotice{Type: "error", Message: apperr.PublicMessage(err)})
		}
	default:
		s.notify(ctx, c, serverNotice{Type: "error", Message: "unknown event type"})
	}
}

// writePump forwards relay events to the socket and keeps it alive with
// pings. It returns when the subscription or the connection ends.
func (s *APIServer) writePump(ctx context.Context, c *websocket.Conn, sub *relay.Subscription) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case ev, ok := <-sub.C:
			if !ok {
				c.Close(SubscriptionEndedError, "subscription ended")
				return
			}
			if err := s.write(ctx, c, ev); err != nil {
				s.Logger.WithFields(logrus.Fields{
					"user":         sub.OwnerID,
					"subscription": sub.ID,
				}).Warnf("failed to write to websocket: %v", err)
				return
			}
		}
	}
}

func (s *APIServer) notify(ctx context.Context, c *websocket.Conn, n serverNotice) {
	if err := s.write(ctx, c, n); err != nil {
		s.Logger.Debugf("failed to write notice: %v", err)
	}
}

func (s *APIServer) write(ctx context.Context, c *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}
