package handlers

import (
	"context"
	"net/http"

	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/relay"
	"github.com/animechat/server/internal/respond"
)

type sendMessageRequest struct {
	ReceiverID int64  `json:"receiverId" validate:"gt=0"`
	Message    string `json:"message" validate:"required"`
}

type conversationRequest struct {
	ReceiverID int64 `json:"receiverId" validate:"gt=0"`
}

// deliver persists a message and then relays it to both parties. A relay
// failure is logged but does not fail the send: the message is stored and
// will show up in the next conversation fetch.
func (s *APIServer) deliver(ctx context.Context, sender, receiver int64, content string) (*models.DirectMessage, error) {
	msg, err := s.Messages.Append(ctx, sender, receiver, content)
	if err != nil {
		return nil, err
	}
	s.Metrics.MessageSent()

	if s.Broker != nil {
		ev := relay.Event{
			Type:       relay.EventNewMessage,
			ID:         msg.ID,
			SenderID:   msg.SenderID,
			ReceiverID: msg.ReceiverID,
			Content:    msg.Content,
			CreatedAt:  msg.CreatedAt,
		}
		if err := s.Broker.Publish(ctx, ev); err != nil {
			s.Logger.WithError(err).WithField("message", msg.ID).Warn("relay publish failed")
		}
	}
	return msg, nil
}

// SendMessage appends a direct message. Unknown receivers are a 404.
func (s *APIServer) SendMessage(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req sendMessageRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	msg, err := s.deliver(r.Context(), me.ID, req.ReceiverID, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, msg)
}

// GetMessages returns the conversation with receiverId, oldest first. The
// counterpart comes from the {id} path parameter or the JSON body.
func (s *APIServer) GetMessages(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var other int64
	if r.Method == http.MethodGet {
		other, err = pathID(r, "id")
	} else {
		var req conversationRequest
		err = decodeValid(r, &req)
		other = req.ReceiverID
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	msgs, err := s.Messages.Conversation(r.Context(), me.ID, other)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, msgs)
}
