// internal/handlers/friend.go
package handlers

import (
	"net/http"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/respond"
)

type addFriendRequest struct {
	ReceiverID int64 `json:"receiverId" validate:"gt=0"`
}

type acceptFriendRequest struct {
	SenderID int64 `json:"senderId" validate:"gt=0"`
}

type removeFriendRequest struct {
	UserID int64 `json:"userId" validate:"gt=0"`
}

type friendshipResponse struct {
	Message    string             `json:"message"`
	Friendship *models.FriendEdge `json:"friendship"`
}

// AddFriend creates a PENDING edge from the caller to receiverId.
//
// Request payload: { "receiverId": 2 }
// A second request for the same ordered pair is a 409.
func (s *APIServer) AddFriend(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req addFriendRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.ReceiverID == me.ID {
		s.fail(w, r, apperr.New(apperr.Validation, "cannot send a friend request to yourself"))
		return
	}

	edge, err := s.Friends.Request(r.Context(), me.ID, req.ReceiverID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Metrics.FriendRequest()
	respond.JSON(w, http.StatusCreated, friendshipResponse{Message: "Friendship request sent", Friendship: edge})
}

// AcceptFriend accepts the pending request senderId sent to the caller.
//
// Request payload: { "senderId": 1 }
func (s *APIServer) AcceptFriend(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req acceptFriendRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	// the pending edge runs sender -> caller
	edge, err := s.Friends.Accept(r.Context(), req.SenderID, me.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, friendshipResponse{Message: "Friendship request accepted", Friendship: edge})
}

// RemoveFriend deletes every edge between the caller and userId, pending
// or accepted, in either direction.
func (s *APIServer) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req removeFriendRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.Friends.Remove(r.Context(), me.ID, req.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Message{Message: "Friend removed"})
}

// ListFriends returns the counterparts of the caller's accepted edges.
func (s *APIServer) ListFriends(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	friends, err := s.Friends.ListAccepted(r.Context(), me.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, friends)
}

// ListFriendRequests returns pending requests addressed to the caller.
func (s *APIServer) ListFriendRequests(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	reqs, err := s.Friends.ListPending(r.Context(), me.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, reqs)
}
