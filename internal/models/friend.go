package models

import "time"

type FriendStatus string

const (
	FriendPending  FriendStatus = "PENDING"
	FriendAccepted FriendStatus = "ACCEPTED"
)

// FriendEdge is a directed friend request. At most one edge exists per
// ordered (SenderID, ReceiverID) pair.
type FriendEdge struct {
	ID         int64        `json:"id"`
	SenderID   int64        `json:"senderId"`
	ReceiverID int64        `json:"receiverId"`
	Status     FriendStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Friend is the counterpart of an accepted edge as seen by one of its parties.
type Friend struct {
	PublicUser
	FriendshipCreatedAt time.Time `json:"friendshipCreatedAt"`
}

// FriendRequest is a pending incoming edge together with its sender.
type FriendRequest struct {
	Sender    PublicUser `json:"sender"`
	CreatedAt time.Time  `json:"createdAt"`
}
