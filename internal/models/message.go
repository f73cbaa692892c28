package models

import "time"

// DirectMessage is immutable once stored. A conversation is the unordered
// pair {SenderID, ReceiverID}, ordered by CreatedAt ascending.
type DirectMessage struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}
