package database

import (
	"context"

	"github.com/animechat/server/internal/models"
)

// MessageStore owns the direct_messages table. Rows are append-only.
type MessageStore struct {
	db DBTX
}

func NewMessageStore(db DBTX) *MessageStore {
	return &MessageStore{db: db}
}

// Append stores a message. A receiver that does not exist fails the foreign
// key and is reported as NotFound; no row is written in that case.
func (s *MessageStore) Append(ctx context.Context, sender, receiver int64, content string) (*models.DirectMessage, error) {
	q := `INSERT INTO direct_messages (sender_id, receiver_id, content)
	      VALUES ($1, $2, $3)
	      RETURNING id, sender_id, receiver_id, content, created_at`
	var m models.DirectMessage
	err := s.db.QueryRow(ctx, q, sender, receiver, content).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, classify(err, "insert direct message", constraintMessages{notFound: "receiver not found"})
	}
	return &m, nil
}

// Conversation returns every message exchanged between a and b, oldest
// first. The argument order does not matter.
func (s *MessageStore) Conversation(ctx context.Context, a, b int64) ([]models.DirectMessage, error) {
	q := `SELECT id, sender_id, receiver_id, content, created_at
	      FROM direct_messages
	      WHERE (sender_id = $1 AND receiver_id = $2)
	         OR (sender_id = $2 AND receiver_id = $1)
	      ORDER BY created_at ASC, id ASC`
	rows, err := s.db.Query(ctx, q, a, b)
	if err != nil {
		return nil, classify(err, "select conversation", constraintMessages{})
	}
	defer rows.Close()

	msgs := []models.DirectMessage{}
	for rows.Next() {
		var m models.DirectMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			return nil, classify(err, "scan direct message", constraintMessages{})
		}
		msgs = append(msgs, m)
	}
	return msgs, classify(rows.Err(), "select conversation", constraintMessages{})
}
