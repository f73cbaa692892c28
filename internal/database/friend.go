// internal/database/friend.go

package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/models"
)

// FriendStore owns the friends table. Each row is a directed edge; the
// (sender_id, receiver_id) unique constraint is what enforces one edge per
// ordered pair, not a prior read.
type FriendStore struct {
	db DBTX
}

func NewFriendStore(db DBTX) *FriendStore {
	return &FriendStore{db: db}
}

const edgeColumns = `id, sender_id, receiver_id, status, created_at`

func scanEdge(row pgx.Row) (*models.FriendEdge, error) {
	var e models.FriendEdge
	if err := row.Scan(&e.ID, &e.SenderID, &e.ReceiverID, &e.Status, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Request creates a PENDING edge sender -> receiver. An existing edge for the
// same ordered pair is a Conflict; the reverse pair is not considered.
func (s *FriendStore) Request(ctx context.Context, sender, receiver int64) (*models.FriendEdge, error) {
	q := `INSERT INTO friends (sender_id, receiver_id, status)
	      VALUES ($1, $2, 'PENDING')
	      ON CONFLICT (sender_id, receiver_id) DO NOTHING
	      RETURNING ` + edgeColumns
	e, err := scanEdge(s.db.QueryRow(ctx, q, sender, receiver))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.Conflict, "friendship request already exists")
	}
	if err != nil {
		return nil, classify(err, "insert friend request", constraintMessages{
			notFound: "user not found",
			invalid:  "cannot send a friend request to yourself",
		})
	}
	return e, nil
}

// Accept moves the pending edge sender -> receiver to ACCEPTED.
func (s *FriendStore) Accept(ctx context.Context, sender, receiver int64) (*models.FriendEdge, error) {
	q := `UPDATE friends
	      SET status = 'ACCEPTED', updated_at = now()
	      WHERE sender_id = $1 AND receiver_id = $2 AND status = 'PENDING'
	      RETURNING ` + edgeColumns
	e, err := scanEdge(s.db.QueryRow(ctx, q, sender, receiver))
	if err != nil {
		return nil, classify(err, "accept friend request", constraintMessages{
			notFound: "no pending friend request",
		})
	}
	return e, nil
}

// Remove deletes every edge between a and b, whatever its direction or status.
func (s *FriendStore) Remove(ctx context.Context, a, b int64) error {
	q := `DELETE FROM friends
	      WHERE (sender_id = $1 AND receiver_id = $2)
	         OR (sender_id = $2 AND receiver_id = $1)`
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, a, b)
		if err != nil {
			return classify(err, "delete friend", constraintMessages{})
		}
		if ct.RowsAffected() == 0 {
			return apperr.New(apperr.NotFound, "friendship not found")
		}
		return nil
	})
}

// ListAccepted returns the other party of every ACCEPTED edge touching
// userID, with the edge's creation time. When both directions are accepted
// the older edge wins.
func (s *FriendStore) ListAccepted(ctx context.Context, userID int64) ([]models.Friend, error) {
	q := `SELECT DISTINCT ON (u.id)
	             u.id, u.name, u.email, u.profile, u.created_at, f.created_at
	      FROM friends f
	      JOIN users u
	        ON u.id = CASE WHEN f.sender_id = $1 THEN f.receiver_id ELSE f.sender_id END
	      WHERE (f.sender_id = $1 OR f.receiver_id = $1)
	        AND f.status = 'ACCEPTED'
	      ORDER BY u.id, f.created_at`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, classify(err, "list friends", constraintMessages{})
	}
	defer rows.Close()

	friends := []models.Friend{}
	for rows.Next() {
		var f models.Friend
		err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Profile, &f.CreatedAt, &f.FriendshipCreatedAt)
		if err != nil {
			return nil, classify(err, "scan friend", constraintMessages{})
		}
		friends = append(friends, f)
	}
	return friends, classify(rows.Err(), "list friends", constraintMessages{})
}

// ListPending returns the PENDING requests addressed to receiverID, newest first.
func (s *FriendStore) ListPending(ctx context.Context, receiverID int64) ([]models.FriendRequest, error) {
	q := `SELECT u.id, u.name, u.email, u.profile, u.created_at, f.created_at
	      FROM friends f
	      JOIN users u ON u.id = f.sender_id
	      WHERE f.receiver_id = $1 AND f.status = 'PENDING'
	      ORDER BY f.created_at DESC`
	rows, err := s.db.Query(ctx, q, receiverID)
	if err != nil {
		return nil, classify(err, "list friend requests", constraintMessages{})
	}
	defer rows.Close()

	reqs := []models.FriendRequest{}
	for rows.Next() {
		var r models.FriendRequest
		err := rows.Scan(&r.Sender.ID, &r.Sender.Name, &r.Sender.Email, &r.Sender.Profile, &r.Sender.CreatedAt, &r.CreatedAt)
		if err != nil {
			return nil, classify(err, "scan friend request", constraintMessages{})
		}
		reqs = append(reqs, r)
	}
	return reqs, classify(rows.Err(), "list friend requests", constraintMessages{})
}

// StatusBetween reports the status of any edge between a and b, preferring
// ACCEPTED when both directions exist. It returns nil when there is none.
func (s *FriendStore) StatusBetween(ctx context.Context, a, b int64) (*models.FriendStatus, error) {
	q := `SELECT status
	      FROM friends
	      WHERE (sender_id = $1 AND receiver_id = $2)
	         OR (sender_id = $2 AND receiver_id = $1)
	      ORDER BY (status = 'ACCEPTED') DESC
	      LIMIT 1`
	var status models.FriendStatus
	err := s.db.QueryRow(ctx, q, a, b).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "select friend status", constraintMessages{})
	}
	return &status, nil
}
