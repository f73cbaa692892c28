package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/models"
)

// WatchlistStore owns the watchlist table; (user_id, anime_id) is unique.
type WatchlistStore struct {
	db DBTX
}

func NewWatchlistStore(db DBTX) *WatchlistStore {
	return &WatchlistStore{db: db}
}

func (s *WatchlistStore) Add(ctx context.Context, e *models.WatchlistEntry) error {
	q := `INSERT INTO watchlist (user_id, anime_id, english_title, japanese_title, image_url, synopsis)
	      VALUES ($1, $2, $3, $4, $5, $6)
	      RETURNING id, created_at`
	err := s.db.QueryRow(ctx, q, e.UserID, e.AnimeID, e.EnglishTitle, e.JapaneseTitle, e.ImageURL, e.Synopsis).
		Scan(&e.ID, &e.CreatedAt)
	return classify(err, "insert watchlist entry", constraintMessages{
		notFound: "user not found",
		conflict: "anime already in watchlist",
	})
}

func (s *WatchlistStore) Contains(ctx context.Context, userID, animeID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM watchlist WHERE user_id = $1 AND anime_id = $2`, userID, animeID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err, "select watchlist entry", constraintMessages{})
	}
	return true, nil
}

func (s *WatchlistStore) List(ctx context.Context, userID int64) ([]models.WatchlistEntry, error) {
	q := `SELECT id, user_id, anime_id, english_title, japanese_title, image_url, synopsis, created_at
	      FROM watchlist
	      WHERE user_id = $1
	      ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, classify(err, "list watchlist", constraintMessages{})
	}
	defer rows.Close()

	entries := []models.WatchlistEntry{}
	for rows.Next() {
		var e models.WatchlistEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.AnimeID, &e.EnglishTitle, &e.JapaneseTitle, &e.ImageURL, &e.Synopsis, &e.CreatedAt)
		if err != nil {
			return nil, classify(err, "scan watchlist entry", constraintMessages{})
		}
		entries = append(entries, e)
	}
	return entries, classify(rows.Err(), "list watchlist", constraintMessages{})
}

func (s *WatchlistStore) Remove(ctx context.Context, userID, animeID int64) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM watchlist WHERE user_id = $1 AND anime_id = $2`, userID, animeID)
	if err != nil {
		return classify(err, "delete watchlist entry", constraintMessages{})
	}
	if ct.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "anime not found in watchlist")
	}
	return nil
}
