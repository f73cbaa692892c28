package handlers

import (
	"net/http"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/respond"
)

// Field names follow the anime catalogue the client copies them from.
type addWatchlistRequest struct {
	AnimeID       int64  `json:"AnimeId" validate:"gt=0"`
	EnglishTitle  string `json:"English_Title" validate:"max=512"`
	JapaneseTitle string `json:"Japanese_Title" validate:"max=512"`
	ImageURL      string `json:"Image_url" validate:"max=2048"`
	Synopsis      string `json:"synopsis"`
}

type animeRequest struct {
	AnimeID int64 `json:"AnimeId" validate:"gt=0"`
}

func (s *APIServer) AddWatchlist(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req addWatchlistRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	e := &models.WatchlistEntry{
		UserID:        me.ID,
		AnimeID:       req.AnimeID,
		EnglishTitle:  req.EnglishTitle,
		JapaneseTitle: req.JapaneseTitle,
		ImageURL:      req.ImageURL,
		Synopsis:      req.Synopsis,
	}
	if err := s.Watchlist.Add(r.Context(), e); err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, e)
}

// CheckWatchlist answers 200 "True" when the anime is on the caller's list.
func (s *APIServer) CheckWatchlist(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req animeRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ok, err := s.Watchlist.Contains(r.Context(), me.ID, req.AnimeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.fail(w, r, apperr.New(apperr.NotFound, "anime not found in watchlist"))
		return
	}
	respond.JSON(w, http.StatusOK, "True")
}

// ListWatchlist returns the caller's list.
func (s *APIServer) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeWatchlist(w, r, me.ID)
}

// ListUserWatchlist returns the list of user {id}. Watchlists are public to
// signed-in users.
func (s *APIServer) ListUserWatchlist(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r); err != nil {
		s.fail(w, r, err)
		return
	}
	owner, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeWatchlist(w, r, owner)
}

func (s *APIServer) writeWatchlist(w http.ResponseWriter, r *http.Request, owner int64) {
	entries, err := s.Watchlist.List(r.Context(), owner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}

func (s *APIServer) DeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req animeRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.Watchlist.Remove(r.Context(), me.ID, req.AnimeID); err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Message{Message: "Anime removed from watchlist"})
}
