package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/middleware"
	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/respond"
	"github.com/animechat/server/internal/validation"
)

// currentUser returns the user the AuthGate attached. Routes that call it
// are always mounted behind the gate; a missing user is a wiring bug.
func currentUser(r *http.Request) (*models.User, error) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return nil, apperr.New(apperr.Unauthenticated, "unauthenticated")
	}
	return u, nil
}

// decodeValid decodes the JSON body into v and validates it.
func decodeValid(r *http.Request, v any) error {
	if err := respond.Decode(r, v); err != nil {
		return err
	}
	return validation.Struct(v)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.Validation, "invalid "+name)
	}
	return id, nil
}

func (s *APIServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, s.Logger, err)
}
