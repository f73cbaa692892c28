package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/auth"
	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/respond"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=256"`
	Gender   string `json:"gender" validate:"omitempty,max=32"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type searchRequest struct {
	Name string `json:"name" validate:"required"`
}

// session is what signup and login hand back to the client.
type session struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Token      string `json:"token"`
	IsLoggedIn bool   `json:"isLoggedIn"`
	Profile    string `json:"profile"`
}

type sessionResponse struct {
	Message string  `json:"message"`
	User    session `json:"user"`
}

type userResponse struct {
	User     models.PublicUser `json:"user"`
	IsFriend *friendStatus     `json:"isFriend"`
}

type friendStatus struct {
	Status models.FriendStatus `json:"status"`
}

var errInvalidCredentials = apperr.New(apperr.Unauthenticated, "invalid credentials")

func (s *APIServer) issue(u *models.User) (session, error) {
	token, err := s.Tokens.Issue(u.ID)
	if errors.Is(err, auth.ErrMissingSecret) {
		return session{}, apperr.Wrap(apperr.ServerMisconfigured, "server misconfigured", err)
	}
	if err != nil {
		return session{}, err
	}
	return session{
		Name:       u.Name,
		Email:      u.Email,
		Token:      token,
		IsLoggedIn: true,
		Profile:    u.Profile,
	}, nil
}

// Signup registers a user with a random avatar and returns a token.
func (s *APIServer) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	gender := strings.ToLower(strings.TrimSpace(req.Gender))
	if gender == "" {
		gender = "unspecified"
	}
	profile, err := s.Profiles.Pick(gender)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hash, err := auth.CreateHash(req.Password, s.HashParams)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	u := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
		Gender:   gender,
		Profile:  profile,
	}
	if err := s.Users.Create(r.Context(), u); err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.issue(u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Logger.WithField("user", u.ID).Info("user registered")
	respond.JSON(w, http.StatusCreated, sessionResponse{Message: "Registration successful", User: sess})
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the client.
func (s *APIServer) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.Users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if apperr.Is(err, apperr.NotFound) {
		s.fail(w, r, errInvalidCredentials)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ok, err := auth.ComparePasswordAndHash(req.Password, u.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.fail(w, r, errInvalidCredentials)
		return
	}

	sess, err := s.issue(u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, sessionResponse{Message: "Login successful", User: sess})
}

// Me returns the caller's public profile.
func (s *APIServer) Me(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, me.Public())
}

// ListUsers returns everyone except the caller.
func (s *APIServer) ListUsers(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	users, err := s.Users.ListExcept(r.Context(), me.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

// SearchUsers matches names case-insensitively, excluding the caller.
func (s *APIServer) SearchUsers(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req searchRequest
	if err := decodeValid(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	users, err := s.Users.SearchByName(r.Context(), req.Name, me.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(users) == 0 {
		s.fail(w, r, apperr.New(apperr.NotFound, "no users found"))
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

// GetUser returns a profile together with the caller's relationship to it.
func (s *APIServer) GetUser(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.Users.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status, err := s.Friends.StatusBetween(r.Context(), me.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := userResponse{User: u.Public()}
	if status != nil {
		resp.IsFriend = &friendStatus{Status: *status}
	}
	respond.JSON(w, http.StatusOK, resp)
}
