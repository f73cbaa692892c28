// internal/handlers/api_server.go
package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/animechat/server/internal/auth"
	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/relay"
)

// UserStore is the identity store as the handlers use it.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListExcept(ctx context.Context, excludeID int64) ([]models.PublicUser, error)
	SearchByName(ctx context.Context, name string, excludeID int64) ([]models.PublicUser, error)
}

// FriendStore is the friendship ledger.
type FriendStore interface {
	Request(ctx context.Context, sender, receiver int64) (*models.FriendEdge, error)
	Accept(ctx context.Context, sender, receiver int64) (*models.FriendEdge, error)
	Remove(ctx context.Context, a, b int64) error
	ListAccepted(ctx context.Context, userID int64) ([]models.Friend, error)
	ListPending(ctx context.Context, receiverID int64) ([]models.FriendRequest, error)
	StatusBetween(ctx context.Context, a, b int64) (*models.FriendStatus, error)
}

// MessageStore is the direct message log.
type MessageStore interface {
	Append(ctx context.Context, sender, receiver int64, content string) (*models.DirectMessage, error)
	Conversation(ctx context.Context, a, b int64) ([]models.DirectMessage, error)
}

type WatchlistStore interface {
	Add(ctx context.Context, e *models.WatchlistEntry) error
	Contains(ctx context.Context, userID, animeID int64) (bool, error)
	List(ctx context.Context, userID int64) ([]models.WatchlistEntry, error)
	Remove(ctx context.Context, userID, animeID int64) error
}

type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

type ProfilePicker interface {
	Pick(gender string) (string, error)
}

// Recorder counts domain events. metrics.Collector implements it.
type Recorder interface {
	MessageSent()
	FriendRequest()
}

type nopRecorder struct{}

func (nopRecorder) MessageSent()   {}
func (nopRecorder) FriendRequest() {}

// APIServer holds everything the HTTP and websocket handlers need.
type APIServer struct {
	Users     UserStore
	Friends   FriendStore
	Messages  MessageStore
	Watchlist WatchlistStore
	Tokens    TokenIssuer
	Profiles  ProfilePicker
	Broker    relay.Broker
	Metrics   Recorder
	Logger    *logrus.Logger

	// HashParams are used for new password hashes.
	HashParams *auth.Params
	// WSOrigins are the host patterns websocket upgrades may come from.
	// Same-host upgrades are always allowed.
	WSOrigins []string
}

// NewAPIServer fills in defaults for the optional fields of s.
func NewAPIServer(s APIServer) *APIServer {
	if s.Metrics == nil {
		s.Metrics = nopRecorder{}
	}
	if s.HashParams == nil {
		s.HashParams = auth.DefaultParams
	}
	if s.Logger == nil {
		s.Logger = logrus.StandardLogger()
	}
	return &s
}
