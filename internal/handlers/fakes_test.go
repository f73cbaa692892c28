package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/auth"
	"github.com/animechat/server/internal/middleware"
	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/relay"
)

// memStore backs every store interface with maps guarded by one mutex.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	clock    time.Time
	users    map[int64]*models.User
	edges    []*models.FriendEdge
	messages []models.DirectMessage
	watch    []models.WatchlistEntry
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]*models.User),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) storedMessages() []models.DirectMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DirectMessage(nil), m.messages...)
}

type memUsers struct{ *memStore }

func (m memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperr.New(apperr.Conflict, "email already registered")
		}
	}
	u.ID = m.id()
	u.CreatedAt = m.tick()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "user not found")
}

func (m memUsers) ListExcept(_ context.Context, excludeID int64) ([]models.PublicUser, error) {
	return m.filter(func(u *models.User) bool { return u.ID != excludeID }), nil
}

func (m memUsers) SearchByName(_ context.Context, name string, excludeID int64) ([]models.PublicUser, error) {
	name = strings.ToLower(name)
	return m.filter(func(u *models.User) bool {
		return u.ID != excludeID && strings.Contains(strings.ToLower(u.Name), name)
	}), nil
}

func (m memUsers) filter(keep func(*models.User) bool) []models.PublicUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PublicUser{}
	for _, u := range m.users {
		if keep(u) {
			out = append(out, u.Public())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memFriends struct{ *memStore }

func (m memFriends) Request(_ context.Context, sender, receiver int64) (*models.FriendEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[receiver]; !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	for _, e := range m.edges {
		if e.SenderID == sender && e.ReceiverID == receiver {
			return nil, apperr.New(apperr.Conflict, "friendship request already exists")
		}
	}
	e := &models.FriendEdge{ID: m.id(), SenderID: sender, ReceiverID: receiver, Status: models.FriendPending, CreatedAt: m.tick()}
	m.edges = append(m.edges, e)
	cp := *e
	return &cp, nil
}

func (m memFriends) Accept(_ context.Context, sender, receiver int64) (*models.FriendEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e.SenderID == sender && e.ReceiverID == receiver && e.Status == models.FriendPending {
			e.Status = models.FriendAccepted
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "no pending friend request")
}

func (m memFriends) Remove(_ context.Context, a, b int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.edges[:0]
	removed := 0
	for _, e := range m.edges {
		if (e.SenderID == a && e.ReceiverID == b) || (e.SenderID == b && e.ReceiverID == a) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.edges = kept
	if removed == 0 {
		return apperr.New(apperr.NotFound, "friendship not found")
	}
	return nil
}

func (m memFriends) ListAccepted(_ context.Context, userID int64) ([]models.Friend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Friend{}
	for _, e := range m.edges {
		if e.Status != models.FriendAccepted {
			continue
		}
		var other int64
		switch userID {
		case e.SenderID:
			other = e.ReceiverID
		case e.ReceiverID:
			other = e.SenderID
		default:
			continue
		}
		out = append(out, models.Friend{PublicUser: m.users[other].Public(), FriendshipCreatedAt: e.CreatedAt})
	}
	return out, nil
}

func (m memFriends) ListPending(_ context.Context, receiverID int64) ([]models.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.FriendRequest{}
	for _, e := range m.edges {
		if e.ReceiverID == receiverID && e.Status == models.FriendPending {
			out = append(out, models.FriendRequest{Sender: m.users[e.SenderID].Public(), CreatedAt: e.CreatedAt})
		}
	}
	return out, nil
}

func (m memFriends) StatusBetween(_ context.Context, a, b int64) (*models.FriendStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.FriendStatus
	for _, e := range m.edges {
		if (e.SenderID == a && e.ReceiverID == b) || (e.SenderID == b && e.ReceiverID == a) {
			st := e.Status
			if found == nil || st == models.FriendAccepted {
				found = &st
			}
		}
	}
	return found, nil
}

type memMessages struct{ *memStore }

func (m memMessages) Append(_ context.Context, sender, receiver int64, content string) (*models.DirectMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[receiver]; !ok {
		return nil, apperr.New(apperr.NotFound, "receiver not found")
	}
	msg := models.DirectMessage{ID: m.id(), SenderID: sender, ReceiverID: receiver, Content: content, CreatedAt: m.tick()}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m memMessages) Conversation(_ context.Context, a, b int64) ([]models.DirectMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.DirectMessage{}
	for _, msg := range m.messages {
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memWatchlist struct{ *memStore }

func (m memWatchlist) Add(_ context.Context, e *models.WatchlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.watch {
		if w.UserID == e.UserID && w.AnimeID == e.AnimeID {
			return apperr.New(apperr.Conflict, "anime already in watchlist")
		}
	}
	e.ID = m.id()
	e.CreatedAt = m.tick()
	m.watch = append(m.watch, *e)
	return nil
}

func (m memWatchlist) Contains(_ context.Context, userID, animeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.watch {
		if w.UserID == userID && w.AnimeID == animeID {
			return true, nil
		}
	}
	return false, nil
}

func (m memWatchlist) List(_ context.Context, userID int64) ([]models.WatchlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WatchlistEntry{}
	for _, w := range m.watch {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m memWatchlist) Remove(_ context.Context, userID, animeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.watch {
		if w.UserID == userID && w.AnimeID == animeID {
			m.watch = append(m.watch[:i], m.watch[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.NotFound, "anime not found in watchlist")
}

type fixedPicker struct{}

func (fixedPicker) Pick(gender string) (string, error) {
	if gender == "female" {
		return "Female/1.png", nil
	}
	return "Male/1.png", nil
}

type countingMetrics struct {
	messages atomic.Int64
	requests atomic.Int64
}

func (c *countingMetrics) MessageSent()   { c.messages.Add(1) }
func (c *countingMetrics) FriendRequest() { c.requests.Add(1) }

var fastParams = &auth.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type testEnv struct {
	store   *memStore
	tokens  *auth.TokenService
	hub     *relay.Hub
	metrics *countingMetrics
	logs    *test.Hook
	srv     *APIServer
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	store := newMemStore()
	tokens := auth.NewTokenService("test-secret")
	hub := relay.NewHub(logger, nil)
	t.Cleanup(func() { _ = hub.Close() })
	metrics := &countingMetrics{}

	srv := NewAPIServer(APIServer{
		Users:      memUsers{store},
		Friends:    memFriends{store},
		Messages:   memMessages{store},
		Watchlist:  memWatchlist{store},
		Tokens:     tokens,
		Profiles:   fixedPicker{},
		Broker:     hub,
		Metrics:    metrics,
		Logger:     logger,
		HashParams: fastParams,
	})
	router := NewRouter(srv, RouterConfig{
		Gate:        middleware.NewAuthGate(tokens, memUsers{store}, logger),
		CORSOrigins: []string{"http://localhost:5173"},
	})
	return &testEnv{store: store, tokens: tokens, hub: hub, metrics: metrics, logs: hook, srv: srv, router: router}
}

// addUser stores a user whose password is "password" and returns it with a
// bearer token.
func (e *testEnv) addUser(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	hash, err := auth.CreateHash("password", fastParams)
	require.NoError(t, err)
	u := &models.User{Name: name, Email: strings.ToLower(name) + "@example.com", Password: hash, Profile: "Male/1.png"}
	require.NoError(t, memUsers{e.store}.Create(context.Background(), u))
	tok, err := e.tokens.Issue(u.ID)
	require.NoError(t, err)
	return u, tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body=%s", w.Body.String())
	return v
}
