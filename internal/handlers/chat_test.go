package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/relay"
	"github.com/animechat/server/internal/respond"
)

func TestSendAndFetchConversation(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceTok := env.addUser(t, "alice")
	bob, bobTok := env.addUser(t, "bob")

	w := env.do(t, http.MethodPost, "/api/chat/send", aliceTok, map[string]any{"receiverId": bob.ID, "message": "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[models.DirectMessage](t, w)
	assert.Equal(t, alice.ID, first.SenderID)
	assert.Equal(t, "hi", first.Content)

	w = env.do(t, http.MethodPost, "/api/chat/send", bobTok, map[string]any{"receiverId": alice.ID, "message": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)

	fromAlice := decode[[]models.DirectMessage](t, env.do(t, http.MethodPost, "/api/chat", aliceTok, map[string]int64{"receiverId": bob.ID}))
	fromBob := decode[[]models.DirectMessage](t, env.do(t, http.MethodGet, "/api/chat/"+strconv.FormatInt(alice.ID, 10), bobTok, nil))

	require.Len(t, fromAlice, 2)
	assert.Equal(t, fromAlice, fromBob)
	assert.Equal(t, "hi", fromAlice[0].Content)
	assert.Equal(t, "hello", fromAlice[1].Content)
	assert.Equal(t, int64(2), env.metrics.messages.Load())
}

func TestSendMessage_UnknownReceiver(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.addUser(t, "alice")

	w := env.do(t, http.MethodPost, "/api/chat/send", tok, map[string]any{"receiverId": 77, "message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "receiver not found", decode[respond.Message](t, w).Message)
	assert.Empty(t, env.store.storedMessages())
	assert.Zero(t, env.metrics.messages.Load())
}

func TestSendMessage_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.addUser(t, "alice")

	w := env.do(t, http.MethodPost, "/api/chat/send", tok, map[string]any{"receiverId": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "message is required", decode[respond.Message](t, w).Message)
}

func TestSendMessage_PublishesAfterAppend(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceTok := env.addUser(t, "alice")
	bob, _ := env.addUser(t, "bob")

	sub, err := env.hub.Subscribe(context.Background(), bob.ID)
	require.NoError(t, err)
	defer sub.Close()

	w := env.do(t, http.MethodPost, "/api/chat/send", aliceTok, map[string]any{"receiverId": bob.ID, "message": "ping"})
	require.Equal(t, http.StatusCreated, w.Code)
	stored := decode[models.DirectMessage](t, w)

	select {
	case ev := <-sub.C:
		assert.Equal(t, relay.EventNewMessage, ev.Type)
		assert.Equal(t, stored.ID, ev.ID)
		assert.Equal(t, alice.ID, ev.SenderID)
		assert.Equal(t, "ping", ev.Content)
	case <-time.After(time.Second):
		t.Fatal("no relay event")
	}
}

type failingBroker struct{ relay.Broker }

func (failingBroker) Publish(context.Context, relay.Event) error { return errors.New("redis down") }

func TestSendMessage_RelayFailureStillStores(t *testing.T) {
	env := newTestEnv(t)
	_, aliceTok := env.addUser(t, "alice")
	bob, _ := env.addUser(t, "bob")
	env.srv.Broker = failingBroker{}

	w := env.do(t, http.MethodPost, "/api/chat/send", aliceTok, map[string]any{"receiverId": bob.ID, "message": "ping"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, env.store.storedMessages(), 1)
	var warned bool
	for _, e := range env.logs.AllEntries() {
		warned = warned || e.Message == "relay publish failed"
	}
	assert.True(t, warned)
}
