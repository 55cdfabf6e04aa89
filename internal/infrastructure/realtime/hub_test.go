package realtime_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/domain/notification"
	"buildledger/internal/infrastructure/realtime"
)

type staticTokens map[string]actor.Actor

func (s staticTokens) ValidateToken(token string) (actor.Actor, error) {
	a, ok := s[token]
	if !ok {
		return actor.Actor{}, apperror.NewUnauthenticated("invalid token")
	}
	return a, nil
}

func startHub(t *testing.T, tokens staticTokens) (*realtime.Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := realtime.NewHub(nil)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", hub.ServeWs(tokens))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestHubRoutesEventsToRecipient(t *testing.T) {
	alice := actor.New(id.New(), actor.RoleManager, "alice")
	bob := actor.New(id.New(), actor.RoleStorekeeper, "bob")
	hub, url := startHub(t, staticTokens{"a": alice, "b": bob})

	connA, _, err := websocket.DefaultDialer.Dial(url+"?token=a", nil)
	require.NoError(t, err)
	defer connA.Close()
	connB, _, err := websocket.DefaultDialer.Dial(url+"?token=b", nil)
	require.NoError(t, err)
	defer connB.Close()

	require.Eventually(t, func() bool {
		return hub.Connected(alice.UserID()) == 1 && hub.Connected(bob.UserID()) == 1
	}, time.Second, 10*time.Millisecond)

	n := &notification.Notification{
		ID:     id.New(),
		UserID: alice.UserID(),
		Type:   notification.TypeTransferRequest,
		Status: notification.StatusPending,
	}
	hub.Deliver(context.Background(), notification.Event{Kind: notification.EventKindCreated, Notification: n})

	_ = connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := connA.ReadMessage()
	require.NoError(t, err)

	var ev notification.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, notification.EventKindCreated, ev.Kind)
	assert.Equal(t, n.ID, ev.Notification.ID)

	_ = connB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's notification")
}

func TestHubRejectsMissingOrInvalidToken(t *testing.T) {
	_, url := startHub(t, staticTokens{})

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.NotEqual(t, 101, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.NotEqual(t, 101, resp.StatusCode)
}
