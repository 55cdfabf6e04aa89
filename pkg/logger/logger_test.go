package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"buildledger/internal/core/actor"
	appctx "buildledger/internal/core/context"
	"buildledger/internal/core/id"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestContextFieldsAreAttached(t *testing.T) {
	l, logs := observed()
	userID := id.New()
	ctx := WithLogger(context.Background(), l)
	ctx = appctx.WithCorrelation(ctx, appctx.ForRequest("req-1", ""))
	ctx = actor.WithActor(ctx, actor.New(userID, actor.RoleManager, "Dana"))

	Info(ctx, "posted", "amount", "10")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, userID.String(), fields["user_id"])
		assert.Equal(t, "manager", fields["role"])
		assert.Equal(t, "10", fields["amount"])
	}
}

func TestWithComponent(t *testing.T) {
	l, logs := observed()
	l.WithComponent("worker").Infow("tick")
	assert.Equal(t, "worker", logs.All()[0].ContextMap()["component"])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}
