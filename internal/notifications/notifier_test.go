package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), Event{Type: EventUserBanned}))
	n.Notify(context.Background(), Event{Type: EventUserBanned})
	n.Wait()

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Publish(context.Background(), Event{}))
	nilNotifier.Notify(context.Background(), Event{})
	nilNotifier.Wait()
}

func TestNotifier_Notify(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, Channel)
	defer func() { _ = sub.Close() }()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	n := NewNotifier(rdb)

	// A cancelled request context must not stop the publish.
	reqCtx, cancel := context.WithCancel(ctx)
	cancel()
	n.Notify(reqCtx, Event{
		Type:       EventReportCreated,
		ActorID:    3,
		TargetType: "report",
		TargetID:   9,
		Data:       map[string]any{"reason": "spam"},
	})
	n.Wait()

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, EventReportCreated, ev.Type)
		assert.EqualValues(t, 9, ev.TargetID)
		assert.Equal(t, "spam", ev.Data["reason"])
		assert.False(t, ev.OccurredAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNotifier_FailureDoesNotPanic(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = rdb.Close() }()
	mr.Close()

	n := NewNotifier(rdb)
	n.Notify(context.Background(), Event{Type: EventUserBanned, TargetID: 1})
	n.Wait()

	assert.Error(t, n.Publish(context.Background(), Event{Type: EventUserBanned}))
}

func TestNotifier_ActorGate(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, Channel)
	defer func() { _ = sub.Close() }()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	n := NewNotifier(rdb).WithActorGate(func(actorID uint) bool { return actorID == 7 })
	n.Notify(ctx, Event{Type: EventUserBanned, ActorID: 3, TargetID: 1})
	n.Notify(ctx, Event{Type: EventUserBanned, ActorID: 7, TargetID: 2})
	n.Wait()

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.EqualValues(t, 7, ev.ActorID)
		assert.EqualValues(t, 2, ev.TargetID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected event from gated actor: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}
