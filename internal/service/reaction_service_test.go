package service

import (
	"context"
	"testing"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionService_Ledger(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "author", permissions.GroupTrusted)
	alice := e.user(t, "alice", permissions.GroupUser)
	bob := e.user(t, "bob", permissions.GroupUser)
	c := e.post(t, author, "react to me", nil)

	state, err := e.reactions.Set(ctx, alice, c.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{Likes: 1}, state.Counts)

	state, err = e.reactions.Set(ctx, alice, c.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{Likes: 1}, state.Counts, "repeating a reaction is a no-op")

	state, err = e.reactions.Set(ctx, bob, c.ID, models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{Likes: 1, Dislikes: 1}, state.Counts)
	assert.Equal(t, models.ReactionDislike, state.Mine)

	state, err = e.reactions.Remove(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{Dislikes: 1}, state.Counts)
	assert.Empty(t, state.Mine)

	state, err = e.reactions.Remove(ctx, alice, c.ID)
	require.NoError(t, err, "removing a missing reaction succeeds")
	assert.Equal(t, models.ReactionCounts{Dislikes: 1}, state.Counts)

	other := e.post(t, author, "untouched", nil)
	counts, err := e.reactions.Counts(ctx, []uint{c.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{Dislikes: 1}, counts[c.ID])
	assert.Equal(t, models.ReactionCounts{}, counts[other.ID])
}

func TestReactionService_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "author", permissions.GroupTrusted)
	newbie := e.user(t, "newbie", permissions.GroupUser)
	alice := e.user(t, "alice", permissions.GroupUser)

	live := e.post(t, author, "live", nil)
	pending := e.post(t, newbie, "pending", nil)
	gone := e.post(t, author, "gone", nil)
	_, err := e.comments.SoftDelete(ctx, author, gone.ID)
	require.NoError(t, err)

	_, err = e.reactions.Set(ctx, alice, live.ID, models.ReactionType("love"))
	assertCode(t, err, models.ErrValidation)

	_, err = e.reactions.Set(ctx, Actor{}, live.ID, models.ReactionLike)
	assertCode(t, err, models.ErrUnauthenticated)

	_, err = e.reactions.Set(ctx, alice, gone.ID, models.ReactionLike)
	assertCode(t, err, models.ErrNotFound)

	_, err = e.reactions.Set(ctx, alice, pending.ID, models.ReactionLike)
	assertCode(t, err, models.ErrNotFound)

	_, err = e.reactions.Set(ctx, newbie, pending.ID, models.ReactionLike)
	assert.NoError(t, err, "authors may react to their own pending comment")

	_, err = e.reactions.Set(ctx, alice, 9999, models.ReactionLike)
	assertCode(t, err, models.ErrNotFound)
}
