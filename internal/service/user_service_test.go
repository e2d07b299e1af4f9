package service

import (
	"context"
	"testing"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/cache"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.users.Register(ctx, RegisterInput{
		Username:    "newcomer",
		Email:       "  NewComer@Example.com ",
		Password:    "Tr0ub4dor&3xyz",
		DisplayName: "New Comer",
	})
	require.NoError(t, err)
	assert.Equal(t, "newcomer@example.com", u.Email)
	require.NotNil(t, u.Group)
	assert.Equal(t, permissions.GroupUser, u.Group.Name)
	assert.NotEqual(t, "Tr0ub4dor&3xyz", u.Password)

	tests := []struct {
		name string
		in   RegisterInput
		want *models.AppError
	}{
		{"duplicate username", RegisterInput{Username: "newcomer", Email: "other@example.com", Password: "Tr0ub4dor&3xyz"}, models.ErrConflict},
		{"duplicate email", RegisterInput{Username: "other", Email: "newcomer@example.com", Password: "Tr0ub4dor&3xyz"}, models.ErrConflict},
		{"weak password", RegisterInput{Username: "weakling", Email: "weak@example.com", Password: "password"}, models.ErrValidation},
		{"bad username", RegisterInput{Username: "_x_", Email: "x@example.com", Password: "Tr0ub4dor&3xyz"}, models.ErrValidation},
		{"bad email", RegisterInput{Username: "mailless", Email: "nope", Password: "Tr0ub4dor&3xyz"}, models.ErrValidation},
		{"reserved username", RegisterInput{Username: "Moderator", Email: "mod@example.com", Password: "Tr0ub4dor&3xyz"}, models.ErrValidation},
		{"password repeats username", RegisterInput{Username: "scribbler", Email: "s@example.com", Password: "Scribbler-2024!"}, models.ErrValidation},
		{"missing fields", RegisterInput{}, models.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.users.Register(ctx, tt.in)
			assertCode(t, err, tt.want)
		})
	}

	got, err := e.users.Authenticate(ctx, "newcomer", "Tr0ub4dor&3xyz")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = e.users.Authenticate(ctx, "NEWCOMER@example.com", "Tr0ub4dor&3xyz")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = e.users.Authenticate(ctx, "newcomer", "wrong")
	assertCode(t, err, models.ErrUnauthenticated)
	_, err = e.users.Authenticate(ctx, "ghost", "Tr0ub4dor&3xyz")
	assertCode(t, err, models.ErrUnauthenticated)
}

func TestUserService_GetProfileUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})

	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root", permissions.GroupAdmin)
	alice := e.user(t, "alice", permissions.GroupUser)

	p, err := e.users.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, permissions.GroupUser, p.Group)
	assert.True(t, mr.Exists(cache.UserKey(alice.ID)))

	var trusted models.Group
	require.NoError(t, e.db.Where("name = ?", permissions.GroupTrusted).First(&trusted).Error)
	_, err = e.groups.AssignUserGroup(ctx, admin, alice.ID, trusted.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UserKey(alice.ID)), "group change invalidates the profile")

	p, err = e.users.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, permissions.GroupTrusted, p.Group)

	_, err = e.users.GetProfile(ctx, 9999)
	assertCode(t, err, models.ErrNotFound)
}
