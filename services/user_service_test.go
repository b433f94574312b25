package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cppla/postboard/models"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	db := newTestDB(t)
	return NewUserService(db, zaptest.NewLogger(t), testGrace)
}

func identityOf(u models.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		input     RegisterInput
		wantField string
	}{
		{name: "Valid", input: RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"}},
		{name: "NoEmail", input: RegisterInput{Username: "alice_2", Password: "secret1"}},
		{name: "ShortUsername", input: RegisterInput{Username: "al", Password: "secret1"}, wantField: "username"},
		{name: "BadCharacters", input: RegisterInput{Username: "alice!", Password: "secret1"}, wantField: "username"},
		{name: "BadEmail", input: RegisterInput{Username: "alice", Email: "nope", Password: "secret1"}, wantField: "email"},
		{name: "ShortPassword", input: RegisterInput{Username: "alice", Password: "123"}, wantField: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newUserService(t)
			user, err := svc.Register(ctx, tt.input)
			if tt.wantField != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.NotEqual(t, tt.input.Password, user.PasswordHash)
		})
	}
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Password: "secret2"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	registered, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_FindOrCreateOAuth(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, RegisterInput{Username: "octocat", Password: "secret1"})
	require.NoError(t, err)

	profile := OAuthProfile{Provider: "github", ID: "42", Username: "OctoCat", Email: "o@example.com"}
	first, err := svc.FindOrCreateOAuth(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, "octocat_1", first.Username)

	profile.AvatarURL = "https://example.com/a.png"
	again, err := svc.FindOrCreateOAuth(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = svc.Authenticate(ctx, "octocat_1", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	messages := NewMessageService(svc.db, nil)
	posts := NewPostService(svc.db, nil, testGrace)

	alice, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	bob, err := svc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1"})
	require.NoError(t, err)

	_, err = messages.Create(ctx, identityOf(alice), MessageInput{Title: "hi", Content: "x"})
	require.NoError(t, err)
	_, err = posts.Create(ctx, identityOf(alice), validPost("alice post"))
	require.NoError(t, err)
	bobMsg, err := messages.Create(ctx, identityOf(bob), MessageInput{Title: "hey", Content: "y"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, identityOf(bob), alice.ID), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, Anonymous, alice.ID), ErrUnauthorized)

	require.NoError(t, svc.Delete(ctx, identityOf(alice), alice.ID))

	_, err = svc.Get(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	left, err := messages.List(ctx, MessageFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, bobMsg.ID, left[0].ID)
	page, err := posts.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	admin := Identity{UserID: alice.ID + 100, Username: "root", Admin: true}
	require.NoError(t, svc.Delete(ctx, admin, bob.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, bob.ID), ErrNotFound)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := svc.Register(ctx, RegisterInput{Username: name, Password: "secret1"})
		require.NoError(t, err)
	}

	_, err := svc.List(ctx, Identity{UserID: 1, Username: "alice"}, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	page, err := svc.List(ctx, Identity{UserID: 1, Username: "alice", Admin: true}, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.EqualValues(t, 3, page.Pagination.Total)
}
