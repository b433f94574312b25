package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cppla/postboard/models"
)

func newMessageService(t *testing.T) (*MessageService, Identity, Identity) {
	t.Helper()
	db := newTestDB(t)
	svc := NewMessageService(db, zaptest.NewLogger(t)).WithClock(stepClock(epoch, time.Second))
	return svc, seedUser(t, db, "alice"), seedUser(t, db, "bob")
}

func messageCount(t *testing.T, svc *MessageService) int64 {
	t.Helper()
	var n int64
	require.NoError(t, svc.db.Model(&models.Message{}).Count(&n).Error)
	return n
}

func TestMessageService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		input     MessageInput
		wantField string
		wantTitle string
	}{
		{name: "Valid", input: MessageInput{Title: "Hello", Content: "First message"}},
		{name: "TitleAtLimit", input: MessageInput{Title: strings.Repeat("t", models.MessageTitleMax), Content: "x"}},
		{name: "EmptyTitle", input: MessageInput{Title: "", Content: "x"}, wantField: "title"},
		{name: "TitleTooLong", input: MessageInput{Title: strings.Repeat("t", models.MessageTitleMax+1), Content: "x"}, wantField: "title"},
		{name: "EmptyContent", input: MessageInput{Title: "Hello"}, wantField: "content"},
		{name: "MarkupOnlyTitle", input: MessageInput{Title: "<b></b>", Content: "x"}, wantField: "title"},
		{name: "Punctuation", input: MessageInput{Title: `Q&A: Bob's "tips"`, Content: "x"}, wantTitle: `Q&A: Bob's "tips"`},
		{name: "MarkupStripped", input: MessageInput{Title: "<i>Hi</i> & bye", Content: "x"}, wantTitle: "Hi & bye"},
		{name: "AmpersandAtLimit", input: MessageInput{Title: strings.Repeat("t", models.MessageTitleMax-1) + "&", Content: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, alice, _ := newMessageService(t)
			msg, err := svc.Create(ctx, alice, tt.input)
			if tt.wantField != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				assert.Zero(t, messageCount(t, svc))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, alice.UserID, msg.UserID)
			assert.Equal(t, "alice", msg.User.Username)
			assert.True(t, msg.IsActive)
			assert.Equal(t, models.MessageActive, msg.State())
			assert.True(t, msg.CreatedAt.Equal(msg.UpdatedAt))
			want := tt.wantTitle
			if want == "" {
				want = tt.input.Title
			}
			assert.Equal(t, want, msg.Title)
		})
	}
}

func TestMessageService_CreateAnonymous(t *testing.T) {
	svc, _, _ := newMessageService(t)
	_, err := svc.Create(context.Background(), Anonymous, MessageInput{Title: "Hello", Content: "x"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, messageCount(t, svc))
}

func TestMessageService_CreateUnknownUser(t *testing.T) {
	svc, _, _ := newMessageService(t)
	_, err := svc.Create(context.Background(), Identity{UserID: 999, Username: "ghost"}, MessageInput{Title: "Hello", Content: "x"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMessageService_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, alice, bob := newMessageService(t)

	for _, title := range []string{"one", "two", "three"} {
		_, err := svc.Create(ctx, alice, MessageInput{Title: title, Content: "by alice"})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, bob, MessageInput{Title: "four", Content: "by bob"})
	require.NoError(t, err)

	msgs, err := svc.List(ctx, MessageFilter{})
	require.NoError(t, err)

	titles := make([]string, 0, len(msgs))
	for _, m := range msgs {
		titles = append(titles, m.Title)
	}
	if diff := cmp.Diff([]string{"four", "three", "two", "one"}, titles); diff != "" {
		t.Errorf("List() titles mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt))
	}
}

func TestMessageService_ListEmpty(t *testing.T) {
	svc, _, _ := newMessageService(t)
	msgs, err := svc.List(context.Background(), MessageFilter{})
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestMessageService_ListFilters(t *testing.T) {
	ctx := context.Background()
	svc, alice, bob := newMessageService(t)

	first, err := svc.Create(ctx, alice, MessageInput{Title: "Gardening tips", Content: "Water daily"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, MessageInput{Title: "Bike for sale", Content: "Barely used"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, alice, first.ID, MessageUpdate{IsActive: boolPtr(false)})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter MessageFilter
		want   []string
	}{
		{name: "All", filter: MessageFilter{}, want: []string{"Bike for sale", "Gardening tips"}},
		{name: "Active", filter: MessageFilter{Active: boolPtr(true)}, want: []string{"Bike for sale"}},
		{name: "Inactive", filter: MessageFilter{Active: boolPtr(false)}, want: []string{"Gardening tips"}},
		{name: "AuthorName", filter: MessageFilter{Author: "bob"}, want: []string{"Bike for sale"}},
		{name: "AuthorID", filter: MessageFilter{AuthorID: alice.UserID}, want: []string{"Gardening tips"}},
		{name: "SearchContentCaseInsensitive", filter: MessageFilter{Search: "WATER"}, want: []string{"Gardening tips"}},
		{name: "SearchUsername", filter: MessageFilter{Search: "bo"}, want: []string{"Bike for sale"}},
		{name: "Day", filter: MessageFilter{Date: "2024-03-01"}, want: []string{"Bike for sale", "Gardening tips"}},
		{name: "Month", filter: MessageFilter{Date: "2024-03"}, want: []string{"Bike for sale", "Gardening tips"}},
		{name: "OtherYear", filter: MessageFilter{Date: "2023"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := svc.List(ctx, tt.filter)
			require.NoError(t, err)
			got := []string{}
			for _, m := range msgs {
				got = append(got, m.Title)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("List() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMessageService_ListBadDate(t *testing.T) {
	svc, _, _ := newMessageService(t)
	_, err := svc.List(context.Background(), MessageFilter{Date: "March"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Fields[0].Field)
}

func TestMessageService_Update(t *testing.T) {
	ctx := context.Background()
	svc, alice, _ := newMessageService(t)

	msg, err := svc.Create(ctx, alice, MessageInput{Title: "Hello", Content: "First"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, alice, msg.ID, MessageUpdate{Content: strPtr("Edited")})
	require.NoError(t, err)
	assert.Equal(t, "Hello", updated.Title)
	assert.Equal(t, "Edited", updated.Content)
	assert.Equal(t, alice.UserID, updated.UserID)
	assert.True(t, updated.CreatedAt.Equal(msg.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(msg.UpdatedAt))

	hidden, err := svc.Update(ctx, alice, msg.ID, MessageUpdate{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, models.MessageInactive, hidden.State())

	shown, err := svc.Update(ctx, alice, msg.ID, MessageUpdate{IsActive: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, models.MessageActive, shown.State())
}

func TestMessageService_UpdateStampMovesForwardOnFrozenClock(t *testing.T) {
	ctx := context.Background()
	svc, alice, _ := newMessageService(t)
	svc.WithClock(fixedClock(epoch))

	msg, err := svc.Create(ctx, alice, MessageInput{Title: "Hello", Content: "First"})
	require.NoError(t, err)

	prev := msg.UpdatedAt
	for i := 0; i < 3; i++ {
		got, err := svc.Update(ctx, alice, msg.ID, MessageUpdate{Title: strPtr("Hello again")})
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(prev), "updated_at %v not after %v", got.UpdatedAt, prev)
		prev = got.UpdatedAt
	}
}

func TestMessageService_UpdateRejected(t *testing.T) {
	ctx := context.Background()
	svc, alice, bob := newMessageService(t)

	msg, err := svc.Create(ctx, alice, MessageInput{Title: "Hello", Content: "First"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		who     Identity
		id      uint
		patch   MessageUpdate
		wantErr error
	}{
		{name: "Anonymous", who: Anonymous, id: msg.ID, patch: MessageUpdate{Title: strPtr("x")}, wantErr: ErrUnauthorized},
		{name: "NotAuthor", who: bob, id: msg.ID, patch: MessageUpdate{Title: strPtr("Hacked")}, wantErr: ErrForbidden},
		{name: "NotAuthorEvenAsAdmin", who: Identity{UserID: bob.UserID, Username: "bob", Admin: true}, id: msg.ID, patch: MessageUpdate{Title: strPtr("Hacked")}, wantErr: ErrForbidden},
		{name: "Missing", who: alice, id: msg.ID + 100, patch: MessageUpdate{Title: strPtr("x")}, wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.who, tt.id, tt.patch)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("EmptyTitle", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, msg.ID, MessageUpdate{Title: strPtr("  ")})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "title", verr.Fields[0].Field)
	})

	stored, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", stored.Title)
	assert.True(t, stored.UpdatedAt.Equal(msg.UpdatedAt))
}

func TestMessageService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, alice, bob := newMessageService(t)

	msg, err := svc.Create(ctx, alice, MessageInput{Title: "Hello", Content: "First"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, Anonymous, msg.ID), ErrUnauthorized)
	assert.ErrorIs(t, svc.Delete(ctx, bob, msg.ID), ErrForbidden)
	assert.EqualValues(t, 1, messageCount(t, svc))

	require.NoError(t, svc.Delete(ctx, alice, msg.ID))
	_, err = svc.Get(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, alice, msg.ID), ErrNotFound)
}

func TestMessageService_Admin(t *testing.T) {
	ctx := context.Background()
	svc, alice, bob := newMessageService(t)
	admin := Identity{UserID: bob.UserID, Username: bob.Username, Admin: true}

	msg, err := svc.Create(ctx, alice, MessageInput{Title: "Hello", Content: "First"})
	require.NoError(t, err)

	_, err = svc.AdminUpdate(ctx, bob, msg.ID, MessageUpdate{IsActive: boolPtr(false)})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.AdminUpdate(ctx, admin, msg.ID, MessageUpdate{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, alice.UserID, got.UserID)

	assert.ErrorIs(t, svc.AdminDelete(ctx, bob, msg.ID), ErrForbidden)
	require.NoError(t, svc.AdminDelete(ctx, admin, msg.ID))
	assert.Zero(t, messageCount(t, svc))
}
