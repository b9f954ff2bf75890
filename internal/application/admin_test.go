package application

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

func TestDeleteForeignCommentShowsServerMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.deleteComment = func(int64, int64) error {
		return &domain.APIError{Status: http.StatusForbidden, Message: "You can only delete your own comments"}
	}
	ws, notices := newTestWorkspace(t, backend, domain.RoleTester)

	current := []domain.Comment{{ID: 1, UserID: 2}, {ID: 2, UserID: 7}}
	out, err := ws.DeleteComment(context.Background(), 4, 1, current)
	require.Error(t, err)
	assert.Equal(t, 1, backend.count("DeleteComment"))
	assert.Equal(t, current, out)

	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, domain.NoticeError, last.Level)
	assert.Equal(t, "You can only delete your own comments", last.Message)
}

func TestDeleteCommentRemovesLocally(t *testing.T) {
	backend := newFakeBackend()
	ws, _ := newTestWorkspace(t, backend, domain.RoleTester)

	out, err := ws.DeleteComment(context.Background(), 4, 1, []domain.Comment{{ID: 1}, {ID: 2}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].ID)
}

func TestAddComment(t *testing.T) {
	backend := newFakeBackend()
	ws, notices := newTestWorkspace(t, backend, domain.RoleTester)
	ctx := context.Background()

	current := []domain.Comment{{ID: 1}}
	out, err := ws.AddComment(ctx, 4, "   ", current)
	require.NoError(t, err)
	assert.Equal(t, current, out)
	assert.Zero(t, backend.count("AddComment"))

	out, err = ws.AddComment(ctx, 4, " looks good ", current)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(99), out[0].ID)
	assert.Equal(t, "looks good", out[0].Content)
	last, _ := notices.Last()
	assert.Equal(t, "Comment added", last.Message)
}

func TestAddCommentFailureUsesFixedMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.addComment = func(int64, string) (domain.Comment, error) {
		return domain.Comment{}, &domain.APIError{Status: 400, Message: "content too long"}
	}
	ws, notices := newTestWorkspace(t, backend, domain.RoleTester)

	current := []domain.Comment{{ID: 1}}
	out, err := ws.AddComment(context.Background(), 4, "hello", current)
	require.Error(t, err)
	assert.Equal(t, current, out)
	last, _ := notices.Last()
	assert.Equal(t, domain.NoticeError, last.Level)
	assert.Equal(t, "Failed to add comment", last.Message)
}

func TestGrantPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("blank email makes no call", func(t *testing.T) {
		backend := newFakeBackend()
		ws, notices := newTestWorkspace(t, backend, domain.RoleAdmin)
		_, err := ws.GrantPermission(ctx, "  ")
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Zero(t, backend.count("GrantPermission"))
		last, _ := notices.Last()
		assert.Equal(t, "Please enter an email address", last.Message)
	})

	t.Run("trims and re-lists", func(t *testing.T) {
		backend := newFakeBackend()
		backend.listPermitted = func() ([]domain.PermittedUser, error) {
			return []domain.PermittedUser{{ID: 3, Email: "qa@example.com"}}, nil
		}
		ws, notices := newTestWorkspace(t, backend, domain.RoleAdmin)
		users, err := ws.GrantPermission(ctx, " qa@example.com ")
		require.NoError(t, err)
		assert.Equal(t, "qa@example.com", backend.lastGrant)
		assert.Len(t, users, 1)
		assert.Equal(t, 1, backend.count("ListPermittedUsers"))
		last, _ := notices.Last()
		assert.Equal(t, "Permission granted successfully!", last.Message)
	})

	t.Run("server message on failure", func(t *testing.T) {
		backend := newFakeBackend()
		backend.grant = func(string) error {
			return &domain.APIError{Status: http.StatusNotFound, Message: "User not found"}
		}
		ws, notices := newTestWorkspace(t, backend, domain.RoleAdmin)
		_, err := ws.GrantPermission(ctx, "ghost@example.com")
		require.Error(t, err)
		assert.Zero(t, backend.count("ListPermittedUsers"))
		last, _ := notices.Last()
		assert.Equal(t, "User not found", last.Message)
	})
}

func TestRevokePermission(t *testing.T) {
	backend := newFakeBackend()
	ws, notices := newTestWorkspace(t, backend, domain.RoleAdmin)

	_, err := ws.RevokePermission(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.count("ListPermittedUsers"))
	last, _ := notices.Last()
	assert.Equal(t, "Permission revoked successfully!", last.Message)

	backend.revoke = func(int64) error { return errors.New("down") }
	_, err = ws.RevokePermission(context.Background(), 3)
	require.Error(t, err)
	last, _ = notices.Last()
	assert.Equal(t, "Failed to revoke permission", last.Message)
}

func TestPermittedUsersFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.listPermitted = func() ([]domain.PermittedUser, error) { return nil, errors.New("down") }
	ws, notices := newTestWorkspace(t, backend, domain.RoleAdmin)

	users, err := ws.PermittedUsers(context.Background())
	require.Error(t, err)
	assert.Empty(t, users)
	last, _ := notices.Last()
	assert.Equal(t, "Failed to load permitted users", last.Message)
}

func TestAuthContextLifecycle(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	auth := NewAuthContext(store)
	assert.True(t, auth.IsLoading())

	require.NoError(t, auth.Restore(ctx))
	assert.False(t, auth.IsLoading())
	assert.False(t, auth.IsAuthenticated())

	user := domain.User{ID: 1, Username: "ana", Role: domain.RoleAdmin}
	require.NoError(t, auth.Login(ctx, "t0k", user))
	assert.True(t, auth.IsAuthenticated())
	assert.Equal(t, "t0k", auth.Token())

	restored := NewAuthContext(store)
	require.NoError(t, restored.Restore(ctx))
	got, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, user, got)

	require.NoError(t, restored.Logout(ctx))
	assert.False(t, restored.IsAuthenticated())
	assert.Empty(t, restored.Token())
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestAuthContextLoginRejectsEmptyToken(t *testing.T) {
	auth := NewAuthContext(nil)
	require.Error(t, auth.Login(context.Background(), " ", domain.User{}))
	assert.False(t, auth.IsAuthenticated())
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.login = func(email, password string) (domain.LoginResult, error) {
		if password != "secret123" {
			return domain.LoginResult{}, &domain.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
		}
		return domain.LoginResult{Token: "jwt", User: domain.User{ID: 1, Email: email, Role: domain.RoleTester}}, nil
	}
	ws, notices := newTestWorkspace(t, backend, "")

	_, err := ws.SignIn(ctx, "a@b.c", "wrong")
	require.Error(t, err)
	last, _ := notices.Last()
	assert.Equal(t, "Invalid credentials", last.Message)
	assert.False(t, ws.Auth().IsAuthenticated())

	u, err := ws.SignIn(ctx, " a@b.c ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", u.Email)
	assert.Equal(t, "jwt", ws.Auth().Token())
	assert.Equal(t, domain.RoleTester, ws.CurrentRole())
	last, _ = notices.Last()
	assert.Equal(t, "Welcome back!", last.Message)
}

func TestRegisterValidatesPassword(t *testing.T) {
	backend := newFakeBackend()
	ws, notices := newTestWorkspace(t, backend, "")

	err := ws.Register(context.Background(), "ana", "ana@example.com", "short")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, backend.count("Register"))
	last, _ := notices.Last()
	assert.Contains(t, last.Message, "at least 8")

	require.NoError(t, ws.Register(context.Background(), "ana", "ana@example.com", "longenough"))
	assert.Equal(t, 1, backend.count("Register"))
}

type memoryActivity struct {
	entries []domain.Activity
}

func (m *memoryActivity) Record(_ context.Context, a domain.Activity) error {
	m.entries = append(m.entries, a)
	return nil
}

func (m *memoryActivity) Recent(_ context.Context, limit int) ([]domain.Activity, error) {
	out := []domain.Activity{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func TestMutationsAreRecordedOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.revoke = func(int64) error { return errors.New("down") }
	log := &memoryActivity{}
	ws, _ := newTestWorkspace(t, backend, domain.RoleAdmin)
	ws.WithActivity(log)

	_, err := ws.CreateProject(ctx, domain.NewProject{Name: "Billing"}, nil)
	require.NoError(t, err)
	_, err = ws.RevokePermission(ctx, 5)
	require.Error(t, err)

	recent, err := ws.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "project.create", recent[0].Action)
	assert.Equal(t, "Billing", recent[0].Detail)
	require.NotNil(t, recent[0].UserID)
	assert.Equal(t, int64(7), *recent[0].UserID)
}
