package application

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

// PermittedUsers lists execution permission grants.
func (w *Workspace) PermittedUsers(ctx context.Context) ([]domain.PermittedUser, error) {
	users, err := w.backend.ListPermittedUsers(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch permitted users failed", "error", err)
		w.fail(ctx, "Failed to load permitted users")
		return []domain.PermittedUser{}, err
	}
	return users, nil
}

// GrantPermission grants by email and returns the refreshed list. A blank
// email never reaches the API.
func (w *Workspace) GrantPermission(ctx context.Context, email string) ([]domain.PermittedUser, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		w.fail(ctx, "Please enter an email address")
		return nil, ErrInvalidInput
	}
	if err := w.backend.GrantPermission(ctx, email); err != nil {
		w.failAPI(ctx, "grant permission", err, "Failed to grant permission")
		return nil, err
	}
	w.success(ctx, "Permission granted successfully!")
	w.record(ctx, "permission.grant", "user", 0, email)
	return w.PermittedUsers(ctx)
}

func (w *Workspace) RevokePermission(ctx context.Context, userID int64) ([]domain.PermittedUser, error) {
	if err := w.backend.RevokePermission(ctx, userID); err != nil {
		w.failAPI(ctx, "revoke permission", err, "Failed to revoke permission")
		return nil, err
	}
	w.success(ctx, "Permission revoked successfully!")
	w.record(ctx, "permission.revoke", "user", userID, "")
	return w.PermittedUsers(ctx)
}

// CanExecute asks the API whether the signed-in user may submit executions.
// Any failure is treated as no.
func (w *Workspace) CanExecute(ctx context.Context) bool {
	check, err := w.backend.CheckPermission(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "permission check failed", "error", err)
		return false
	}
	return check.HasPermission
}
