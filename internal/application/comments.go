package application

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

// Comments lists a case's comments. Errors are logged only.
func (w *Workspace) Comments(ctx context.Context, caseID int64) ([]domain.Comment, error) {
	comments, err := w.backend.ListComments(ctx, caseID)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch comments failed", "test_case_id", caseID, "error", err)
		return []domain.Comment{}, err
	}
	return comments, nil
}

// AddComment posts content and prepends the saved comment to current. Blank
// content is ignored.
func (w *Workspace) AddComment(ctx context.Context, caseID int64, content string, current []domain.Comment) ([]domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return current, nil
	}
	c, err := w.backend.AddComment(ctx, caseID, content)
	if err != nil {
		w.logger.ErrorContext(ctx, "add comment failed", "test_case_id", caseID, "error", err)
		w.fail(ctx, "Failed to add comment")
		return current, err
	}
	w.success(ctx, "Comment added")
	w.record(ctx, "comment.add", "test_case", caseID, "")
	out := make([]domain.Comment, 0, len(current)+1)
	out = append(out, c)
	return append(out, current...), nil
}

// DeleteComment always asks the API; ownership is decided there and a
// refusal is shown with the server's message.
func (w *Workspace) DeleteComment(ctx context.Context, caseID, commentID int64, current []domain.Comment) ([]domain.Comment, error) {
	if err := w.backend.DeleteComment(ctx, caseID, commentID); err != nil {
		w.failAPI(ctx, "delete comment", err, "Failed to delete comment")
		return current, err
	}
	w.success(ctx, "Comment deleted")
	w.record(ctx, "comment.delete", "test_case", caseID, "")
	out := make([]domain.Comment, 0, len(current))
	for _, c := range current {
		if c.ID != commentID {
			out = append(out, c)
		}
	}
	return out, nil
}
