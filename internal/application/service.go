package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrNoPermission     = errors.New("no execution permission")
	ErrCaseClosed       = errors.New("test case is closed")
	ErrInvalidInput     = errors.New("invalid input")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Workspace is everything one signed-in user can do against the API. It is
// cheap to build and is usually built per request or per CLI command.
type Workspace struct {
	backend  domain.Backend
	auth     *AuthContext
	notifier domain.Notifier
	logger   *slog.Logger
	activity domain.ActivityLog
}

func NewWorkspace(backend domain.Backend, auth *AuthContext, notifier domain.Notifier, logger *slog.Logger) *Workspace {
	if auth == nil {
		auth = NewAuthContext(nil)
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Workspace{backend: backend, auth: auth, notifier: notifier, logger: logger}
}

// WithActivity makes successful mutations land in the local activity log.
func (w *Workspace) WithActivity(log domain.ActivityLog) *Workspace {
	w.activity = log
	return w
}

func (w *Workspace) Auth() *AuthContext { return w.auth }

// CurrentRole is the signed-in user's role, or empty.
func (w *Workspace) CurrentRole() domain.Role {
	u, ok := w.auth.User()
	if !ok {
		return ""
	}
	return u.Role
}

func (w *Workspace) success(ctx context.Context, msg string) {
	w.notifier.Notify(ctx, domain.Notice{Level: domain.NoticeSuccess, Message: msg})
}

func (w *Workspace) fail(ctx context.Context, msg string) {
	w.notifier.Notify(ctx, domain.Notice{Level: domain.NoticeError, Message: msg})
}

// failAPI logs err and shows the server message or fallback.
func (w *Workspace) failAPI(ctx context.Context, op string, err error, fallback string) {
	w.logger.ErrorContext(ctx, op+" failed", "error", err)
	w.fail(ctx, domain.MessageOr(err, fallback))
}

// record appends to the activity log. Failures are logged and otherwise
// ignored.
func (w *Workspace) record(ctx context.Context, action, targetType string, targetID int64, detail string) {
	if w.activity == nil {
		return
	}
	a := domain.Activity{Action: action, TargetType: targetType, Detail: detail}
	if targetID != 0 {
		a.TargetID = &targetID
	}
	if u, ok := w.auth.User(); ok {
		id := u.ID
		a.UserID, a.Username = &id, u.Username
	}
	if err := w.activity.Record(ctx, a); err != nil {
		w.logger.WarnContext(ctx, "record activity failed", "action", action, "error", err)
	}
}

// RecentActivity lists the newest entries of the local activity log.
func (w *Workspace) RecentActivity(ctx context.Context, limit int) ([]domain.Activity, error) {
	if w.activity == nil {
		return []domain.Activity{}, nil
	}
	return w.activity.Recent(ctx, limit)
}

func validateInput(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, describeFieldError(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "gt":
		return fe.Field() + " is required"
	default:
		return fe.Field() + " is invalid"
	}
}

func inputMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}
