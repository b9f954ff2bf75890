package application

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

// AuthContext holds the current user and token. It is the API client's token
// source. Reads vastly outnumber writes.
type AuthContext struct {
	mu            sync.RWMutex
	store         domain.SessionStore
	session       domain.Session
	authenticated bool
	loading       bool
}

// NewAuthContext starts in the loading state until Restore runs. A nil store
// keeps the session in memory only.
func NewAuthContext(store domain.SessionStore) *AuthContext {
	return &AuthContext{store: store, loading: true}
}

// Restore loads a persisted session, if any.
func (a *AuthContext) Restore(ctx context.Context) error {
	if a.store == nil {
		a.mu.Lock()
		a.loading = false
		a.mu.Unlock()
		return nil
	}
	s, err := a.store.Load(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = false
	if err != nil {
		a.session, a.authenticated = domain.Session{}, false
		if errors.Is(err, domain.ErrNoSession) {
			return nil
		}
		return err
	}
	a.session = s
	a.authenticated = s.Token != ""
	return nil
}

func (a *AuthContext) Login(ctx context.Context, token string, user domain.User) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	s := domain.Session{Token: token, User: user}
	if a.store != nil {
		if err := a.store.Save(ctx, s); err != nil {
			return err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
	a.authenticated = true
	a.loading = false
	return nil
}

// Logout forgets the session in memory even when clearing the store fails.
func (a *AuthContext) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.session = domain.Session{}
	a.authenticated = false
	a.mu.Unlock()
	if a.store == nil {
		return nil
	}
	return a.store.Clear(ctx)
}

func (a *AuthContext) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Token
}

func (a *AuthContext) User() (domain.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.User, a.authenticated
}

func (a *AuthContext) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.authenticated
}

func (a *AuthContext) IsLoading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

func (a *AuthContext) isAdmin() bool {
	u, ok := a.User()
	return ok && u.Role.IsAdmin()
}

// SignIn exchanges credentials for a token and stores the session.
func (w *Workspace) SignIn(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		w.fail(ctx, "Email and password are required")
		return domain.User{}, ErrInvalidInput
	}
	res, err := w.backend.Login(ctx, email, password)
	if err != nil {
		w.failAPI(ctx, "login", err, "Login failed. Please try again.")
		return domain.User{}, err
	}
	if err := w.auth.Login(ctx, res.Token, res.User); err != nil {
		w.logger.ErrorContext(ctx, "persist session failed", "error", err)
		w.fail(ctx, "Login failed. Please try again.")
		return domain.User{}, err
	}
	w.logger.InfoContext(ctx, "signed in", "user_id", res.User.ID, "role", res.User.Role, "token_present", true)
	w.success(ctx, "Welcome back!")
	return res.User, nil
}

// Register creates a tester account. It does not sign the user in.
func (w *Workspace) Register(ctx context.Context, name, email, password string) error {
	in := domain.Registration{
		Username: strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
		Role:     domain.RoleTester,
	}
	if err := validateInput(in); err != nil {
		w.fail(ctx, inputMessage(err))
		return err
	}
	if err := w.backend.Register(ctx, in); err != nil {
		w.failAPI(ctx, "register", err, "Registration failed. Please try again.")
		return err
	}
	w.success(ctx, "Account created successfully!")
	return nil
}

func (w *Workspace) SignOut(ctx context.Context) error {
	return w.auth.Logout(ctx)
}

// requireUser fails with ErrNotAuthenticated when nobody is signed in.
func (w *Workspace) requireUser() (domain.User, error) {
	u, ok := w.auth.User()
	if !ok {
		return domain.User{}, ErrNotAuthenticated
	}
	return u, nil
}
