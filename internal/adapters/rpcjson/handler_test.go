package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/testdesk/internal/application"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

// stubBackend answers the calls a test sets up. Anything else hits the nil
// embedded interface.
type stubBackend struct {
	domain.Backend

	mu    sync.Mutex
	calls map[string]int
	token string

	login         func(email, password string) (domain.LoginResult, error)
	listProjects  func() ([]domain.Project, error)
	getTestCase   func(int64) (domain.TestCase, error)
	permission    func() (domain.PermissionCheck, error)
	deleteComment func(int64, int64) error
	listUsers     func() ([]domain.User, error)
	analytics     func() (domain.Analytics, error)
}

func (s *stubBackend) hit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[name]++
}

func (s *stubBackend) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubBackend) Login(_ context.Context, email, password string) (domain.LoginResult, error) {
	s.hit("Login")
	return s.login(email, password)
}

func (s *stubBackend) ListProjects(context.Context) ([]domain.Project, error) {
	s.hit("ListProjects")
	return s.listProjects()
}

func (s *stubBackend) CreateProject(_ context.Context, in domain.NewProject) (domain.Project, error) {
	s.hit("CreateProject")
	return domain.Project{ID: 1, Name: in.Name}, nil
}

func (s *stubBackend) GetTestCase(_ context.Context, id int64) (domain.TestCase, error) {
	s.hit("GetTestCase")
	return s.getTestCase(id)
}

func (s *stubBackend) CheckPermission(context.Context) (domain.PermissionCheck, error) {
	s.hit("CheckPermission")
	return s.permission()
}

func (s *stubBackend) SubmitExecution(context.Context, domain.NewExecution) error {
	s.hit("SubmitExecution")
	return nil
}

func (s *stubBackend) DeleteComment(_ context.Context, caseID, commentID int64) error {
	s.hit("DeleteComment")
	return s.deleteComment(caseID, commentID)
}

func (s *stubBackend) ListUsers(context.Context) ([]domain.User, error) {
	s.hit("ListUsers")
	return s.listUsers()
}

func (s *stubBackend) Analytics(context.Context) (domain.Analytics, error) {
	s.hit("Analytics")
	return s.analytics()
}

func newTestHandler(backend *stubBackend) *Handler {
	return NewHandler(Deps{
		Backend: func(auth *application.AuthContext) domain.Backend {
			backend.mu.Lock()
			backend.token = auth.Token()
			backend.mu.Unlock()
			return backend
		},
	})
}

func withSession(role domain.Role, params map[string]any) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	params["token"] = "tok"
	params["user"] = domain.User{ID: 7, Username: "tess", Role: role}
	return params
}

func rpcCode(t *testing.T, err error) int {
	t.Helper()
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr), "want *Error, got %v", err)
	return rpcErr.Code
}

func TestUnknownMethod(t *testing.T) {
	h := newTestHandler(&stubBackend{})
	_, err := h.Call(context.Background(), "graph.trace", map[string]any{})
	assert.Equal(t, codeNotFound, rpcCode(t, err))
}

func TestMemberMethodsNeedAToken(t *testing.T) {
	backend := &stubBackend{}
	h := newTestHandler(backend)

	_, err := h.Call(context.Background(), "projects.list", map[string]any{})
	assert.Equal(t, codeUnauthorized, rpcCode(t, err))
	assert.Zero(t, backend.count("ListProjects"))
}

func TestAdminMethodsAreGated(t *testing.T) {
	h := newTestHandler(&stubBackend{})

	for _, method := range []string{"permissions.list", "cases.reopen", "activity.list"} {
		_, err := h.Call(context.Background(), method, withSession(domain.RoleTestLead, nil))
		assert.Equal(t, codeForbidden, rpcCode(t, err), method)
	}
}

func TestLoginReturnsSession(t *testing.T) {
	backend := &stubBackend{
		login: func(email, password string) (domain.LoginResult, error) {
			return domain.LoginResult{Token: "jwt", User: domain.User{ID: 1, Username: "ana", Role: domain.RoleAdmin}}, nil
		},
	}
	h := newTestHandler(backend)

	res, err := h.Call(context.Background(), "auth.login", map[string]any{"email": "ana@example.com", "password": "secret123"})
	require.NoError(t, err)
	s, ok := res.Data.(Session)
	require.True(t, ok)
	assert.Equal(t, "jwt", s.Token)
	assert.Equal(t, domain.RoleAdmin, s.User.Role)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, "Welcome back!", res.Notices[0].Message)
}

func TestCallsCarryTheCallerToken(t *testing.T) {
	backend := &stubBackend{listProjects: func() ([]domain.Project, error) {
		return []domain.Project{{ID: 1, Name: "Payments"}}, nil
	}}
	h := newTestHandler(backend)

	res, err := h.Call(context.Background(), "projects.list", withSession(domain.RoleTester, nil))
	require.NoError(t, err)
	assert.Equal(t, "tok", backend.token)
	assert.Len(t, res.Data, 1)
}

func TestCreateProjectValidation(t *testing.T) {
	backend := &stubBackend{}
	h := newTestHandler(backend)

	_, err := h.Call(context.Background(), "projects.create", withSession(domain.RoleAdmin, map[string]any{"name": " "}))
	assert.Equal(t, codeAppError, rpcCode(t, err))
	assert.Contains(t, err.Error(), "Name is required")
	assert.Zero(t, backend.count("CreateProject"))

	res, err := h.Call(context.Background(), "projects.create", withSession(domain.RoleAdmin, map[string]any{"name": "Payments"}))
	require.NoError(t, err)
	assert.Equal(t, "Payments", res.Data.(domain.Project).Name)
}

func TestRunnerSubmitWithoutPermission(t *testing.T) {
	backend := &stubBackend{
		getTestCase: func(id int64) (domain.TestCase, error) {
			return domain.TestCase{ID: id, Status: domain.CaseOpen}, nil
		},
		permission: func() (domain.PermissionCheck, error) { return domain.PermissionCheck{}, nil },
	}
	h := newTestHandler(backend)

	_, err := h.Call(context.Background(), "runner.submit", withSession(domain.RoleTester, map[string]any{"id": 4, "status": "Pass"}))
	assert.Equal(t, codeAppError, rpcCode(t, err))
	assert.Contains(t, err.Error(), "You do not have permission to execute tests.")
	assert.Zero(t, backend.count("SubmitExecution"))
}

func TestRunnerSubmitPass(t *testing.T) {
	backend := &stubBackend{
		getTestCase: func(id int64) (domain.TestCase, error) {
			return domain.TestCase{ID: id, Status: domain.CaseOpen}, nil
		},
		permission: func() (domain.PermissionCheck, error) { return domain.PermissionCheck{HasPermission: true}, nil },
	}
	h := newTestHandler(backend)

	res, err := h.Call(context.Background(), "runner.submit", withSession(domain.RoleTester, map[string]any{"id": 4, "status": "Pass"}))
	require.NoError(t, err)
	status := res.Data.(RunnerStatus)
	assert.True(t, status.HasPermission)
	assert.Equal(t, 1, backend.count("SubmitExecution"))
	require.Len(t, res.Notices, 1)
	assert.Equal(t, "Test passed! Test case is now closed.", res.Notices[0].Message)
}

func TestDeleteForeignCommentMapsStatus(t *testing.T) {
	backend := &stubBackend{deleteComment: func(int64, int64) error {
		return &domain.APIError{Status: 403, Message: "You can only delete your own comments"}
	}}
	h := newTestHandler(backend)

	_, err := h.Call(context.Background(), "comments.delete", withSession(domain.RoleTester, map[string]any{"test_case_id": 5, "comment_id": 2}))
	assert.Equal(t, 40300, rpcCode(t, err))
	assert.Contains(t, err.Error(), "You can only delete your own comments")
	assert.Equal(t, 1, backend.count("DeleteComment"))
}

func TestMissingParamsAreRejected(t *testing.T) {
	h := newTestHandler(&stubBackend{})
	resp := h.handle(context.Background(), request{JSONRPC: "2.0", Method: "projects.list", ID: 3})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = h.handle(context.Background(), request{JSONRPC: "1.0", Method: "projects.list", Params: json.RawMessage(`{}`), ID: 3})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestUsersListFailureIsEmpty(t *testing.T) {
	backend := &stubBackend{listUsers: func() ([]domain.User, error) {
		return nil, &domain.APIError{Status: 500}
	}}
	h := newTestHandler(backend)

	res, err := h.Call(context.Background(), "users.list", withSession(domain.RoleTestLead, nil))
	require.NoError(t, err)
	assert.Equal(t, []domain.User{}, res.Data)
	assert.Empty(t, res.Notices)
}

type memoryActivity struct {
	entries []domain.Activity
	limit   int
}

func (m *memoryActivity) Record(_ context.Context, a domain.Activity) error {
	m.entries = append(m.entries, a)
	return nil
}

func (m *memoryActivity) Recent(_ context.Context, limit int) ([]domain.Activity, error) {
	m.limit = limit
	return m.entries, nil
}

func TestMutationsLandInActivityList(t *testing.T) {
	backend := &stubBackend{}
	log := &memoryActivity{}
	h := NewHandler(Deps{
		Backend:  func(*application.AuthContext) domain.Backend { return backend },
		Activity: log,
	})

	_, err := h.Call(context.Background(), "projects.create", withSession(domain.RoleAdmin, map[string]any{"name": "Payments"}))
	require.NoError(t, err)

	res, err := h.Call(context.Background(), "activity.list", withSession(domain.RoleAdmin, map[string]any{"limit": 5}))
	require.NoError(t, err)
	entries, ok := res.Data.([]domain.Activity)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "project.create", entries[0].Action)
	assert.Equal(t, "tess", entries[0].Username)
	assert.Equal(t, 5, log.limit)
}

func TestQuietLoadFailuresUseReadableMessages(t *testing.T) {
	backend := &stubBackend{
		analytics: func() (domain.Analytics, error) {
			return domain.Analytics{}, &domain.APIError{Status: 500, Method: "GET", Path: "/analytics", Body: "boom"}
		},
		getTestCase: func(id int64) (domain.TestCase, error) {
			if id == 404 {
				return domain.TestCase{}, &domain.APIError{Status: 404, Message: "Test case not found"}
			}
			return domain.TestCase{}, errors.New("dial tcp 127.0.0.1:5000: connection refused")
		},
	}
	h := newTestHandler(backend)

	_, err := h.Call(context.Background(), "dashboard", withSession(domain.RoleTester, nil))
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 50000, rpcErr.Code)
	assert.Equal(t, "Failed to load analytics data", rpcErr.Message)

	_, err = h.Call(context.Background(), "cases.show", withSession(domain.RoleTester, map[string]any{"id": 7}))
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, codeAppError, rpcErr.Code)
	assert.Equal(t, "Failed to load test case", rpcErr.Message)

	_, err = h.Call(context.Background(), "cases.show", withSession(domain.RoleTester, map[string]any{"id": 404}))
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 40400, rpcErr.Code)
	assert.Equal(t, "Test case not found", rpcErr.Message)
}
