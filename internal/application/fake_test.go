package application

import (
	"context"
	"sync"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

// fakeBackend records calls and answers from per-method hooks. A nil hook
// returns zero values.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	createProject   func(domain.NewProject) (domain.Project, error)
	createSuite     func(domain.NewTestSuite) (domain.TestSuite, error)
	createTestCase  func(domain.NewTestCase) (domain.TestCase, error)
	getProject      func(int64) (domain.Project, error)
	listProjects    func() ([]domain.Project, error)
	listSuites      func(int64) ([]domain.TestSuite, error)
	listTestCases   func(*int64) ([]domain.TestCase, error)
	listPassed      func(*int64) ([]domain.TestCase, error)
	getTestCase     func(int64) (domain.TestCase, error)
	reopen          func(int64) error
	submit          func(domain.NewExecution) error
	checkPermission func() (domain.PermissionCheck, error)
	listComments    func(int64) ([]domain.Comment, error)
	addComment      func(int64, string) (domain.Comment, error)
	deleteComment   func(int64, int64) error
	listPermitted   func() ([]domain.PermittedUser, error)
	grant           func(string) error
	revoke          func(int64) error
	login           func(string, string) (domain.LoginResult, error)
	register        func(domain.Registration) error
	listUsers       func() ([]domain.User, error)
	analytics       func() (domain.Analytics, error)

	lastProject   domain.NewProject
	lastSuite     domain.NewTestSuite
	lastCase      domain.NewTestCase
	lastExecution domain.NewExecution
	lastGrant     string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: map[string]int{}}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (domain.LoginResult, error) {
	f.hit("Login")
	if f.login == nil {
		return domain.LoginResult{}, nil
	}
	return f.login(email, password)
}

func (f *fakeBackend) Register(_ context.Context, in domain.Registration) error {
	f.hit("Register")
	if f.register == nil {
		return nil
	}
	return f.register(in)
}

func (f *fakeBackend) Analytics(context.Context) (domain.Analytics, error) {
	f.hit("Analytics")
	if f.analytics == nil {
		return domain.Analytics{}, nil
	}
	return f.analytics()
}

func (f *fakeBackend) ListUsers(context.Context) ([]domain.User, error) {
	f.hit("ListUsers")
	if f.listUsers == nil {
		return nil, nil
	}
	return f.listUsers()
}

func (f *fakeBackend) ListProjects(context.Context) ([]domain.Project, error) {
	f.hit("ListProjects")
	if f.listProjects == nil {
		return nil, nil
	}
	return f.listProjects()
}

func (f *fakeBackend) GetProject(_ context.Context, id int64) (domain.Project, error) {
	f.hit("GetProject")
	if f.getProject == nil {
		return domain.Project{ID: id}, nil
	}
	return f.getProject(id)
}

func (f *fakeBackend) CreateProject(_ context.Context, in domain.NewProject) (domain.Project, error) {
	f.hit("CreateProject")
	f.mu.Lock()
	f.lastProject = in
	f.mu.Unlock()
	if f.createProject == nil {
		return domain.Project{ID: 1, Name: in.Name}, nil
	}
	return f.createProject(in)
}

func (f *fakeBackend) ListSuites(_ context.Context, projectID int64) ([]domain.TestSuite, error) {
	f.hit("ListSuites")
	if f.listSuites == nil {
		return nil, nil
	}
	return f.listSuites(projectID)
}

func (f *fakeBackend) CreateSuite(_ context.Context, in domain.NewTestSuite) (domain.TestSuite, error) {
	f.hit("CreateSuite")
	f.mu.Lock()
	f.lastSuite = in
	f.mu.Unlock()
	if f.createSuite == nil {
		return domain.TestSuite{ID: 1, ProjectID: in.ProjectID, Name: in.Name}, nil
	}
	return f.createSuite(in)
}

func (f *fakeBackend) ListTestCases(_ context.Context, projectID *int64) ([]domain.TestCase, error) {
	f.hit("ListTestCases")
	if f.listTestCases == nil {
		return nil, nil
	}
	return f.listTestCases(projectID)
}

func (f *fakeBackend) ListPassedTestCases(_ context.Context, projectID *int64) ([]domain.TestCase, error) {
	f.hit("ListPassedTestCases")
	if f.listPassed == nil {
		return nil, nil
	}
	return f.listPassed(projectID)
}

func (f *fakeBackend) GetTestCase(_ context.Context, id int64) (domain.TestCase, error) {
	f.hit("GetTestCase")
	if f.getTestCase == nil {
		return domain.TestCase{ID: id, Status: domain.CaseOpen}, nil
	}
	return f.getTestCase(id)
}

func (f *fakeBackend) CreateTestCase(_ context.Context, in domain.NewTestCase) (domain.TestCase, error) {
	f.hit("CreateTestCase")
	f.mu.Lock()
	f.lastCase = in
	f.mu.Unlock()
	if f.createTestCase == nil {
		return domain.TestCase{ID: 1, ProjectID: in.ProjectID, Title: in.Title}, nil
	}
	return f.createTestCase(in)
}

func (f *fakeBackend) ReopenTestCase(_ context.Context, id int64) error {
	f.hit("ReopenTestCase")
	if f.reopen == nil {
		return nil
	}
	return f.reopen(id)
}

func (f *fakeBackend) SubmitExecution(_ context.Context, in domain.NewExecution) error {
	f.hit("SubmitExecution")
	f.mu.Lock()
	f.lastExecution = in
	f.mu.Unlock()
	if f.submit == nil {
		return nil
	}
	return f.submit(in)
}

func (f *fakeBackend) ListComments(_ context.Context, caseID int64) ([]domain.Comment, error) {
	f.hit("ListComments")
	if f.listComments == nil {
		return nil, nil
	}
	return f.listComments(caseID)
}

func (f *fakeBackend) AddComment(_ context.Context, caseID int64, content string) (domain.Comment, error) {
	f.hit("AddComment")
	if f.addComment == nil {
		return domain.Comment{ID: 99, TestCaseID: caseID, Content: content}, nil
	}
	return f.addComment(caseID, content)
}

func (f *fakeBackend) DeleteComment(_ context.Context, caseID, commentID int64) error {
	f.hit("DeleteComment")
	if f.deleteComment == nil {
		return nil
	}
	return f.deleteComment(caseID, commentID)
}

func (f *fakeBackend) ListPermittedUsers(context.Context) ([]domain.PermittedUser, error) {
	f.hit("ListPermittedUsers")
	if f.listPermitted == nil {
		return nil, nil
	}
	return f.listPermitted()
}

func (f *fakeBackend) GrantPermission(_ context.Context, email string) error {
	f.hit("GrantPermission")
	f.mu.Lock()
	f.lastGrant = email
	f.mu.Unlock()
	if f.grant == nil {
		return nil
	}
	return f.grant(email)
}

func (f *fakeBackend) RevokePermission(_ context.Context, userID int64) error {
	f.hit("RevokePermission")
	if f.revoke == nil {
		return nil
	}
	return f.revoke(userID)
}

func (f *fakeBackend) CheckPermission(context.Context) (domain.PermissionCheck, error) {
	f.hit("CheckPermission")
	if f.checkPermission == nil {
		return domain.PermissionCheck{}, nil
	}
	return f.checkPermission()
}

var _ domain.Backend = (*fakeBackend)(nil)

// memoryStore is an in-memory SessionStore.
type memoryStore struct {
	mu      sync.Mutex
	session *domain.Session
	saveErr error
}

func (m *memoryStore) Load(context.Context) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return domain.Session{}, domain.ErrNoSession
	}
	return *m.session, nil
}

func (m *memoryStore) Save(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.session = &s
	return nil
}

func (m *memoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// newTestWorkspace signs in a user of the given role (empty for anonymous).
func newTestWorkspace(t interface {
	Helper()
	Fatalf(string, ...any)
}, backend domain.Backend, role domain.Role) (*Workspace, *NoticeLog) {
	t.Helper()
	auth := NewAuthContext(nil)
	if role != "" {
		if err := auth.Login(context.Background(), "tok-"+string(role), domain.User{ID: 7, Username: "u", Role: role}); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	notices := &NoticeLog{}
	return NewWorkspace(backend, auth, notices, nil), notices
}

func int64p(v int64) *int64 { return &v }
