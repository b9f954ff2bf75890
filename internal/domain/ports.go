package domain

import (
	"context"
	"errors"
)

// Backend is the REST API of the test management system. Every business rule
// behind it is opaque to this module.
type Backend interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Register(ctx context.Context, value Registration) error

	Analytics(ctx context.Context) (Analytics, error)
	ListUsers(ctx context.Context) ([]User, error)

	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	CreateProject(ctx context.Context, value NewProject) (Project, error)

	ListSuites(ctx context.Context, projectID int64) ([]TestSuite, error)
	CreateSuite(ctx context.Context, value NewTestSuite) (TestSuite, error)

	ListTestCases(ctx context.Context, projectID *int64) ([]TestCase, error)
	ListPassedTestCases(ctx context.Context, projectID *int64) ([]TestCase, error)
	GetTestCase(ctx context.Context, id int64) (TestCase, error)
	CreateTestCase(ctx context.Context, value NewTestCase) (TestCase, error)
	ReopenTestCase(ctx context.Context, id int64) error

	SubmitExecution(ctx context.Context, value NewExecution) error

	ListComments(ctx context.Context, testCaseID int64) ([]Comment, error)
	AddComment(ctx context.Context, testCaseID int64, content string) (Comment, error)
	DeleteComment(ctx context.Context, testCaseID, commentID int64) error

	ListPermittedUsers(ctx context.Context) ([]PermittedUser, error)
	GrantPermission(ctx context.Context, email string) error
	RevokePermission(ctx context.Context, userID int64) error
	CheckPermission(ctx context.Context) (PermissionCheck, error)
}

var ErrNoSession = errors.New("no session")

// SessionStore persists the authenticated session between runs.
type SessionStore interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, value Session) error
	Clear(ctx context.Context) error
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Notifier shows short-lived user notices.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// ActivityLog stores the local activity trail.
type ActivityLog interface {
	Record(ctx context.Context, value Activity) error
	Recent(ctx context.Context, limit int) ([]Activity, error)
}
