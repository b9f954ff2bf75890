package restapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

var _ domain.Backend = (*Client)(nil)

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func projectQuery(projectID *int64) url.Values {
	if projectID == nil {
		return nil
	}
	return url.Values{"projectId": []string{itoa(*projectID)}}
}

func (c *Client) Login(ctx context.Context, email, password string) (domain.LoginResult, error) {
	var out domain.LoginResult
	err := c.request(ctx, http.MethodPost, "/auth/login", nil, map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, value domain.Registration) error {
	return c.request(ctx, http.MethodPost, "/auth/register", nil, value, nil)
}

func (c *Client) Analytics(ctx context.Context) (domain.Analytics, error) {
	var out domain.Analytics
	err := c.request(ctx, http.MethodGet, "/analytics", nil, nil, &out)
	return out, err
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0)
	err := c.request(ctx, http.MethodGet, "/users", nil, nil, &out)
	return out, err
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	out := make([]domain.Project, 0)
	err := c.request(ctx, http.MethodGet, "/projects", nil, nil, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	var out domain.Project
	err := c.request(ctx, http.MethodGet, "/projects/"+itoa(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, value domain.NewProject) (domain.Project, error) {
	var out domain.Project
	err := c.request(ctx, http.MethodPost, "/projects", nil, value, &out)
	return out, err
}

func (c *Client) ListSuites(ctx context.Context, projectID int64) ([]domain.TestSuite, error) {
	out := make([]domain.TestSuite, 0)
	err := c.request(ctx, http.MethodGet, "/test-suites/project/"+itoa(projectID), nil, nil, &out)
	return out, err
}

func (c *Client) CreateSuite(ctx context.Context, value domain.NewTestSuite) (domain.TestSuite, error) {
	var out domain.TestSuite
	err := c.request(ctx, http.MethodPost, "/test-suites", nil, value, &out)
	return out, err
}

func (c *Client) ListTestCases(ctx context.Context, projectID *int64) ([]domain.TestCase, error) {
	out := make([]domain.TestCase, 0)
	err := c.request(ctx, http.MethodGet, "/test-cases", projectQuery(projectID), nil, &out)
	return out, err
}

func (c *Client) ListPassedTestCases(ctx context.Context, projectID *int64) ([]domain.TestCase, error) {
	out := make([]domain.TestCase, 0)
	err := c.request(ctx, http.MethodGet, "/test-cases/passed", projectQuery(projectID), nil, &out)
	return out, err
}

func (c *Client) GetTestCase(ctx context.Context, id int64) (domain.TestCase, error) {
	var out domain.TestCase
	err := c.request(ctx, http.MethodGet, "/test-cases/"+itoa(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateTestCase(ctx context.Context, value domain.NewTestCase) (domain.TestCase, error) {
	if value.Steps == nil {
		value.Steps = []domain.TestStep{}
	}
	var out domain.TestCase
	err := c.request(ctx, http.MethodPost, "/test-cases", nil, value, &out)
	return out, err
}

func (c *Client) ReopenTestCase(ctx context.Context, id int64) error {
	return c.request(ctx, http.MethodPatch, "/test-case-status/"+itoa(id)+"/reopen", nil, nil, nil)
}

func (c *Client) SubmitExecution(ctx context.Context, value domain.NewExecution) error {
	return c.request(ctx, http.MethodPost, "/test-executions", nil, value, nil)
}

func (c *Client) ListComments(ctx context.Context, testCaseID int64) ([]domain.Comment, error) {
	out := make([]domain.Comment, 0)
	err := c.request(ctx, http.MethodGet, "/test-cases/"+itoa(testCaseID)+"/comments", nil, nil, &out)
	return out, err
}

func (c *Client) AddComment(ctx context.Context, testCaseID int64, content string) (domain.Comment, error) {
	var out domain.Comment
	err := c.request(ctx, http.MethodPost, "/test-cases/"+itoa(testCaseID)+"/comments", nil, map[string]any{"content": content}, &out)
	return out, err
}

func (c *Client) DeleteComment(ctx context.Context, testCaseID, commentID int64) error {
	return c.request(ctx, http.MethodDelete, "/test-cases/"+itoa(testCaseID)+"/comments/"+itoa(commentID), nil, nil, nil)
}

func (c *Client) ListPermittedUsers(ctx context.Context) ([]domain.PermittedUser, error) {
	out := make([]domain.PermittedUser, 0)
	err := c.request(ctx, http.MethodGet, "/execution-permissions", nil, nil, &out)
	return out, err
}

func (c *Client) GrantPermission(ctx context.Context, email string) error {
	return c.request(ctx, http.MethodPost, "/execution-permissions/grant", nil, map[string]any{"email": email}, nil)
}

func (c *Client) RevokePermission(ctx context.Context, userID int64) error {
	return c.request(ctx, http.MethodDelete, "/execution-permissions/revoke/"+itoa(userID), nil, nil, nil)
}

func (c *Client) CheckPermission(ctx context.Context) (domain.PermissionCheck, error) {
	var out domain.PermissionCheck
	err := c.request(ctx, http.MethodGet, "/execution-permissions/check", nil, nil, &out)
	return out, err
}
