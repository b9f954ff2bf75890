package application

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

// CreateProject posts the form once and, on success, calls onCreated so the
// caller can refetch its list.
func (w *Workspace) CreateProject(ctx context.Context, in domain.NewProject, onCreated func()) (domain.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		w.fail(ctx, inputMessage(err))
		return domain.Project{}, err
	}
	p, err := w.backend.CreateProject(ctx, in)
	if err != nil {
		w.failAPI(ctx, "create project", err, "Failed to create project")
		return domain.Project{}, err
	}
	w.success(ctx, "Project created successfully!")
	w.record(ctx, "project.create", "project", p.ID, p.Name)
	if onCreated != nil {
		onCreated()
	}
	return p, nil
}

func (w *Workspace) CreateSuite(ctx context.Context, in domain.NewTestSuite, onCreated func()) (domain.TestSuite, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		w.fail(ctx, inputMessage(err))
		return domain.TestSuite{}, err
	}
	s, err := w.backend.CreateSuite(ctx, in)
	if err != nil {
		w.failAPI(ctx, "create test suite", err, "Failed to create test suite")
		return domain.TestSuite{}, err
	}
	w.success(ctx, "Test suite created!")
	w.record(ctx, "suite.create", "test_suite", s.ID, s.Name)
	if onCreated != nil {
		onCreated()
	}
	return s, nil
}

// NewTestCaseDefaults is the blank create form: Medium priority, Functional.
func NewTestCaseDefaults(projectID int64, suiteID *int64) domain.NewTestCase {
	return domain.NewTestCase{
		ProjectID: projectID,
		SuiteID:   suiteID,
		Priority:  domain.PriorityMedium,
		Type:      domain.CaseTypeFunctional,
	}
}

// CreateTestCase posts the case without steps; steps are added later.
func (w *Workspace) CreateTestCase(ctx context.Context, in domain.NewTestCase, onCreated func()) (domain.TestCase, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if in.Type == "" {
		in.Type = domain.CaseTypeFunctional
	}
	in.Steps = []domain.TestStep{}
	if err := validateInput(in); err != nil {
		w.fail(ctx, inputMessage(err))
		return domain.TestCase{}, err
	}
	tc, err := w.backend.CreateTestCase(ctx, in)
	if err != nil {
		w.failAPI(ctx, "create test case", err, "Failed to create test case")
		return domain.TestCase{}, err
	}
	w.success(ctx, "Test case created!")
	w.record(ctx, "case.create", "test_case", tc.ID, in.Title)
	if onCreated != nil {
		onCreated()
	}
	return tc, nil
}

// AssigneeOptions loads users for the assignee picker. Failure leaves the
// picker empty.
func (w *Workspace) AssigneeOptions(ctx context.Context) []domain.User {
	users, err := w.backend.ListUsers(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch users failed", "error", err)
		return nil
	}
	return users
}
