package application

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

// Projects lists projects. Failure yields an empty list and a notice.
func (w *Workspace) Projects(ctx context.Context) ([]domain.Project, error) {
	projects, err := w.backend.ListProjects(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch projects failed", "error", err)
		w.fail(ctx, "Failed to load projects")
		return []domain.Project{}, err
	}
	return projects, nil
}

// ProjectDetailsView is the project page. Each list fails on its own: a
// failed fetch leaves that list empty and records the error.
type ProjectDetailsView struct {
	Project     *domain.Project
	Suites      []domain.TestSuite
	Cases       []domain.TestCase
	PassedCases []domain.TestCase

	ProjectErr error
	SuitesErr  error
	CasesErr   error
	PassedErr  error
}

// FilterCases returns the open cases, restricted to one suite when
// activeSuite is set.
func (v ProjectDetailsView) FilterCases(activeSuite *int64) []domain.TestCase {
	return FilterOpenCases(v.Cases, activeSuite)
}

func FilterOpenCases(cases []domain.TestCase, activeSuite *int64) []domain.TestCase {
	out := make([]domain.TestCase, 0, len(cases))
	for _, tc := range cases {
		if tc.Closed() {
			continue
		}
		if activeSuite != nil && !tc.InSuite(*activeSuite) {
			continue
		}
		out = append(out, tc)
	}
	return out
}

// ProjectDetails loads the project, then its suites, cases and passed cases
// in parallel. Siblings are never cancelled by each other's failure.
func (w *Workspace) ProjectDetails(ctx context.Context, projectID int64) ProjectDetailsView {
	var view ProjectDetailsView

	project, err := w.backend.GetProject(ctx, projectID)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch project failed", "project_id", projectID, "error", err)
		w.fail(ctx, "Failed to load project details")
		view.ProjectErr = err
		return view
	}
	view.Project = &project

	// plain Group: no shared context, so one failure cannot cancel the others
	var g errgroup.Group
	g.Go(func() error {
		suites, err := w.backend.ListSuites(ctx, projectID)
		if err != nil {
			w.logger.ErrorContext(ctx, "fetch test suites failed", "project_id", projectID, "error", err)
			view.Suites, view.SuitesErr = []domain.TestSuite{}, err
			return nil
		}
		view.Suites = suites
		return nil
	})
	g.Go(func() error {
		cases, err := w.backend.ListTestCases(ctx, &projectID)
		if err != nil {
			w.logger.ErrorContext(ctx, "fetch test cases failed", "project_id", projectID, "error", err)
			view.Cases, view.CasesErr = []domain.TestCase{}, err
			return nil
		}
		view.Cases = cases
		return nil
	})
	g.Go(func() error {
		passed, err := w.backend.ListPassedTestCases(ctx, &projectID)
		if err != nil {
			w.logger.ErrorContext(ctx, "fetch passed test cases failed", "project_id", projectID, "error", err)
			view.PassedCases, view.PassedErr = []domain.TestCase{}, err
			return nil
		}
		view.PassedCases = passed
		return nil
	})
	_ = g.Wait()
	return view
}

// OpenCases refetches a project's cases and applies the suite filter.
// Errors are logged only.
func (w *Workspace) OpenCases(ctx context.Context, projectID int64, activeSuite *int64) []domain.TestCase {
	cases, err := w.backend.ListTestCases(ctx, &projectID)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch test cases failed", "project_id", projectID, "error", err)
		return []domain.TestCase{}
	}
	return FilterOpenCases(cases, activeSuite)
}

// Cases lists test cases across projects or for one project. Passed selects
// the closed cases instead of the open ones.
func (w *Workspace) Cases(ctx context.Context, projectID, activeSuite *int64, passed bool) ([]domain.TestCase, error) {
	list := w.backend.ListTestCases
	if passed {
		list = w.backend.ListPassedTestCases
	}
	cases, err := list(ctx, projectID)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch test cases failed", "passed", passed, "error", err)
		w.fail(ctx, "Failed to load test cases")
		return []domain.TestCase{}, err
	}
	if passed {
		return cases, nil
	}
	return FilterOpenCases(cases, activeSuite), nil
}

// Reopen asks the API to reopen a closed case. Callers refetch on success.
func (w *Workspace) Reopen(ctx context.Context, caseID int64) error {
	if err := w.backend.ReopenTestCase(ctx, caseID); err != nil {
		w.failAPI(ctx, "reopen test case", err, "Failed to reopen test case")
		return err
	}
	w.success(ctx, "Test case reopened successfully!")
	w.record(ctx, "case.reopen", "test_case", caseID, "")
	return nil
}

// TestCase loads one case for the detail page. Errors are logged only.
func (w *Workspace) TestCase(ctx context.Context, id int64) (domain.TestCase, error) {
	tc, err := w.backend.GetTestCase(ctx, id)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch test case failed", "test_case_id", id, "error", err)
		return domain.TestCase{}, err
	}
	return tc, nil
}

// Dashboard loads analytics. Errors are logged only; the page shows an
// empty state.
func (w *Workspace) Dashboard(ctx context.Context) (*domain.Analytics, error) {
	a, err := w.backend.Analytics(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch analytics failed", "error", err)
		return nil, err
	}
	return &a, nil
}
