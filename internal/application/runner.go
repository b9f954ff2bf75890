package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

const (
	msgNoPermission = "You do not have permission to execute tests. Please contact an admin."
	msgClosedOnLoad = "This test case is closed (passed). Only admins can reopen it."
	msgClosedSubmit = "This test case is closed. Only admins can reopen and re-test it."
)

// RunnerState is what the execute page knows about one test case.
type RunnerState struct {
	TestCase        *domain.TestCase
	HasPermission   bool
	PermissionKnown bool
	LoadErr         error
	Form            ExecutionForm
}

// ExecutionForm holds the record-result inputs.
type ExecutionForm struct {
	Status       domain.ExecutionStatus
	ActualResult string
	Comments     string
}

func blankExecutionForm() ExecutionForm {
	return ExecutionForm{Status: domain.ExecutionPass}
}

// Blocked reports the client-side reason submission is refused for the
// current user, if any. The API re-checks both.
func (s RunnerState) Blocked(role domain.Role) error {
	if !s.HasPermission {
		return ErrNoPermission
	}
	if s.TestCase != nil && s.TestCase.Closed() && !role.IsAdmin() {
		return ErrCaseClosed
	}
	return nil
}

// BlockedMessage is the notice shown for a Blocked reason.
func BlockedMessage(err error) string {
	switch err {
	case ErrNoPermission:
		return msgNoPermission
	case ErrCaseClosed:
		return msgClosedSubmit
	case nil:
		return ""
	default:
		return err.Error()
	}
}

// LoadRunner fetches the test case and checks execution permission
// concurrently. A failed permission check means no permission.
func (w *Workspace) LoadRunner(ctx context.Context, caseID int64) RunnerState {
	state := RunnerState{Form: blankExecutionForm()}
	var (
		tc      domain.TestCase
		loadErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		tc, loadErr = w.backend.GetTestCase(ctx, caseID)
		return nil
	})
	if _, err := w.requireUser(); err == nil {
		g.Go(func() error {
			check, err := w.backend.CheckPermission(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "permission check failed", "error", err)
				state.HasPermission = false
			} else {
				state.HasPermission = check.HasPermission
			}
			state.PermissionKnown = true
			return nil
		})
	}
	_ = g.Wait()

	if loadErr != nil {
		w.logger.ErrorContext(ctx, "fetch test case failed", "test_case_id", caseID, "error", loadErr)
		w.fail(ctx, "Failed to load test case")
		state.LoadErr = loadErr
		return state
	}
	state.TestCase = &tc
	if tc.Closed() && !w.CurrentRole().IsAdmin() {
		w.fail(ctx, msgClosedOnLoad)
	}
	return state
}

// SubmitExecution records one result. Refused submissions never reach the
// network. On success the form is reset and the case is refetched so a Pass
// shows the server's status change.
func (w *Workspace) SubmitExecution(ctx context.Context, state RunnerState, form ExecutionForm) (RunnerState, error) {
	state.Form = form
	if err := state.Blocked(w.CurrentRole()); err != nil {
		w.fail(ctx, BlockedMessage(err))
		return state, err
	}
	if state.TestCase == nil {
		return state, fmt.Errorf("%w: no test case loaded", ErrInvalidInput)
	}

	in := domain.NewExecution{
		TestCaseID:   state.TestCase.ID,
		Status:       form.Status,
		ActualResult: form.ActualResult,
		Comments:     form.Comments,
	}
	if err := validateInput(in); err != nil {
		w.fail(ctx, inputMessage(err))
		return state, err
	}

	if err := w.backend.SubmitExecution(ctx, in); err != nil {
		w.logger.ErrorContext(ctx, "submit execution failed", "test_case_id", in.TestCaseID, "closed", domain.IsClosedCase(err), "error", err)
		if domain.IsClosedCase(err) {
			w.fail(ctx, domain.MessageOr(err, msgClosedSubmit))
		} else {
			w.fail(ctx, domain.MessageOr(err, "Failed to submit execution"))
		}
		return state, err
	}

	if in.Status == domain.ExecutionPass {
		w.success(ctx, "Test passed! Test case is now closed.")
	} else {
		w.success(ctx, "Test execution recorded!")
	}
	w.record(ctx, "execution.submit", "test_case", in.TestCaseID, string(in.Status))
	state.Form = blankExecutionForm()

	tc, err := w.backend.GetTestCase(ctx, in.TestCaseID)
	if err != nil {
		w.logger.ErrorContext(ctx, "refetch test case failed", "test_case_id", in.TestCaseID, "error", err)
		return state, nil
	}
	state.TestCase = &tc
	return state, nil
}
