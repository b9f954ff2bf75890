package http

import (
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/atvirokodosprendimai/testdesk/internal/application"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
	"github.com/atvirokodosprendimai/testdesk/internal/ui"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if stateFrom(r.Context()).auth.IsAuthenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	message := ""
	if r.URL.Query().Get("registered") != "" {
		message = "Account created successfully! Please sign in."
	}
	renderPage(r.Context(), w, http.StatusOK, ui.LoginPage(message, ""))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.Form.Get("email"))
	password := r.Form.Get("password")

	s := stateFrom(r.Context())
	user, err := s.workspace.SignIn(r.Context(), email, password)
	if err != nil {
		message := "Login failed. Please try again."
		if n, ok := s.notices.Last(); ok {
			message = n.Message
		}
		renderPage(r.Context(), w, http.StatusUnauthorized, ui.LoginPage(message, email))
		return
	}
	if err := h.rotateSession(w, r, domain.Session{Token: s.auth.Token(), User: user}); err != nil {
		h.logger.ErrorContext(r.Context(), "rotate session failed", "error", err)
		renderPage(r.Context(), w, http.StatusInternalServerError, ui.LoginPage("Login failed. Please try again.", email))
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	renderPage(r.Context(), w, http.StatusOK, ui.RegisterPage(""))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s := stateFrom(r.Context())
	err := s.workspace.Register(r.Context(), r.Form.Get("name"), r.Form.Get("email"), r.Form.Get("password"))
	if err != nil {
		message := "Registration failed. Please try again."
		if n, ok := s.notices.Last(); ok {
			message = n.Message
		}
		renderPage(r.Context(), w, http.StatusBadRequest, ui.RegisterPage(message))
		return
	}
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.workspace(r).SignOut(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "clear session failed", "error", err)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleHomeRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	a, _ := h.workspace(r).Dashboard(r.Context())
	renderPage(r.Context(), w, http.StatusOK, ui.DashboardPage(h.nav(r, "Dashboard", "dashboard"), a))
}

func (h *Handler) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, _ := h.workspace(r).Projects(r.Context())
	renderPage(r.Context(), w, http.StatusOK, ui.ProjectsPage(h.nav(r, "Projects", "projects"), projects))
}

type createProjectSignals struct {
	ProjectName        string `json:"projectName"`
	ProjectDescription string `json:"projectDescription"`
	ProjectVersion     string `json:"projectVersion"`
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var sig createProjectSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	ws := h.workspace(r)
	var projects []domain.Project
	refetch := func() { projects, _ = ws.Projects(r.Context()) }

	in := domain.NewProject{Name: sig.ProjectName, Description: sig.ProjectDescription, Version: sig.ProjectVersion}
	if _, err := ws.CreateProject(r.Context(), in, refetch); err != nil {
		h.renderNotices(r, w)
		return
	}
	h.renderNotices(r, w, ui.ProjectsTable(h.viewer(r), projects))
}

// projectView loads the project page. ok is false when the project itself
// could not be loaded.
func (h *Handler) projectView(r *http.Request, projectID int64, activeSuite *int64) (ui.ProjectView, bool) {
	ws := h.workspace(r)
	details := ws.ProjectDetails(r.Context(), projectID)
	nav := h.nav(r, "Project", "projects")
	if details.Project == nil {
		return ui.ProjectView{Nav: nav}, false
	}
	nav.Title = details.Project.Name
	v := ui.ProjectView{
		Nav:         nav,
		Project:     *details.Project,
		Suites:      details.Suites,
		OpenCases:   details.FilterCases(activeSuite),
		PassedCases: details.PassedCases,
		ActiveSuite: activeSuite,
	}
	if nav.CanManage() {
		v.Users = ws.AssigneeOptions(r.Context())
	}
	return v, true
}

func (h *Handler) handleProjectDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	v, found := h.projectView(r, id, nil)
	if !found {
		renderPage(r.Context(), w, http.StatusNotFound, ui.ProjectNotFound(v.Nav))
		return
	}
	renderPage(r.Context(), w, http.StatusOK, ui.ProjectPage(v))
}

type filterSignals struct {
	ActiveSuite string `json:"activeSuite"`
}

func (h *Handler) handleFilterCases(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var sig filterSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	active, err := parseOptionalID(sig.ActiveSuite)
	if err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid suite")
		return
	}
	v := ui.ProjectView{
		Project:     domain.Project{ID: id},
		OpenCases:   h.workspace(r).OpenCases(r.Context(), id, active),
		ActiveSuite: active,
	}
	h.renderNotices(r, w, ui.OpenCasesTable(v))
}

type createSuiteSignals struct {
	SuiteName        string `json:"suiteName"`
	SuiteDescription string `json:"suiteDescription"`
}

func (h *Handler) handleCreateSuite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var sig createSuiteSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	created := false
	in := domain.NewTestSuite{ProjectID: id, Name: sig.SuiteName, Description: sig.SuiteDescription}
	if _, err := h.workspace(r).CreateSuite(r.Context(), in, func() { created = true }); err != nil || !created {
		h.renderNotices(r, w)
		return
	}
	notices := stateFrom(r.Context()).notices.Drain()
	v, _ := h.projectView(r, id, nil)
	renderHTMLFragments(r.Context(), w, http.StatusOK, ui.Notices(notices), ui.SuiteFilter(v), ui.OpenCasesTable(v))
}

type createTestCaseSignals struct {
	CaseTitle          string `json:"caseTitle"`
	CaseDescription    string `json:"caseDescription"`
	CasePriority       string `json:"casePriority"`
	CaseType           string `json:"caseType"`
	CasePreConditions  string `json:"casePreConditions"`
	CasePostConditions string `json:"casePostConditions"`
	CaseSuite          string `json:"caseSuite"`
	CaseAssignee       string `json:"caseAssignee"`
	ActiveSuite        string `json:"activeSuite"`
}

func (h *Handler) handleCreateTestCase(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var sig createTestCaseSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	suiteID, err := parseOptionalID(sig.CaseSuite)
	if err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid suite")
		return
	}
	assignee, err := parseOptionalID(sig.CaseAssignee)
	if err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid assignee")
		return
	}
	active, err := parseOptionalID(sig.ActiveSuite)
	if err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid suite")
		return
	}

	in := application.NewTestCaseDefaults(id, suiteID)
	in.Title = sig.CaseTitle
	in.Description = sig.CaseDescription
	in.PreConditions = sig.CasePreConditions
	in.PostConditions = sig.CasePostConditions
	in.AssignedTo = assignee
	if sig.CasePriority != "" {
		in.Priority = domain.Priority(sig.CasePriority)
	}
	if sig.CaseType != "" {
		in.Type = domain.CaseType(sig.CaseType)
	}

	ws := h.workspace(r)
	var open []domain.TestCase
	refetch := func() { open = ws.OpenCases(r.Context(), id, active) }
	if _, err := ws.CreateTestCase(r.Context(), in, refetch); err != nil {
		h.renderNotices(r, w)
		return
	}
	h.renderNotices(r, w, ui.OpenCasesTable(ui.ProjectView{Project: domain.Project{ID: id}, OpenCases: open, ActiveSuite: active}))
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIDParam(r, "id")
	caseID, ok2 := parseIDParam(r, "caseID")
	if !ok || !ok2 {
		http.NotFound(w, r)
		return
	}
	var sig filterSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	active, err := parseOptionalID(sig.ActiveSuite)
	if err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid suite")
		return
	}
	if err := h.workspace(r).Reopen(r.Context(), caseID); err != nil {
		h.renderNotices(r, w)
		return
	}
	notices := stateFrom(r.Context()).notices.Drain()
	v, _ := h.projectView(r, projectID, active)
	renderHTMLFragments(r.Context(), w, http.StatusOK, ui.Notices(notices), ui.OpenCasesTable(v), ui.PassedCasesTable(v))
}

func (h *Handler) handleTestCase(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	ws := h.workspace(r)
	tc, err := ws.TestCase(r.Context(), id)
	if err != nil {
		if domain.StatusCode(err) == http.StatusNotFound {
			renderPage(r.Context(), w, http.StatusNotFound, ui.TestCasePage(h.nav(r, "Test case", "projects"), nil, nil))
			return
		}
		stateFrom(r.Context()).notices.Notify(r.Context(), domain.Notice{
			Level:   domain.NoticeError,
			Message: domain.MessageOr(err, "Failed to load test case"),
		})
		renderPage(r.Context(), w, http.StatusBadGateway, ui.TestCaseUnavailable(h.nav(r, "Test case", "projects")))
		return
	}
	comments, _ := ws.Comments(r.Context(), id)
	renderPage(r.Context(), w, http.StatusOK, ui.TestCasePage(h.nav(r, tc.Title, "projects"), &tc, comments))
}

type commentSignals struct {
	CommentContent string `json:"commentContent"`
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var sig commentSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	ws := h.workspace(r)
	current, _ := ws.Comments(r.Context(), id)
	updated, _ := ws.AddComment(r.Context(), id, sig.CommentContent, current)
	h.renderNotices(r, w, ui.CommentsList(id, updated))
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	commentID, ok2 := parseIDParam(r, "commentID")
	if !ok || !ok2 {
		http.NotFound(w, r)
		return
	}
	ws := h.workspace(r)
	current, _ := ws.Comments(r.Context(), id)
	updated, _ := ws.DeleteComment(r.Context(), id, commentID, current)
	h.renderNotices(r, w, ui.CommentsList(id, updated))
}

func (h *Handler) runnerView(r *http.Request, state application.RunnerState, title string) ui.RunnerView {
	ws := h.workspace(r)
	v := ui.RunnerView{
		Nav:           h.nav(r, title, "projects"),
		Case:          state.TestCase,
		HasPermission: state.HasPermission,
		Status:        state.Form.Status,
		ActualResult:  state.Form.ActualResult,
		Comments:      state.Form.Comments,
	}
	if state.TestCase != nil {
		v.Blocked = application.BlockedMessage(state.Blocked(ws.CurrentRole()))
	}
	return v
}

func (h *Handler) handleRunner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	state := h.workspace(r).LoadRunner(r.Context(), id)
	status := http.StatusOK
	if state.TestCase == nil {
		status = http.StatusNotFound
	}
	renderPage(r.Context(), w, status, ui.RunnerPage(h.runnerView(r, state, "Test Execution")))
}

type executionSignals struct {
	Status       string `json:"status"`
	ActualResult string `json:"actualResult"`
	Comments     string `json:"comments"`
}

func (h *Handler) handleSubmitExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var sig executionSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}

	ws := h.workspace(r)
	state := ws.LoadRunner(r.Context(), id)
	// load notices were already shown when the page opened
	stateFrom(r.Context()).notices.Drain()
	if state.TestCase == nil {
		h.renderFlash(r.Context(), w, http.StatusOK, "Failed to load test case")
		return
	}

	form := application.ExecutionForm{
		Status:       domain.ExecutionStatus(sig.Status),
		ActualResult: sig.ActualResult,
		Comments:     sig.Comments,
	}
	state, _ = ws.SubmitExecution(r.Context(), state, form)

	notices := stateFrom(r.Context()).notices.Drain()
	v := h.runnerView(r, state, "Test Execution")
	renderHTMLFragments(r.Context(), w, http.StatusOK, ui.Notices(notices), ui.RunnerPanel(v))
}

func (h *Handler) handlePermissions(w http.ResponseWriter, r *http.Request) {
	users, _ := h.workspace(r).PermittedUsers(r.Context())
	renderPage(r.Context(), w, http.StatusOK, ui.PermissionsPage(h.nav(r, "Execution Permissions", "permissions"), users))
}

type grantSignals struct {
	GrantEmail string `json:"grantEmail"`
}

func (h *Handler) handleGrantPermission(w http.ResponseWriter, r *http.Request) {
	var sig grantSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	users, err := h.workspace(r).GrantPermission(r.Context(), sig.GrantEmail)
	if err != nil {
		h.renderNotices(r, w)
		return
	}
	h.renderNotices(r, w, ui.PermittedUsersTable(users))
}

func (h *Handler) handleRevokePermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "userID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	users, err := h.workspace(r).RevokePermission(r.Context(), userID)
	if err != nil {
		h.renderNotices(r, w)
		return
	}
	h.renderNotices(r, w, ui.PermittedUsersTable(users))
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.workspace(r).RecentActivity(r.Context(), 200)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list activity failed", "error", err)
	}
	renderPage(r.Context(), w, http.StatusOK, ui.ActivityPage(h.nav(r, "Activity", "activity"), entries))
}
