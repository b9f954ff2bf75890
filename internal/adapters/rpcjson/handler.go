package rpcjson

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/testdesk/internal/application"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeNotFound       = -32601
	codeInvalidParams  = -32602
	codeAppError       = 40000
	codeUnauthorized   = 40100
	codeForbidden      = 40300
	codeInternal       = 50000
)

// Deps wires the handler to the REST API and the local activity log.
type Deps struct {
	Backend  func(auth *application.AuthContext) domain.Backend
	Activity domain.ActivityLog
	Logger   *slog.Logger
}

// Handler runs JSON-RPC calls against the application layer. Server exposes
// it on a unix socket; the CLI also calls it in-process.
type Handler struct {
	deps   Deps
	logger *slog.Logger
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{deps: deps, logger: deps.Logger}
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// Error is a JSON-RPC error object. Application failures carry the message
// the user would have seen as a notice.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error (%d): %s", e.Code, e.Message)
}

// Result wraps every successful answer with the notices the call raised.
type Result struct {
	Data    any             `json:"data"`
	Notices []domain.Notice `json:"notices,omitempty"`
}

// Session identifies the caller. The API checks the token; the user only
// drives which actions are offered.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type access int

const (
	anyone access = iota
	member
	adminOnly
)

var methods = map[string]access{
	"auth.login":         anyone,
	"auth.register":      anyone,
	"dashboard":          member,
	"projects.list":      member,
	"projects.show":      member,
	"projects.create":    member,
	"suites.create":      member,
	"cases.list":         member,
	"cases.show":         member,
	"cases.create":       member,
	"cases.reopen":       adminOnly,
	"runner.load":        member,
	"runner.submit":      member,
	"comments.list":      member,
	"comments.add":       member,
	"comments.delete":    member,
	"permissions.list":   adminOnly,
	"permissions.grant":  adminOnly,
	"permissions.revoke": adminOnly,
	"permissions.check":  member,
	"users.list":         member,
	"activity.list":      adminOnly,
}

// ProjectDetails is the projects.show answer.
type ProjectDetails struct {
	Project     domain.Project     `json:"project"`
	Suites      []domain.TestSuite `json:"suites"`
	OpenCases   []domain.TestCase  `json:"open_cases"`
	PassedCases []domain.TestCase  `json:"passed_cases"`
}

// CaseDetails is the cases.show answer.
type CaseDetails struct {
	Case     domain.TestCase  `json:"case"`
	Comments []domain.Comment `json:"comments"`
}

// RunnerStatus is the runner.load and runner.submit answer. Blocked is the
// reason submission is refused, if any.
type RunnerStatus struct {
	Case          *domain.TestCase `json:"case"`
	HasPermission bool             `json:"has_permission"`
	Blocked       string           `json:"blocked,omitempty"`
}

// Call runs one method in-process.
func (h *Handler) Call(ctx context.Context, method string, params any) (Result, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Result{}, fmt.Errorf("encode params: %w", err)
	}
	resp := h.handle(ctx, request{JSONRPC: "2.0", Method: method, Params: raw, ID: 1})
	if resp.Error != nil {
		return Result{}, resp.Error
	}
	out, _ := resp.Result.(Result)
	return out, nil
}

func (h *Handler) handle(ctx context.Context, req request) response {
	start := time.Now()
	resp := h.dispatch(ctx, req)
	code := 0
	if resp.Error != nil {
		code = resp.Error.Code
	}
	h.logger.DebugContext(ctx, "rpc call",
		"method", req.Method,
		"code", code,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp
}

// call is the per-request workspace and the notices it collects.
type call struct {
	ws      *application.Workspace
	notices *application.NoticeLog
	id      any
}

func (h *Handler) begin(ctx context.Context, s Session, id any) *call {
	auth := application.NewAuthContext(nil)
	_ = auth.Restore(ctx)
	if strings.TrimSpace(s.Token) != "" {
		_ = auth.Login(ctx, s.Token, s.User)
	}
	notices := &application.NoticeLog{}
	ws := application.NewWorkspace(h.deps.Backend(auth), auth, notices, h.logger)
	if h.deps.Activity != nil {
		ws.WithActivity(h.deps.Activity)
	}
	return &call{ws: ws, notices: notices, id: id}
}

func (c *call) ok(data any) response {
	return response{JSONRPC: "2.0", Result: Result{Data: data, Notices: c.notices.Drain()}, ID: c.id}
}

// fail reports err with the notice the user would have seen. API statuses
// map onto the 40000-range codes.
func (c *call) fail(err error) response {
	return c.failOr(err, err.Error())
}

// failOr is fail for calls that raise no notice of their own; fallback
// replaces the raw error text.
func (c *call) failOr(err error, fallback string) response {
	code := codeAppError
	if status := domain.StatusCode(err); status >= 400 {
		code = status * 100
	}
	msg := domain.MessageOr(err, fallback)
	if n, ok := c.notices.Last(); ok && n.Level == domain.NoticeError {
		msg = n.Message
	}
	return response{JSONRPC: "2.0", Error: &Error{Code: code, Message: msg}, ID: c.id}
}

func (h *Handler) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &Error{Code: codeInvalidRequest, Message: "invalid request"}, ID: req.ID}
	}
	level, known := methods[req.Method]
	if !known {
		return response{JSONRPC: "2.0", Error: &Error{Code: codeNotFound, Message: "method not found"}, ID: req.ID}
	}
	var s Session
	if !decodeParams(req.Params, &s) {
		return invalidParams(req.ID)
	}
	c := h.begin(ctx, s, req.ID)
	if level >= member && !c.ws.Auth().IsAuthenticated() {
		return response{JSONRPC: "2.0", Error: &Error{Code: codeUnauthorized, Message: "unauthorized"}, ID: req.ID}
	}
	if level == adminOnly && !c.ws.CurrentRole().IsAdmin() {
		return response{JSONRPC: "2.0", Error: &Error{Code: codeForbidden, Message: "forbidden"}, ID: req.ID}
	}

	switch req.Method {
	case "auth.login":
		var p struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		user, err := c.ws.SignIn(ctx, p.Email, p.Password)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(Session{Token: c.ws.Auth().Token(), User: user})
	case "auth.register":
		var p struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := c.ws.Register(ctx, p.Name, p.Email, p.Password); err != nil {
			return c.fail(err)
		}
		return c.ok(map[string]any{"ok": true})
	case "dashboard":
		out, err := c.ws.Dashboard(ctx)
		if err != nil {
			return c.failOr(err, "Failed to load analytics data")
		}
		return c.ok(out)
	case "projects.list":
		out, err := c.ws.Projects(ctx)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "projects.show":
		var p struct {
			ID      int64  `json:"id"`
			SuiteID *int64 `json:"suite_id"`
		}
		if !decodeParams(req.Params, &p) || p.ID <= 0 {
			return invalidParams(req.ID)
		}
		v := c.ws.ProjectDetails(ctx, p.ID)
		if v.Project == nil {
			return c.fail(v.ProjectErr)
		}
		return c.ok(ProjectDetails{
			Project:     *v.Project,
			Suites:      v.Suites,
			OpenCases:   v.FilterCases(p.SuiteID),
			PassedCases: v.PassedCases,
		})
	case "projects.create":
		var p domain.NewProject
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := c.ws.CreateProject(ctx, p, nil)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "suites.create":
		var p domain.NewTestSuite
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := c.ws.CreateSuite(ctx, p, nil)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "cases.list":
		var p struct {
			ProjectID *int64 `json:"project_id"`
			SuiteID   *int64 `json:"suite_id"`
			Passed    bool   `json:"passed"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := c.ws.Cases(ctx, p.ProjectID, p.SuiteID, p.Passed)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "cases.show":
		var p struct {
			ID int64 `json:"id"`
		}
		if !decodeParams(req.Params, &p) || p.ID <= 0 {
			return invalidParams(req.ID)
		}
		tc, err := c.ws.TestCase(ctx, p.ID)
		if err != nil {
			return c.failOr(err, "Failed to load test case")
		}
		comments, _ := c.ws.Comments(ctx, p.ID)
		return c.ok(CaseDetails{Case: tc, Comments: comments})
	case "cases.create":
		var in domain.NewTestCase
		if !decodeParams(req.Params, &in) {
			return invalidParams(req.ID)
		}
		defaults := application.NewTestCaseDefaults(in.ProjectID, in.SuiteID)
		if in.Priority == "" {
			in.Priority = defaults.Priority
		}
		if in.Type == "" {
			in.Type = defaults.Type
		}
		out, err := c.ws.CreateTestCase(ctx, in, nil)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "cases.reopen":
		var p struct {
			ID int64 `json:"id"`
		}
		if !decodeParams(req.Params, &p) || p.ID <= 0 {
			return invalidParams(req.ID)
		}
		if err := c.ws.Reopen(ctx, p.ID); err != nil {
			return c.fail(err)
		}
		return c.ok(map[string]any{"ok": true})
	case "runner.load":
		var p struct {
			ID int64 `json:"id"`
		}
		if !decodeParams(req.Params, &p) || p.ID <= 0 {
			return invalidParams(req.ID)
		}
		state := c.ws.LoadRunner(ctx, p.ID)
		if state.TestCase == nil {
			return c.fail(state.LoadErr)
		}
		return c.ok(c.runnerStatus(state))
	case "runner.submit":
		var p struct {
			ID           int64                  `json:"id"`
			Status       domain.ExecutionStatus `json:"status"`
			ActualResult string                 `json:"actual_result"`
			Comments     string                 `json:"comments"`
		}
		if !decodeParams(req.Params, &p) || p.ID <= 0 {
			return invalidParams(req.ID)
		}
		state := c.ws.LoadRunner(ctx, p.ID)
		if state.TestCase == nil {
			return c.fail(state.LoadErr)
		}
		// the submit outcome supersedes load warnings
		c.notices.Drain()
		state, err := c.ws.SubmitExecution(ctx, state, application.ExecutionForm{
			Status:       p.Status,
			ActualResult: p.ActualResult,
			Comments:     p.Comments,
		})
		if err != nil {
			return c.fail(err)
		}
		return c.ok(c.runnerStatus(state))
	case "comments.list":
		var p struct {
			TestCaseID int64 `json:"test_case_id"`
		}
		if !decodeParams(req.Params, &p) || p.TestCaseID <= 0 {
			return invalidParams(req.ID)
		}
		out, err := c.ws.Comments(ctx, p.TestCaseID)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "comments.add":
		var p struct {
			TestCaseID int64  `json:"test_case_id"`
			Content    string `json:"content"`
		}
		if !decodeParams(req.Params, &p) || p.TestCaseID <= 0 {
			return invalidParams(req.ID)
		}
		if strings.TrimSpace(p.Content) == "" {
			return response{JSONRPC: "2.0", Error: &Error{Code: codeInvalidParams, Message: "comment content is required"}, ID: req.ID}
		}
		out, err := c.ws.AddComment(ctx, p.TestCaseID, p.Content, nil)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out[0])
	case "comments.delete":
		var p struct {
			TestCaseID int64 `json:"test_case_id"`
			CommentID  int64 `json:"comment_id"`
		}
		if !decodeParams(req.Params, &p) || p.TestCaseID <= 0 || p.CommentID <= 0 {
			return invalidParams(req.ID)
		}
		if _, err := c.ws.DeleteComment(ctx, p.TestCaseID, p.CommentID, nil); err != nil {
			return c.fail(err)
		}
		return c.ok(map[string]any{"ok": true})
	case "permissions.list":
		out, err := c.ws.PermittedUsers(ctx)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "permissions.grant":
		var p struct {
			Email string `json:"email"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := c.ws.GrantPermission(ctx, p.Email)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "permissions.revoke":
		var p struct {
			UserID int64 `json:"user_id"`
		}
		if !decodeParams(req.Params, &p) || p.UserID <= 0 {
			return invalidParams(req.ID)
		}
		out, err := c.ws.RevokePermission(ctx, p.UserID)
		if err != nil {
			return c.fail(err)
		}
		return c.ok(out)
	case "permissions.check":
		return c.ok(domain.PermissionCheck{HasPermission: c.ws.CanExecute(ctx)})
	case "users.list":
		out := c.ws.AssigneeOptions(ctx)
		if out == nil {
			out = []domain.User{}
		}
		return c.ok(out)
	case "activity.list":
		var p struct {
			Limit int `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := c.ws.RecentActivity(ctx, p.Limit)
		if err != nil {
			return response{JSONRPC: "2.0", Error: &Error{Code: codeInternal, Message: fmt.Sprintf("internal error: %v", err)}, ID: req.ID}
		}
		return c.ok(out)
	default:
		return response{JSONRPC: "2.0", Error: &Error{Code: codeNotFound, Message: "method not found"}, ID: req.ID}
	}
}

func (c *call) runnerStatus(state application.RunnerState) RunnerStatus {
	return RunnerStatus{
		Case:          state.TestCase,
		HasPermission: state.HasPermission,
		Blocked:       application.BlockedMessage(state.Blocked(c.ws.CurrentRole())),
	}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &Error{Code: codeInvalidParams, Message: "invalid params"}, ID: id}
}
