package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atvirokodosprendimai/testdesk/internal/application"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
	"github.com/atvirokodosprendimai/testdesk/internal/ui"
)

const sessionCookieName = "td_session"

type contextKey string

const requestStateKey contextKey = "request_state"

// Deps wires the router to the rest of the process.
type Deps struct {
	// Backend builds the API client for one request, authenticated by auth.
	Backend func(auth *application.AuthContext) domain.Backend
	// Sessions returns the store of the browser holding cookie id.
	Sessions func(id string) domain.SessionStore
	Activity domain.ActivityLog
	Logger   *slog.Logger
	// Registry receives server metrics; Gatherer backs /metrics. Both may be nil.
	Registry      prometheus.Registerer
	Gatherer      prometheus.Gatherer
	SecureCookies bool
	SessionTTL    time.Duration
}

type Handler struct {
	deps   Deps
	logger *slog.Logger
}

// requestState is the per-request view of the signed-in browser.
type requestState struct {
	sessionID string
	auth      *application.AuthContext
	notices   *application.NoticeLog
	workspace *application.Workspace
}

func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 7 * 24 * time.Hour
	}
	h := &Handler{deps: deps, logger: deps.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	if deps.Registry != nil {
		r.Use(newServerMetrics(deps.Registry).middleware)
	}

	r.Get("/healthz", h.handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)
		r.Get("/register", h.handleRegisterPage)
		r.Post("/register", h.handleRegister)
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuthGUI)

			r.Get("/", h.handleHomeRedirect)
			r.Get("/dashboard", h.handleDashboard)

			r.Get("/projects", h.handleProjects)
			r.Post("/projects/create", h.handleCreateProject)
			r.Get("/projects/{id}", h.handleProjectDetails)
			r.Post("/projects/{id}/filter", h.handleFilterCases)
			r.Post("/projects/{id}/suites", h.handleCreateSuite)
			r.Post("/projects/{id}/cases", h.handleCreateTestCase)
			r.With(h.requireAdmin).Post("/projects/{id}/cases/{caseID}/reopen", h.handleReopen)

			r.Get("/test-cases/{id}", h.handleTestCase)
			r.Post("/test-cases/{id}/comments", h.handleAddComment)
			r.Post("/test-cases/{id}/comments/{commentID}/delete", h.handleDeleteComment)

			r.Get("/execute/{id}", h.handleRunner)
			r.Post("/execute/{id}", h.handleSubmitExecution)

			r.With(h.requireAdmin).Get("/admin/permissions", h.handlePermissions)
			r.With(h.requireAdmin).Post("/admin/permissions/grant", h.handleGrantPermission)
			r.With(h.requireAdmin).Post("/admin/permissions/{userID}/revoke", h.handleRevokePermission)
			r.With(h.requireAdmin).Get("/admin/activity", h.handleActivity)
		})
	})

	return r
}

// withSession attaches the browser session, issuing a cookie on first visit,
// and builds the request's workspace.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookieName); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			h.setSessionCookie(w, id)
		}

		auth := application.NewAuthContext(h.deps.Sessions(id))
		if err := auth.Restore(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "restore session failed", "error", err)
		}
		notices := &application.NoticeLog{}
		ws := application.NewWorkspace(h.deps.Backend(auth), auth, notices, h.logger)
		if h.deps.Activity != nil {
			ws.WithActivity(h.deps.Activity)
		}

		state := &requestState{sessionID: id, auth: auth, notices: notices, workspace: ws}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestStateKey, state)))
	})
}

func (h *Handler) requireAuthGUI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !stateFrom(r.Context()).auth.IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin hides admin-only actions from other roles. The API enforces
// the same rule on its side.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !stateFrom(r.Context()).workspace.CurrentRole().IsAdmin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func stateFrom(ctx context.Context) *requestState {
	s, _ := ctx.Value(requestStateKey).(*requestState)
	return s
}

func (h *Handler) workspace(r *http.Request) *application.Workspace {
	return stateFrom(r.Context()).workspace
}

// nav builds the page chrome and drains the notices collected so far.
func (h *Handler) nav(r *http.Request, title, active string) ui.Nav {
	s := stateFrom(r.Context())
	u, _ := s.auth.User()
	return ui.Nav{Title: title, Active: active, User: u, Notices: s.notices.Drain()}
}

// viewer is the page chrome without notices, for fragments.
func (h *Handler) viewer(r *http.Request) ui.Nav {
	u, _ := stateFrom(r.Context()).auth.User()
	return ui.Nav{User: u}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.deps.SecureCookies,
		MaxAge:   int(h.deps.SessionTTL / time.Second),
	})
}

// rotateSession moves a freshly signed-in session to a new cookie id and
// drops the row stored under the pre-login id.
func (h *Handler) rotateSession(w http.ResponseWriter, r *http.Request, value domain.Session) error {
	s := stateFrom(r.Context())
	id := uuid.NewString()
	if err := h.deps.Sessions(id).Save(r.Context(), value); err != nil {
		return err
	}
	if err := h.deps.Sessions(s.sessionID).Clear(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "clear pre-login session failed", "error", err)
	}
	s.sessionID = id
	w.Header().Del("Set-Cookie")
	h.setSessionCookie(w, id)
	return nil
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseOptionalID reads an optional numeric select value; blank means none.
func parseOptionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func renderPage(ctx context.Context, w http.ResponseWriter, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(ctx, w); err != nil {
		slog.ErrorContext(ctx, "render page failed", "error", err)
	}
}

func renderHTMLFragments(ctx context.Context, w http.ResponseWriter, status int, fragments ...templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	for _, fragment := range fragments {
		if fragment == nil {
			continue
		}
		_ = fragment.Render(ctx, w)
	}
}

// renderNotices answers a datastar action with the collected notices
// followed by any re-rendered fragments.
func (h *Handler) renderNotices(r *http.Request, w http.ResponseWriter, fragments ...templ.Component) {
	notices := stateFrom(r.Context()).notices.Drain()
	renderHTMLFragments(r.Context(), w, http.StatusOK, append([]templ.Component{ui.Notices(notices)}, fragments...)...)
}

func (h *Handler) renderFlash(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if status >= 400 {
		_ = ui.Flash(message, "error").Render(ctx, w)
		return
	}
	_ = ui.Flash(message, "info").Render(ctx, w)
}
