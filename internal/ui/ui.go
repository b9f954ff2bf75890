// Package ui renders the browser frontend. Pages and the fragments that
// datastar actions swap in are templ components over embedded templates.
package ui

import (
	"embed"
	"html/template"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("ui").Funcs(template.FuncMap{
	"fmtTime":  fmtTime,
	"deref":    deref,
	"isActive": isActive,
}).ParseFS(templatesFS, "templates/*.html"))

func render(name string, data any) templ.Component {
	return templ.FromGoHTML(templates.Lookup(name), data)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func deref(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func isActive(active *int64, id int64) bool {
	return active != nil && *active == id
}

// Nav is what every page's sidebar and flash area need.
type Nav struct {
	Title   string
	Active  string
	User    domain.User
	Notices []domain.Notice
}

func (n Nav) IsAdmin() bool   { return n.User.Role.IsAdmin() }
func (n Nav) CanManage() bool { return n.User.Role.CanManageTests() }

// Initial is the avatar letter shown next to the user name.
func (n Nav) Initial() string {
	for _, s := range []string{n.User.Username, n.User.Email} {
		if s != "" {
			return string([]rune(s)[0:1])
		}
	}
	return "U"
}

type authPage struct {
	Message string
	Email   string
}

func LoginPage(message, email string) templ.Component {
	return render("login", authPage{Message: message, Email: email})
}

func RegisterPage(message string) templ.Component {
	return render("register", authPage{Message: message})
}

// Bar is one row of a dashboard breakdown.
type Bar struct {
	Label   string
	Count   int64
	Percent int64
}

type dashboardPage struct {
	Nav
	Analytics  *domain.Analytics
	Executions []Bar
	Priorities []Bar
}

func DashboardPage(nav Nav, a *domain.Analytics) templ.Component {
	page := dashboardPage{Nav: nav, Analytics: a}
	if a != nil {
		for _, s := range a.ExecutionStats {
			page.Executions = append(page.Executions, Bar{Label: s.Status, Count: s.Count})
		}
		for _, p := range a.PriorityStats {
			page.Priorities = append(page.Priorities, Bar{Label: p.Priority, Count: p.Count})
		}
		scaleBars(page.Executions)
		scaleBars(page.Priorities)
	}
	return render("dashboard", page)
}

func scaleBars(bars []Bar) {
	var total int64
	for _, b := range bars {
		total += b.Count
	}
	if total == 0 {
		return
	}
	for i := range bars {
		bars[i].Percent = bars[i].Count * 100 / total
	}
}

type projectsPage struct {
	Nav
	Projects []domain.Project
}

func ProjectsPage(nav Nav, projects []domain.Project) templ.Component {
	return render("projects", projectsPage{Nav: nav, Projects: projects})
}

func ProjectsTable(nav Nav, projects []domain.Project) templ.Component {
	return render("projects_table", projectsPage{Nav: nav, Projects: projects})
}

// ProjectView is the project details page.
type ProjectView struct {
	Nav
	Project     domain.Project
	Suites      []domain.TestSuite
	OpenCases   []domain.TestCase
	PassedCases []domain.TestCase
	ActiveSuite *int64
	Users       []domain.User
	Priorities  []domain.Priority
	CaseTypes   []domain.CaseType
}

func ProjectPage(v ProjectView) templ.Component {
	v.Priorities, v.CaseTypes = domain.Priorities, domain.CaseTypes
	return render("project", v)
}

func ProjectNotFound(nav Nav) templ.Component {
	return render("project_missing", nav)
}

func SuiteFilter(v ProjectView) templ.Component { return render("suite_filter", v) }

func OpenCasesTable(v ProjectView) templ.Component { return render("open_cases", v) }

func PassedCasesTable(v ProjectView) templ.Component { return render("passed_cases", v) }

type testCasePage struct {
	Nav
	Case        *domain.TestCase
	Comments    []domain.Comment
	Unavailable bool
}

func (p testCasePage) CaseID() int64 {
	if p.Case == nil {
		return 0
	}
	return p.Case.ID
}

func TestCasePage(nav Nav, tc *domain.TestCase, comments []domain.Comment) templ.Component {
	return render("testcase", testCasePage{Nav: nav, Case: tc, Comments: comments})
}

// TestCaseUnavailable is the page shown when the API failed for a reason
// other than a missing case.
func TestCaseUnavailable(nav Nav) templ.Component {
	return render("testcase", testCasePage{Nav: nav, Unavailable: true})
}

type commentsList struct {
	CaseID   int64
	Comments []domain.Comment
}

func CommentsList(caseID int64, comments []domain.Comment) templ.Component {
	return render("comments", commentsList{CaseID: caseID, Comments: comments})
}

// RunnerView is the execute page. Blocked explains why the form is
// disabled, if it is.
type RunnerView struct {
	Nav
	Case          *domain.TestCase
	HasPermission bool
	Blocked       string
	Status        domain.ExecutionStatus
	ActualResult  string
	Comments      string
	Statuses      []domain.ExecutionStatus
}

func RunnerPage(v RunnerView) templ.Component {
	v.Statuses = domain.ExecutionStatuses
	return render("runner", v)
}

func RunnerPanel(v RunnerView) templ.Component {
	v.Statuses = domain.ExecutionStatuses
	return render("runner_panel", v)
}

type permissionsPage struct {
	Nav
	Users []domain.PermittedUser
}

func PermissionsPage(nav Nav, users []domain.PermittedUser) templ.Component {
	return render("permissions", permissionsPage{Nav: nav, Users: users})
}

func PermittedUsersTable(users []domain.PermittedUser) templ.Component {
	return render("permitted_users", permissionsPage{Users: users})
}

type activityPage struct {
	Nav
	Entries []domain.Activity
}

func ActivityPage(nav Nav, entries []domain.Activity) templ.Component {
	return render("activity", activityPage{Nav: nav, Entries: entries})
}

func Flash(message, kind string) templ.Component {
	return render("flash", []domain.Notice{{Level: domain.NoticeLevel(kind), Message: message}})
}

// Notices renders every collected notice into the flash area.
func Notices(notices []domain.Notice) templ.Component {
	return render("flash", notices)
}
