package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/atvirokodosprendimai/testdesk/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

var (
	colorSuccess = lipgloss.Color("#22C55E")
	colorError   = lipgloss.Color("#E74C3C")
	colorInfo    = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

// printNotices writes notices the way the browser shows toasts.
func printNotices(w io.Writer, notices []domain.Notice) {
	for _, n := range notices {
		_, _ = fmt.Fprintln(w, renderNotice(n))
	}
}

func renderNotice(n domain.Notice) string {
	switch n.Level {
	case domain.NoticeSuccess:
		return successStyle.Render("✓ " + n.Message)
	case domain.NoticeError:
		return errorStyle.Render("✗ " + n.Message)
	default:
		return infoStyle.Render("• " + n.Message)
	}
}

func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, errorStyle.Render("✗ "+err.Error()))
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println(mutedStyle.Render("no results"))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatID(v int64) string { return strconv.FormatInt(v, 10) }

func formatMaybeID(v *int64) string {
	if v == nil {
		return "-"
	}
	return formatID(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func printUser(u domain.User) {
	printKV([][2]string{
		{"id", formatID(u.ID)},
		{"username", u.Username},
		{"email", u.Email},
		{"role", string(u.Role)},
	})
}

func printAnalytics(a domain.Analytics) {
	printKV([][2]string{
		{"projects", formatID(a.Counts.Projects)},
		{"test_cases", formatID(a.Counts.TestCases)},
		{"users", formatID(a.Counts.Users)},
	})
	fmt.Println()
	rows := make([][]string, 0, len(a.ExecutionStats))
	for _, s := range a.ExecutionStats {
		rows = append(rows, []string{s.Status, formatID(s.Count)})
	}
	printTable([]string{"EXECUTION_STATUS", "COUNT"}, rows)
	fmt.Println()
	rows = rows[:0]
	for _, p := range a.PriorityStats {
		rows = append(rows, []string{p.Priority, formatID(p.Count)})
	}
	printTable([]string{"PRIORITY", "COUNT"}, rows)
}

func printProjects(items []domain.Project) {
	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{formatID(p.ID), p.Name, p.Version, formatTime(p.CreatedAt)})
	}
	printTable([]string{"ID", "NAME", "VERSION", "CREATED_AT"}, rows)
}

func printProjectDetails(d rpcjson.ProjectDetails) {
	printKV([][2]string{
		{"id", formatID(d.Project.ID)},
		{"name", d.Project.Name},
		{"version", d.Project.Version},
		{"description", d.Project.Description},
	})
	fmt.Println()
	printSuites(d.Suites)
	fmt.Println()
	printCases(d.OpenCases)
	if len(d.PassedCases) > 0 {
		fmt.Println()
		fmt.Println(mutedStyle.Render("passed"))
		printCases(d.PassedCases)
	}
}

func printSuites(items []domain.TestSuite) {
	rows := make([][]string, 0, len(items))
	for _, s := range items {
		rows = append(rows, []string{formatID(s.ID), s.Name, s.Description})
	}
	printTable([]string{"SUITE_ID", "NAME", "DESCRIPTION"}, rows)
}

func printCases(items []domain.TestCase) {
	rows := make([][]string, 0, len(items))
	for _, tc := range items {
		rows = append(rows, []string{
			formatID(tc.ID),
			tc.Title,
			string(tc.Priority),
			string(tc.Type),
			string(tc.Status),
			formatMaybeID(tc.SuiteID),
			formatMaybeID(tc.AssignedTo),
		})
	}
	printTable([]string{"ID", "TITLE", "PRIORITY", "TYPE", "STATUS", "SUITE", "ASSIGNEE"}, rows)
}

func printCase(tc domain.TestCase) {
	printKV([][2]string{
		{"id", formatID(tc.ID)},
		{"project_id", formatID(tc.ProjectID)},
		{"suite_id", formatMaybeID(tc.SuiteID)},
		{"title", tc.Title},
		{"priority", string(tc.Priority)},
		{"type", string(tc.Type)},
		{"status", string(tc.Status)},
		{"assigned_to", formatMaybeID(tc.AssignedTo)},
		{"description", tc.Description},
		{"pre_conditions", tc.PreConditions},
		{"post_conditions", tc.PostConditions},
	})
	if len(tc.Steps) == 0 {
		return
	}
	fmt.Println()
	rows := make([][]string, 0, len(tc.Steps))
	for _, s := range tc.Steps {
		rows = append(rows, []string{strconv.Itoa(s.StepNumber), s.Action, s.ExpectedResult})
	}
	printTable([]string{"STEP", "ACTION", "EXPECTED"}, rows)
}

func printCaseDetails(d rpcjson.CaseDetails) {
	printCase(d.Case)
	fmt.Println()
	printComments(d.Comments)
}

func printRunnerStatus(s rpcjson.RunnerStatus) {
	rows := [][2]string{{"has_permission", strconv.FormatBool(s.HasPermission)}}
	if s.Case != nil {
		rows = append(rows, [2]string{"case", formatID(s.Case.ID) + " " + s.Case.Title}, [2]string{"status", string(s.Case.Status)})
	}
	printKV(rows)
	if s.Blocked != "" {
		fmt.Println(errorStyle.Render(s.Blocked))
	}
}

func printComments(items []domain.Comment) {
	rows := make([][]string, 0, len(items))
	for _, c := range items {
		rows = append(rows, []string{formatID(c.ID), c.Username, formatTime(c.CreatedAt), c.Content})
	}
	printTable([]string{"ID", "USER", "AT", "CONTENT"}, rows)
}

func printPermittedUsers(items []domain.PermittedUser) {
	rows := make([][]string, 0, len(items))
	for _, u := range items {
		rows = append(rows, []string{
			formatID(u.ID),
			u.Username,
			u.Email,
			string(u.Role),
			u.GrantedByUsername,
			formatTime(u.GrantedAt),
		})
	}
	printTable([]string{"USER_ID", "USERNAME", "EMAIL", "ROLE", "GRANTED_BY", "GRANTED_AT"}, rows)
}

func printUsers(items []domain.User) {
	rows := make([][]string, 0, len(items))
	for _, u := range items {
		rows = append(rows, []string{formatID(u.ID), u.Username, u.Email, string(u.Role)})
	}
	printTable([]string{"ID", "USERNAME", "EMAIL", "ROLE"}, rows)
}

func printActivity(items []domain.Activity) {
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			formatID(a.ID),
			a.Action,
			a.TargetType,
			formatMaybeID(a.TargetID),
			a.Username,
			a.Detail,
			formatTime(a.CreatedAt),
		})
	}
	printTable([]string{"ID", "ACTION", "TARGET_TYPE", "TARGET_ID", "USER", "DETAIL", "AT"}, rows)
}
