package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/testdesk/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/testdesk/internal/application"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "testdesk",
		Usage: "Test management web frontend and CLI",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			serverCommand(),
			authCommand(),
			dashboardCommand(),
			projectsCommand(),
			suitesCommand(),
			casesCommand(),
			runCommand(),
			commentsCommand(),
			permissionsCommand(),
			usersCommand(),
			activityCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "YAML config file", Sources: cli.EnvVars("TESTDESK_CONFIG")},
		&cli.StringFlag{Name: "transport", Usage: "http (direct REST calls) or uds (daemon socket)"},
		&cli.StringFlag{Name: "api-url", Usage: "REST API base URL"},
		&cli.StringFlag{Name: "socket", Usage: "daemon JSON-RPC socket path"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}
}

// optionalID reads an int64 flag, nil when it was not given.
func optionalID(c *cli.Command, name string) *int64 {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int64(name)
	return &v
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("TESTDESK_PASSWORD")},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					cfg.Token, cfg.User = "", domain.User{}
					var out rpcjson.Session
					if err := doLogin(ctx, cfg, c.String("email"), c.String("password"), &out); err != nil {
						return err
					}
					cfg.Token, cfg.User = out.Token, out.User
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s (%s)\n", out.User.Username, out.User.Role)
					return nil
				},
			},
			{
				Name:  "register",
				Usage: "Create a tester account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("TESTDESK_PASSWORD")},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					cfg.Token = ""
					return doRegister(ctx, cfg, c.String("name"), c.String("email"), c.String("password"))
				},
			},
			{
				Name:  "whoami",
				Usage: "Show the stored user",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(cfg.User)
					}
					printUser(cfg.User)
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Forget the stored session",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					cfg.Token, cfg.User = "", domain.User{}
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Show analytics",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := requireLogin(c)
			if err != nil {
				return err
			}
			var out domain.Analytics
			if err := doDashboard(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printAnalytics(out)
			return nil
		},
	}
}

func projectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "Project commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List projects",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out []domain.Project
					if err := doProjectsList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printProjects(out)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show a project with its suites and cases",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Required: true},
					&cli.Int64Flag{Name: "suite", Usage: "only open cases of this suite"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out rpcjson.ProjectDetails
					if err := doProjectsShow(ctx, cfg, c.Int64("id"), optionalID(c, "suite"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printProjectDetails(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "version"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					in := domain.NewProject{Name: c.String("name"), Description: c.String("description"), Version: c.String("version")}
					var out domain.Project
					if err := doProjectsCreate(ctx, cfg, in, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printProjects([]domain.Project{out})
					return nil
				},
			},
		},
	}
}

func suitesCommand() *cli.Command {
	return &cli.Command{
		Name:  "suites",
		Usage: "Test suite commands",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a test suite",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "project", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					in := domain.NewTestSuite{ProjectID: c.Int64("project"), Name: c.String("name"), Description: c.String("description")}
					var out domain.TestSuite
					if err := doSuitesCreate(ctx, cfg, in, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSuites([]domain.TestSuite{out})
					return nil
				},
			},
		},
	}
}

func casesCommand() *cli.Command {
	return &cli.Command{
		Name:  "cases",
		Usage: "Test case commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List open test cases, or passed ones with --passed",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "project"},
					&cli.Int64Flag{Name: "suite"},
					&cli.BoolFlag{Name: "passed"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out []domain.TestCase
					if err := doCasesList(ctx, cfg, optionalID(c, "project"), optionalID(c, "suite"), c.Bool("passed"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printCases(out)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show a test case with its comments",
				Flags: []cli.Flag{&cli.Int64Flag{Name: "id", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out rpcjson.CaseDetails
					if err := doCasesShow(ctx, cfg, c.Int64("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printCaseDetails(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a test case",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "project", Required: true},
					&cli.Int64Flag{Name: "suite"},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "priority", Value: string(domain.PriorityMedium), Usage: "Low, Medium, High or Critical"},
					&cli.StringFlag{Name: "type", Value: string(domain.CaseTypeFunctional), Usage: "Functional, Integration, Regression, Smoke, UI or API"},
					&cli.StringFlag{Name: "pre-conditions"},
					&cli.StringFlag{Name: "post-conditions"},
					&cli.Int64Flag{Name: "assignee", Usage: "user id"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					in := application.NewTestCaseDefaults(c.Int64("project"), optionalID(c, "suite"))
					in.Title = c.String("title")
					in.Description = c.String("description")
					in.Priority = domain.Priority(c.String("priority"))
					in.Type = domain.CaseType(c.String("type"))
					in.PreConditions = c.String("pre-conditions")
					in.PostConditions = c.String("post-conditions")
					in.AssignedTo = optionalID(c, "assignee")
					var out domain.TestCase
					if err := doCasesCreate(ctx, cfg, in, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printCases([]domain.TestCase{out})
					return nil
				},
			},
			{
				Name:  "reopen",
				Usage: "Reopen a passed test case (admin)",
				Flags: []cli.Flag{&cli.Int64Flag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					return doCasesReopen(ctx, cfg, c.Int64("id"))
				},
			},
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Record an execution result for a test case",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "case", Required: true},
			&cli.StringFlag{Name: "status", Value: string(domain.ExecutionPass), Usage: "Pass, Fail, Blocked or Skipped"},
			&cli.StringFlag{Name: "actual", Usage: "actual result"},
			&cli.StringFlag{Name: "comments"},
			&cli.BoolFlag{Name: "check", Usage: "only show whether the case can be executed"},
			jsonFlag(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := requireLogin(c)
			if err != nil {
				return err
			}
			var out rpcjson.RunnerStatus
			if c.Bool("check") {
				err = doRunnerLoad(ctx, cfg, c.Int64("case"), &out)
			} else {
				form := application.ExecutionForm{
					Status:       domain.ExecutionStatus(c.String("status")),
					ActualResult: c.String("actual"),
					Comments:     c.String("comments"),
				}
				err = doRunnerSubmit(ctx, cfg, c.Int64("case"), form, &out)
			}
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printRunnerStatus(out)
			return nil
		},
	}
}

func commentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "comments",
		Usage: "Test case comment commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List comments on a test case",
				Flags: []cli.Flag{&cli.Int64Flag{Name: "case", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out []domain.Comment
					if err := doCommentsList(ctx, cfg, c.Int64("case"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printComments(out)
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "Comment on a test case",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "case", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out domain.Comment
					if err := doCommentsAdd(ctx, cfg, c.Int64("case"), c.String("content"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printComments([]domain.Comment{out})
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a comment; the API only allows your own",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "case", Required: true},
					&cli.Int64Flag{Name: "comment", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					return doCommentsDelete(ctx, cfg, c.Int64("case"), c.Int64("comment"))
				},
			},
		},
	}
}

func permissionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "permissions",
		Usage: "Execution permission commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users allowed to execute tests (admin)",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out []domain.PermittedUser
					if err := doPermissionsList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPermittedUsers(out)
					return nil
				},
			},
			{
				Name:  "grant",
				Usage: "Grant execution permission by email (admin)",
				Flags: []cli.Flag{&cli.StringFlag{Name: "email", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out []domain.PermittedUser
					if err := doPermissionsGrant(ctx, cfg, c.String("email"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPermittedUsers(out)
					return nil
				},
			},
			{
				Name:  "revoke",
				Usage: "Revoke execution permission (admin)",
				Flags: []cli.Flag{&cli.Int64Flag{Name: "user", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out []domain.PermittedUser
					if err := doPermissionsRevoke(ctx, cfg, c.Int64("user"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPermittedUsers(out)
					return nil
				},
			},
			{
				Name:  "check",
				Usage: "Check whether you may execute tests",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out domain.PermissionCheck
					if err := doPermissionsCheck(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"has_permission", fmt.Sprint(out.HasPermission)}})
					return nil
				},
			},
		},
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "User commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out []domain.User
					if err := doUsersList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printUsers(out)
					return nil
				},
			},
		},
	}
}

func activityCommand() *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "Local activity log of the daemon",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent activity (admin, daemon socket only)",
				Flags: []cli.Flag{&cli.IntFlag{Name: "limit", Value: 50}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := requireLogin(c)
					if err != nil {
						return err
					}
					var out []domain.Activity
					if err := doActivityList(ctx, cfg, c.Int("limit"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printActivity(out)
					return nil
				},
			},
		},
	}
}
