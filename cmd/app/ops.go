package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/atvirokodosprendimai/testdesk/internal/adapters/restapi"
	"github.com/atvirokodosprendimai/testdesk/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/testdesk/internal/application"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

// invoke runs method through the daemon socket or in-process against the
// REST API, prints the notices it raised and decodes the payload into out.
func invoke(ctx context.Context, cfg cliConfig, method string, params map[string]any, out any) error {
	if params == nil {
		params = map[string]any{}
	}
	if cfg.signedIn() {
		params["token"] = cfg.Token
		params["user"] = cfg.User
	}

	var (
		res rpcResult
		err error
	)
	if cfg.Transport == transportUDS {
		res, err = newRPCClient(cfg.Socket).call(ctx, method, params)
	} else {
		res, err = callLocal(ctx, cfg, method, params)
	}
	if err != nil {
		return err
	}
	printNotices(os.Stderr, res.Notices)
	if out == nil || len(res.Data) == 0 {
		return nil
	}
	return json.Unmarshal(res.Data, out)
}

func callLocal(ctx context.Context, cfg cliConfig, method string, params map[string]any) (rpcResult, error) {
	httpClient := restapi.NewHTTPClient(cfg.timeout, nil)
	handler := rpcjson.NewHandler(rpcjson.Deps{
		Backend: func(auth *application.AuthContext) domain.Backend {
			return restapi.New(cfg.APIURL, auth, restapi.WithHTTPClient(httpClient), restapi.WithLogger(cfg.logger))
		},
		Logger: cfg.logger,
	})
	res, err := handler.Call(ctx, method, params)
	if err != nil {
		return rpcResult{}, err
	}
	data, err := json.Marshal(res.Data)
	if err != nil {
		return rpcResult{}, err
	}
	return rpcResult{Data: data, Notices: res.Notices}, nil
}

func doLogin(ctx context.Context, cfg cliConfig, email, password string, out any) error {
	return invoke(ctx, cfg, "auth.login", map[string]any{"email": email, "password": password}, out)
}

func doRegister(ctx context.Context, cfg cliConfig, name, email, password string) error {
	return invoke(ctx, cfg, "auth.register", map[string]any{"name": name, "email": email, "password": password}, nil)
}

func doDashboard(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "dashboard", nil, out)
}

func doProjectsList(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "projects.list", nil, out)
}

func doProjectsShow(ctx context.Context, cfg cliConfig, id int64, suiteID *int64, out any) error {
	return invoke(ctx, cfg, "projects.show", map[string]any{"id": id, "suite_id": suiteID}, out)
}

func doProjectsCreate(ctx context.Context, cfg cliConfig, in domain.NewProject, out any) error {
	return invoke(ctx, cfg, "projects.create", map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"version":     in.Version,
	}, out)
}

func doSuitesCreate(ctx context.Context, cfg cliConfig, in domain.NewTestSuite, out any) error {
	return invoke(ctx, cfg, "suites.create", map[string]any{
		"project_id":  in.ProjectID,
		"name":        in.Name,
		"description": in.Description,
	}, out)
}

func doCasesList(ctx context.Context, cfg cliConfig, projectID, suiteID *int64, passed bool, out any) error {
	return invoke(ctx, cfg, "cases.list", map[string]any{"project_id": projectID, "suite_id": suiteID, "passed": passed}, out)
}

func doCasesShow(ctx context.Context, cfg cliConfig, id int64, out any) error {
	return invoke(ctx, cfg, "cases.show", map[string]any{"id": id}, out)
}

func doCasesCreate(ctx context.Context, cfg cliConfig, in domain.NewTestCase, out any) error {
	return invoke(ctx, cfg, "cases.create", map[string]any{
		"project_id":      in.ProjectID,
		"suite_id":        in.SuiteID,
		"title":           in.Title,
		"description":     in.Description,
		"priority":        in.Priority,
		"type":            in.Type,
		"pre_conditions":  in.PreConditions,
		"post_conditions": in.PostConditions,
		"assigned_to":     in.AssignedTo,
	}, out)
}

func doCasesReopen(ctx context.Context, cfg cliConfig, id int64) error {
	return invoke(ctx, cfg, "cases.reopen", map[string]any{"id": id}, nil)
}

func doRunnerLoad(ctx context.Context, cfg cliConfig, id int64, out any) error {
	return invoke(ctx, cfg, "runner.load", map[string]any{"id": id}, out)
}

func doRunnerSubmit(ctx context.Context, cfg cliConfig, id int64, form application.ExecutionForm, out any) error {
	return invoke(ctx, cfg, "runner.submit", map[string]any{
		"id":            id,
		"status":        form.Status,
		"actual_result": form.ActualResult,
		"comments":      form.Comments,
	}, out)
}

func doCommentsList(ctx context.Context, cfg cliConfig, caseID int64, out any) error {
	return invoke(ctx, cfg, "comments.list", map[string]any{"test_case_id": caseID}, out)
}

func doCommentsAdd(ctx context.Context, cfg cliConfig, caseID int64, content string, out any) error {
	return invoke(ctx, cfg, "comments.add", map[string]any{"test_case_id": caseID, "content": content}, out)
}

func doCommentsDelete(ctx context.Context, cfg cliConfig, caseID, commentID int64) error {
	return invoke(ctx, cfg, "comments.delete", map[string]any{"test_case_id": caseID, "comment_id": commentID}, nil)
}

func doPermissionsList(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "permissions.list", nil, out)
}

func doPermissionsGrant(ctx context.Context, cfg cliConfig, email string, out any) error {
	return invoke(ctx, cfg, "permissions.grant", map[string]any{"email": email}, out)
}

func doPermissionsRevoke(ctx context.Context, cfg cliConfig, userID int64, out any) error {
	return invoke(ctx, cfg, "permissions.revoke", map[string]any{"user_id": userID}, out)
}

func doPermissionsCheck(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "permissions.check", nil, out)
}

func doUsersList(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "users.list", nil, out)
}

// doActivityList needs the daemon: the activity log lives in its database.
func doActivityList(ctx context.Context, cfg cliConfig, limit int, out any) error {
	cfg.Transport = transportUDS
	return invoke(ctx, cfg, "activity.list", map[string]any{"limit": limit}, out)
}
