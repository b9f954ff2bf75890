package domain

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleTestLead Role = "test-lead"
	RoleTester   Role = "tester"
)

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// CanManageTests reports whether the role is offered project, suite and test
// case creation. The backend makes the final decision.
func (r Role) CanManageTests() bool { return r == RoleAdmin || r == RoleTestLead }

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
}

type TestSuite struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

type CaseType string

const (
	CaseTypeFunctional  CaseType = "Functional"
	CaseTypeIntegration CaseType = "Integration"
	CaseTypeRegression  CaseType = "Regression"
	CaseTypeSmoke       CaseType = "Smoke"
	CaseTypeUI          CaseType = "UI"
	CaseTypeAPI         CaseType = "API"
)

var CaseTypes = []CaseType{CaseTypeFunctional, CaseTypeIntegration, CaseTypeRegression, CaseTypeSmoke, CaseTypeUI, CaseTypeAPI}

func (t CaseType) Valid() bool {
	for _, v := range CaseTypes {
		if v == t {
			return true
		}
	}
	return false
}

type CaseStatus string

const (
	CaseOpen   CaseStatus = "open"
	CaseClosed CaseStatus = "closed"
)

type TestStep struct {
	StepNumber     int    `json:"step_number"`
	Action         string `json:"action"`
	ExpectedResult string `json:"expected_result"`
}

type TestCase struct {
	ID             int64      `json:"id"`
	ProjectID      int64      `json:"project_id"`
	SuiteID        *int64     `json:"suite_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       Priority   `json:"priority"`
	Type           CaseType   `json:"type"`
	PreConditions  string     `json:"pre_conditions"`
	PostConditions string     `json:"post_conditions"`
	AssignedTo     *int64     `json:"assigned_to"`
	Status         CaseStatus `json:"status"`
	Steps          []TestStep `json:"steps"`
}

func (c TestCase) Closed() bool { return c.Status == CaseClosed }

// InSuite reports whether the case belongs to the given suite.
func (c TestCase) InSuite(suiteID int64) bool {
	return c.SuiteID != nil && *c.SuiteID == suiteID
}

type ExecutionStatus string

const (
	ExecutionPass    ExecutionStatus = "Pass"
	ExecutionFail    ExecutionStatus = "Fail"
	ExecutionBlocked ExecutionStatus = "Blocked"
	ExecutionSkipped ExecutionStatus = "Skipped"
)

var ExecutionStatuses = []ExecutionStatus{ExecutionPass, ExecutionFail, ExecutionBlocked, ExecutionSkipped}

func (s ExecutionStatus) Valid() bool {
	for _, v := range ExecutionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type TestExecution struct {
	TestCaseID   int64           `json:"test_case_id"`
	Status       ExecutionStatus `json:"status"`
	ActualResult string          `json:"actual_result"`
	Comments     string          `json:"comments"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
}

type Comment struct {
	ID         int64     `json:"id"`
	TestCaseID int64     `json:"test_case_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// PermittedUser is a user holding an execution permission grant.
type PermittedUser struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Role              Role      `json:"role"`
	GrantedAt         time.Time `json:"granted_at"`
	GrantedByUsername string    `json:"granted_by_username"`
}

type PermissionCheck struct {
	HasPermission bool `json:"hasPermission"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int64  `json:"count"`
}

type Analytics struct {
	Counts struct {
		Projects  int64 `json:"projects"`
		TestCases int64 `json:"testCases"`
		Users     int64 `json:"users"`
	} `json:"counts"`
	ExecutionStats []StatusCount   `json:"executionStats"`
	PriorityStats  []PriorityCount `json:"priorityStats"`
}

// Session is what the auth context persists between runs.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type NewProject struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

type NewTestSuite struct {
	ProjectID   int64  `json:"project_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type NewTestCase struct {
	ProjectID      int64      `json:"project_id" validate:"required,gt=0"`
	SuiteID        *int64     `json:"suite_id"`
	Title          string     `json:"title" validate:"required"`
	Description    string     `json:"description"`
	Priority       Priority   `json:"priority" validate:"required,oneof=Low Medium High Critical"`
	Type           CaseType   `json:"type" validate:"required,oneof=Functional Integration Regression Smoke UI API"`
	PreConditions  string     `json:"pre_conditions"`
	PostConditions string     `json:"post_conditions"`
	AssignedTo     *int64     `json:"assigned_to"`
	Steps          []TestStep `json:"steps"`
}

type NewExecution struct {
	TestCaseID   int64           `json:"test_case_id" validate:"required,gt=0"`
	Status       ExecutionStatus `json:"status" validate:"required,oneof=Pass Fail Blocked Skipped"`
	ActualResult string          `json:"actual_result"`
	Comments     string          `json:"comments"`
}

type Registration struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role"`
}

// Activity is one mutation made through this frontend, kept locally so
// admins can see who did what from here.
type Activity struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id,omitempty"`
	Username   string    `json:"username"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   *int64    `json:"target_id,omitempty"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
