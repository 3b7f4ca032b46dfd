package stores

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a check run does not exist.
var ErrRunNotFound = errors.New("check run not found")

// RunStatus represents the status of a check run
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	// RunStatusPassed means the run finished without error-severity findings.
	RunStatusPassed RunStatus = "passed"
	// RunStatusFailed means the run finished with error-severity findings.
	RunStatusFailed RunStatus = "failed"
	// RunStatusErrored means the run itself could not complete.
	RunStatusErrored RunStatus = "errored"
)

// CheckRun is one invocation of the checker.
type CheckRun struct {
	ID         string     `json:"id"`
	Paths      []string   `json:"paths"`
	Status     RunStatus  `json:"status"`
	Files      int        `json:"files"`
	Findings   int        `json:"findings"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finding is a persisted checker finding.
type Finding struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndColumn int    `json:"end_column"`
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Source    string `json:"source,omitempty"`
}

// FindingFilter narrows ListFindings. Nil fields match everything.
type FindingFilter struct {
	Severity *string
	Code     *string
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// Run operations
	CreateRun(ctx context.Context, run *CheckRun) error
	GetRun(ctx context.Context, id string) (*CheckRun, error)
	FinishRun(ctx context.Context, id string, status RunStatus, files, findings int, errMsg *string) error
	ListRuns(ctx context.Context, limit, offset int) ([]*CheckRun, error)
	DeleteRun(ctx context.Context, id string) error
	PruneRuns(ctx context.Context, keep int) (int64, error)

	// Finding operations
	AddFindings(ctx context.Context, runID string, findings []Finding) error
	ListFindings(ctx context.Context, runID string, filter FindingFilter) ([]*Finding, error)

	// Utility
	HealthCheck(ctx context.Context) error
}

var _ Store = (*SQLiteStore)(nil)
