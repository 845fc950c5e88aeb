package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// Run lifecycle actions.
const (
	RunActionStart = "start"
	RunActionEnd   = "end"
)

// RunEventData captures a run lifecycle event. Participant and Config are
// set on start; the outcome fields are set on end.
type RunEventData struct {
	RunID           string
	Action          string
	ParticipantCode string
	ParticipantID   string
	ParticipantAge  int
	ParticipantSex  string
	Config          string // JSON
	Status          string
	Trials          int
	TrainingTrials  int
	TrainingCorrect int
	Reversals       int
	FinalValue      float64
	DurationMs      int64
}

// TrialEventData captures a single presented trial and its outcome.
type TrialEventData struct {
	RunID           string  `sql:"run_id"`
	ParticipantCode string  `sql:"participant_code"`
	TrialIndex      int     `sql:"trial_index"`
	Phase           string  `sql:"phase"`
	TrainingLevel   int     `sql:"training_level"`
	Intensity       float64 `sql:"intensity"`
	Correct         bool    `sql:"correct"`
	TimedOut        bool    `sql:"timed_out"`
	Level           float64 `sql:"level"`
	Reversal        bool    `sql:"reversal"`
	Reversals       int     `sql:"reversals"`
	LatencyMs       int64   `sql:"latency_ms"`
}

// TrialRecord is a stored trial event.
type TrialRecord struct {
	ID        int       `sql:"id"`
	Sequence  int64     `sql:"sequence"`
	Timestamp time.Time `sql:"timestamp"`
	TrialEventData
}

// RunSummaryRecord joins the start and end events of a run.
// Runs without an end event have Status "running".
type RunSummaryRecord struct {
	RunID           string
	StartedAt       time.Time
	EndedAt         time.Time
	ParticipantCode string
	Config          string
	Status          string
	Trials          int
	TrainingTrials  int
	TrainingCorrect int
	Reversals       int
	FinalValue      float64
	DurationMs      int64
}

// EventRepo provides append and query access to run and trial events.
type EventRepo interface {
	// AppendRunEvent records a run start or end event.
	AppendRunEvent(ctx context.Context, data RunEventData) error

	// AppendTrialEvent records one trial.
	AppendTrialEvent(ctx context.Context, data TrialEventData) error

	// QueryRunSummaries returns runs newest first.
	QueryRunSummaries(ctx context.Context, opts QueryOpts) ([]RunSummaryRecord, error)

	// LatestRun returns the most recently started run, or nil if there is none.
	LatestRun(ctx context.Context) (*RunSummaryRecord, error)

	// QueryRun returns the summary of a single run, or nil if it does not exist.
	QueryRun(ctx context.Context, runID string) (*RunSummaryRecord, error)

	// QueryTrials returns the trials of a run in presentation order.
	QueryTrials(ctx context.Context, runID string) ([]TrialRecord, error)
}
