package experiment

import (
	"errors"
	"time"
)

// Phase is the block a trial belongs to.
type Phase string

const (
	PhaseTraining  Phase = "training"
	PhaseStaircase Phase = "staircase"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished" // the staircase reached its reversal limit
	StatusAborted  Status = "aborted"
	StatusCapped   Status = "capped" // MaxTrials was reached first
)

// Ended reports whether s is a terminal status.
func (s Status) Ended() bool {
	return s == StatusFinished || s == StatusAborted || s == StatusCapped
}

var (
	// ErrDone is returned by NextTrial once the run has ended.
	ErrDone = errors.New("run is over")

	// ErrNotStarted is returned when a trial is requested before Start.
	ErrNotStarted = errors.New("run not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("run already started")

	// ErrNoPendingTrial is returned when Record does not match the trial
	// issued by NextTrial.
	ErrNoPendingTrial = errors.New("no matching pending trial")
)

// PersistError reports that a run or trial event could not be stored. The
// session state it describes has already advanced.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistError) Unwrap() error { return e.Err }

// isPersistError reports whether every error joined in err is a
// *PersistError.
func isPersistError(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !isPersistError(e) {
				return false
			}
		}
		return true
	}
	var pe *PersistError
	return errors.As(err, &pe)
}

// Trial is one presentation the operator or observer must respond to.
type Trial struct {
	Index         int     // 0-based, continuous across phases
	Phase         Phase
	TrainingLevel int     // 1-based training level, 0 in the staircase phase
	Intensity     float64 // value to present
}

// Response is the participant's answer to a trial.
type Response struct {
	Correct  bool
	Latency  time.Duration
	TimedOut bool
}

// Timeout returns the response recorded when no answer was given in time.
func Timeout() Response {
	return Response{TimedOut: true, Latency: -1}
}

// TrialRecord is a trial together with its response and the staircase
// position after the response was reported.
type TrialRecord struct {
	Trial
	Correct   bool
	TimedOut  bool
	Latency   time.Duration // -1 when timed out
	Level     float64       // staircase value after the report
	Reversal  bool
	Reversals int
}

// LatencyMs returns the latency in milliseconds, or -1 for a timeout.
func (r TrialRecord) LatencyMs() int64 {
	if r.TimedOut || r.Latency < 0 {
		return -1
	}
	return r.Latency.Milliseconds()
}
