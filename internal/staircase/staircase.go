// Package staircase implements an adaptive N-up/N-down staircase.
//
// A Staircase is driven by a single trial-runner in a strict request/report
// loop: Next issues the intensity to present, Report feeds back whether the
// participant answered correctly. After NUp consecutive correct answers the
// value rises by Step; after NDown consecutive incorrect answers it falls by
// Step. A change of step direction is a reversal, and the procedure finishes
// once MaxReversals reversals have been observed.
//
// A Staircase has a single owner and is not safe for concurrent use.
package staircase

import "strings"

// Staircase is an N-up/N-down tracking controller.
type Staircase struct {
	cfg Config

	value         float64
	correctRun    int
	incorrectRun  int
	lastDirection Direction
	reversals     int
	awaiting      bool
	issued        bool
	phase         Phase

	last JumpStatus
}

// New validates cfg and returns a running staircase positioned at cfg.StartValue.
// An invalid configuration is rejected wholesale with a *ConfigError.
func New(cfg Config) (*Staircase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Staircase{
		cfg:           cfg,
		value:         cfg.StartValue,
		lastDirection: DirectionNone,
		phase:         PhaseRunning,
		last: JumpStatus{
			Value:     cfg.StartValue,
			Direction: DirectionNone,
		},
	}, nil
}

// Config returns the configuration the staircase was built with.
func (s *Staircase) Config() Config {
	return s.cfg
}

// Next returns the intensity to present on the next trial and marks the
// staircase as awaiting feedback. It never changes the value.
//
// Once the staircase has finished, Next returns ErrFinished on every call.
// Calling Next again before reporting an outcome returns a *SequenceError.
func (s *Staircase) Next() (float64, error) {
	if s.phase == PhaseFinished {
		return 0, ErrFinished
	}
	if s.awaiting {
		return 0, &SequenceError{Op: "next", Reason: "previous value has no reported outcome"}
	}
	s.awaiting = true
	s.issued = true
	return s.value, nil
}

// Report records the outcome of the trial presented at the last issued value.
//
// Reporting twice without an intervening Next is allowed and counts twice
// toward the active run. Reporting before any value was issued, or after the
// staircase finished, returns a *SequenceError. An outcome other than
// Correct or Incorrect returns an *ArgumentError. State is left untouched on
// error.
func (s *Staircase) Report(o Outcome) error {
	if !o.Valid() {
		return &ArgumentError{Arg: "outcome", Value: o}
	}
	if s.phase == PhaseFinished {
		return &SequenceError{Op: "report", Reason: "staircase already finished"}
	}
	if !s.issued {
		return &SequenceError{Op: "report", Reason: "no value has been issued"}
	}

	if o == Correct {
		s.correctRun++
		s.incorrectRun = 0
	} else {
		s.incorrectRun++
		s.correctRun = 0
	}

	status := JumpStatus{Direction: DirectionNone}
	if dir := s.direction(); dir != DirectionNone {
		status.Stepped = true
		status.Direction = dir
		if dir == DirectionUp {
			s.value += s.cfg.Step
		} else {
			s.value -= s.cfg.Step
		}
		s.correctRun = 0
		s.incorrectRun = 0

		switch {
		case s.lastDirection == DirectionNone:
			s.lastDirection = dir
		case dir != s.lastDirection:
			s.reversals++
			s.lastDirection = dir
			status.Reversal = true
		}
	}
	s.awaiting = false

	status.Value = s.value
	status.Reversals = s.reversals
	s.last = status

	if s.reversals >= s.cfg.MaxReversals {
		s.phase = PhaseFinished
	}
	return nil
}

// ReportCorrect is Report for a boolean correctness flag.
func (s *Staircase) ReportCorrect(correct bool) error {
	return s.Report(OutcomeOf(correct))
}

// direction returns the step triggered by the current run counters.
// The counters are mutually exclusive, so at most one threshold can be met.
func (s *Staircase) direction() Direction {
	if s.correctRun > 0 && s.incorrectRun > 0 {
		panic("staircase: correct and incorrect runs both nonzero")
	}
	switch {
	case s.correctRun == s.cfg.NUp:
		return DirectionUp
	case s.incorrectRun == s.cfg.NDown:
		return DirectionDown
	}
	return DirectionNone
}

// JumpStatus returns the position after the most recent report.
// Before the first report it holds the start value and no step.
func (s *Staircase) JumpStatus() JumpStatus {
	return s.last
}

// State returns a copy of the controller state.
func (s *Staircase) State() State {
	return State{
		Value:            s.value,
		CorrectRun:       s.correctRun,
		IncorrectRun:     s.incorrectRun,
		LastDirection:    s.lastDirection,
		Reversals:        s.reversals,
		AwaitingFeedback: s.awaiting,
		Phase:            s.phase,
	}
}

// Finished reports whether MaxReversals reversals have been reached.
func (s *Staircase) Finished() bool {
	return s.phase == PhaseFinished
}

// Reversals returns the number of reversals observed so far.
func (s *Staircase) Reversals() int {
	return s.reversals
}

// ParseOutcome converts operator input into an Outcome.
// Accepted forms are y/yes/t/true/1/correct/c and n/no/f/false/0/incorrect/x,
// case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "t", "true", "1", "correct", "c":
		return Correct, nil
	case "n", "no", "f", "false", "0", "incorrect", "x":
		return Incorrect, nil
	}
	return 0, &ArgumentError{Arg: "outcome", Value: s}
}
