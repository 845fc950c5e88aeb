package staircase

import "fmt"

// Direction is the direction of a staircase step.
type Direction string

const (
	DirectionNone Direction = "none"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Phase is the termination state of a staircase.
type Phase string

const (
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
)

// Outcome is the correctness of a single trial response.
// The zero value is not a valid outcome.
type Outcome int

const (
	Correct Outcome = iota + 1
	Incorrect
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Valid reports whether o is Correct or Incorrect.
func (o Outcome) Valid() bool {
	return o == Correct || o == Incorrect
}

// OutcomeOf converts a correctness flag into an Outcome.
func OutcomeOf(correct bool) Outcome {
	if correct {
		return Correct
	}
	return Incorrect
}

// Config is the immutable configuration of an N-up/N-down staircase.
type Config struct {
	// NUp is the number of consecutive correct responses before an upward step.
	NUp int `json:"n_up" yaml:"n_up"`

	// NDown is the number of consecutive incorrect responses before a downward step.
	NDown int `json:"n_down" yaml:"n_down"`

	// MaxReversals is the number of direction reversals that ends the procedure.
	MaxReversals int `json:"max_reversals" yaml:"max_reversals"`

	// StartValue is the initial stimulus intensity.
	StartValue float64 `json:"start_value" yaml:"start_value"`

	// Step is the magnitude of every up/down adjustment.
	Step float64 `json:"step" yaml:"step"`
}

// DefaultConfig returns the classic 3-up/1-down configuration.
func DefaultConfig() Config {
	return Config{
		NUp:          3,
		NDown:        1,
		MaxReversals: 8,
		StartValue:   10,
		Step:         1,
	}
}

// Validate checks that every count and the step are strictly positive.
// It returns a *ConfigError for the first offending field.
func (c Config) Validate() error {
	switch {
	case c.NUp <= 0:
		return &ConfigError{Field: "n_up", Value: c.NUp}
	case c.NDown <= 0:
		return &ConfigError{Field: "n_down", Value: c.NDown}
	case c.MaxReversals <= 0:
		return &ConfigError{Field: "max_reversals", Value: c.MaxReversals}
	case !(c.Step > 0):
		return &ConfigError{Field: "step", Value: c.Step}
	}
	return nil
}

// State is a read-only copy of the controller's internal state.
type State struct {
	Value            float64
	CorrectRun       int
	IncorrectRun     int
	LastDirection    Direction
	Reversals        int
	AwaitingFeedback bool
	Phase            Phase
}

// JumpStatus describes the staircase position after the most recent report.
// It is what a trial-runner logs alongside each trial.
type JumpStatus struct {
	Value     float64
	Reversal  bool      // the last report caused a reversal
	Reversals int       // total reversals so far
	Stepped   bool      // the last report changed the value
	Direction Direction // direction of the last step, DirectionNone if it did not step
}
