package experiment

import (
	"fmt"

	"github.com/abhisek/stairwise/internal/staircase"
)

// TrainingConfig describes the fixed-intensity training block that precedes
// the staircase.
type TrainingConfig struct {
	// Levels are the training intensities, presented in order.
	Levels []float64 `json:"levels" yaml:"levels"`

	// Reps is how many times each level is presented.
	Reps int `json:"reps" yaml:"reps"`
}

// Config holds the parameters of one run.
type Config struct {
	Training  TrainingConfig   `json:"training" yaml:"training"`
	Staircase staircase.Config `json:"staircase" yaml:"staircase"`

	// MaxTrials caps the number of staircase trials. 0 means unlimited.
	MaxTrials int `json:"max_trials" yaml:"max_trials"`
}

// DefaultConfig returns four training levels of three trials each followed
// by the default 3-up/1-down staircase.
func DefaultConfig() Config {
	return Config{
		Training: TrainingConfig{
			Levels: []float64{16, 14, 12, 10},
			Reps:   3,
		},
		Staircase: staircase.DefaultConfig(),
		MaxTrials: 200,
	}
}

// Validate checks the training block, the trial cap and the staircase.
func (c Config) Validate() error {
	if c.Training.Reps < 0 {
		return fmt.Errorf("training reps must not be negative, got %d", c.Training.Reps)
	}
	if c.MaxTrials < 0 {
		return fmt.Errorf("max trials must not be negative, got %d", c.MaxTrials)
	}
	if err := c.Staircase.Validate(); err != nil {
		return fmt.Errorf("staircase: %w", err)
	}
	return nil
}

// TrainingBlock expands the training configuration into the ordered list of
// intensities: every level repeated Reps times.
func (c Config) TrainingBlock() []float64 {
	block := make([]float64, 0, len(c.Training.Levels)*max(c.Training.Reps, 0))
	for _, level := range c.Training.Levels {
		for range c.Training.Reps {
			block = append(block, level)
		}
	}
	return block
}
