package experiment

import "time"

// Summary describes a run in progress or a finished run.
type Summary struct {
	RunID       string
	Participant Participant
	Status      Status

	Trials           int
	TrainingTrials   int
	TrainingAccuracy int // percent of correct training trials, truncated
	StaircaseTrials  int

	Reversals      int
	FinalValue     float64   // staircase value after the last report
	ReversalValues []float64 // intensities at which reversals happened

	Duration time.Duration
}

// Summary returns the current totals of the run.
func (s *Session) Summary() Summary {
	st := s.sc.State()

	var accuracy int
	if s.trainingTrials > 0 {
		accuracy = s.trainingCorrect * 100 / s.trainingTrials
	}

	var d time.Duration
	switch {
	case s.startedAt.IsZero():
	case s.endedAt.IsZero():
		d = s.now().Sub(s.startedAt)
	default:
		d = s.endedAt.Sub(s.startedAt)
	}

	reversals := make([]float64, len(s.reversalValues))
	copy(reversals, s.reversalValues)

	return Summary{
		RunID:            s.runID,
		Participant:      s.participant,
		Status:           s.status,
		Trials:           len(s.records),
		TrainingTrials:   s.trainingTrials,
		TrainingAccuracy: accuracy,
		StaircaseTrials:  s.staircaseTrials,
		Reversals:        st.Reversals,
		FinalValue:       st.Value,
		ReversalValues:   reversals,
		Duration:         d,
	}
}
