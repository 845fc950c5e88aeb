package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/stairwise/internal/staircase"
	"github.com/abhisek/stairwise/internal/store"
)

// Recorder persists run and trial events. store.EventRepo satisfies it.
type Recorder interface {
	AppendRunEvent(ctx context.Context, data store.RunEventData) error
	AppendTrialEvent(ctx context.Context, data store.TrialEventData) error
}

// Session is the step-wise driver of one run: a training block followed by
// a staircase block. It is not safe for concurrent use.
type Session struct {
	runID       string
	participant Participant
	cfg         Config
	repo        Recorder
	logger      *slog.Logger
	now         func() time.Time

	sc       *staircase.Staircase
	training []float64

	status  Status
	next    int
	pending *Trial

	startedAt time.Time
	endedAt   time.Time

	trainingCorrect int
	trainingTrials  int
	staircaseTrials int
	reversalValues  []float64
	records         []TrialRecord
}

// NewSession validates the participant and configuration and prepares a
// run. An empty runID is replaced by a new UUID. repo and logger may be nil.
func NewSession(runID string, p Participant, cfg Config, repo Recorder, logger *slog.Logger) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sc, err := staircase.New(cfg.Staircase)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		runID = uuid.New().String()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Session{
		runID:       runID,
		participant: p,
		cfg:         cfg,
		repo:        repo,
		logger:      logger.With("run", runID, "participant", p.Code()),
		now:         time.Now,
		sc:          sc,
		training:    cfg.TrainingBlock(),
		status:      StatusPending,
	}, nil
}

// RunID returns the run's identifier.
func (s *Session) RunID() string { return s.runID }

// Participant returns the participant of the run.
func (s *Session) Participant() Participant { return s.participant }

// Config returns the run configuration.
func (s *Session) Config() Config { return s.cfg }

// Status returns the current lifecycle status.
func (s *Session) Status() Status { return s.status }

// TrainingTrials returns the size of the training block.
func (s *Session) TrainingTrials() int { return len(s.training) }

// Staircase returns a read-only view of the staircase state.
func (s *Session) Staircase() staircase.State { return s.sc.State() }

// Records returns the trials recorded so far, oldest first.
func (s *Session) Records() []TrialRecord {
	out := make([]TrialRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Start marks the run as running and records the start event.
func (s *Session) Start(ctx context.Context) error {
	if s.status != StatusPending {
		return ErrAlreadyStarted
	}
	s.status = StatusRunning
	s.startedAt = s.now()

	s.logger.Info("run started",
		"training_trials", len(s.training),
		"n_up", s.cfg.Staircase.NUp,
		"n_down", s.cfg.Staircase.NDown,
		"max_reversals", s.cfg.Staircase.MaxReversals,
	)

	if s.repo == nil {
		return nil
	}
	cfgJSON, err := json.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	err = s.repo.AppendRunEvent(ctx, store.RunEventData{
		RunID:           s.runID,
		Action:          store.RunActionStart,
		ParticipantCode: s.participant.Code(),
		ParticipantID:   s.participant.ID,
		ParticipantAge:  s.participant.Age,
		ParticipantSex:  string(s.participant.Sex),
		Config:          string(cfgJSON),
	})
	if err != nil {
		return &PersistError{Op: "record run start", Err: err}
	}
	return nil
}

// NextTrial returns the trial to present. Calling it again before Record
// returns the same trial. It returns ErrDone once the run has ended.
func (s *Session) NextTrial() (Trial, error) {
	switch {
	case s.status == StatusPending:
		return Trial{}, ErrNotStarted
	case s.status.Ended():
		return Trial{}, ErrDone
	case s.pending != nil:
		return *s.pending, nil
	}

	var t Trial
	if s.next < len(s.training) {
		t = Trial{
			Index:         s.next,
			Phase:         PhaseTraining,
			TrainingLevel: s.next/s.cfg.Training.Reps + 1,
			Intensity:     s.training[s.next],
		}
	} else {
		v, err := s.sc.Next()
		if errors.Is(err, staircase.ErrFinished) {
			return Trial{}, ErrDone
		}
		if err != nil {
			return Trial{}, err
		}
		t = Trial{Index: s.next, Phase: PhaseStaircase, Intensity: v}
	}
	s.pending = &t
	return t, nil
}

// Record stores the response to the pending trial and advances the run.
// The session state advances even when persisting the trial fails; the
// persistence error is returned alongside the record.
func (s *Session) Record(ctx context.Context, t Trial, r Response) (TrialRecord, error) {
	if s.pending == nil || s.pending.Index != t.Index {
		return TrialRecord{}, ErrNoPendingTrial
	}
	t = *s.pending

	if r.TimedOut {
		r.Correct = false
		r.Latency = -1
	}

	rec := TrialRecord{
		Trial:    t,
		Correct:  r.Correct,
		TimedOut: r.TimedOut,
		Latency:  r.Latency,
	}

	switch t.Phase {
	case PhaseTraining:
		s.trainingTrials++
		if r.Correct {
			s.trainingCorrect++
		}
	case PhaseStaircase:
		if err := s.sc.ReportCorrect(r.Correct); err != nil {
			return TrialRecord{}, err
		}
		js := s.sc.JumpStatus()
		rec.Level = js.Value
		rec.Reversal = js.Reversal
		rec.Reversals = js.Reversals
		s.staircaseTrials++
		if js.Reversal {
			s.reversalValues = append(s.reversalValues, t.Intensity)
			s.logger.Info("reversal",
				"trial", t.Index,
				"intensity", t.Intensity,
				"reversals", js.Reversals,
				"direction", string(js.Direction),
			)
		}
	}

	s.records = append(s.records, rec)
	s.pending = nil
	s.next++

	s.logger.Debug("trial recorded",
		"trial", t.Index,
		"phase", string(t.Phase),
		"intensity", t.Intensity,
		"correct", rec.Correct,
		"timed_out", rec.TimedOut,
		"latency_ms", rec.LatencyMs(),
	)

	var errs []error
	if err := s.persistTrial(ctx, rec); err != nil {
		errs = append(errs, err)
	}

	switch {
	case s.sc.Finished():
		errs = append(errs, s.finish(ctx, StatusFinished))
	case t.Phase == PhaseStaircase && s.cfg.MaxTrials > 0 && s.staircaseTrials >= s.cfg.MaxTrials:
		errs = append(errs, s.finish(ctx, StatusCapped))
	}

	return rec, errors.Join(errs...)
}

// Abort ends a running run with status "aborted". It is a no-op once the run
// has ended.
func (s *Session) Abort(ctx context.Context) error {
	switch {
	case s.status == StatusPending:
		s.status = StatusAborted
		return nil
	case s.status.Ended():
		return nil
	}
	return s.finish(ctx, StatusAborted)
}

func (s *Session) finish(ctx context.Context, status Status) error {
	s.status = status
	s.pending = nil
	s.endedAt = s.now()

	sum := s.Summary()
	s.logger.Info("run ended",
		"status", string(status),
		"trials", sum.Trials,
		"reversals", sum.Reversals,
		"final_value", sum.FinalValue,
	)

	if s.repo == nil {
		return nil
	}
	err := s.repo.AppendRunEvent(ctx, store.RunEventData{
		RunID:           s.runID,
		Action:          store.RunActionEnd,
		ParticipantCode: s.participant.Code(),
		Status:          string(status),
		Trials:          sum.Trials,
		TrainingTrials:  sum.TrainingTrials,
		TrainingCorrect: s.trainingCorrect,
		Reversals:       sum.Reversals,
		FinalValue:      sum.FinalValue,
		DurationMs:      sum.Duration.Milliseconds(),
	})
	if err != nil {
		return &PersistError{Op: "record run end", Err: err}
	}
	return nil
}

func (s *Session) persistTrial(ctx context.Context, rec TrialRecord) error {
	if s.repo == nil {
		return nil
	}
	err := s.repo.AppendTrialEvent(ctx, store.TrialEventData{
		RunID:           s.runID,
		ParticipantCode: s.participant.Code(),
		TrialIndex:      rec.Index,
		Phase:           string(rec.Phase),
		TrainingLevel:   rec.TrainingLevel,
		Intensity:       rec.Intensity,
		Correct:         rec.Correct,
		TimedOut:        rec.TimedOut,
		Level:           rec.Level,
		Reversal:        rec.Reversal,
		Reversals:       rec.Reversals,
		LatencyMs:       rec.LatencyMs(),
	})
	if err != nil {
		s.logger.Warn("failed to persist trial", "trial", rec.Index, "err", err)
		return &PersistError{Op: fmt.Sprintf("record trial %d", rec.Index), Err: err}
	}
	return nil
}
