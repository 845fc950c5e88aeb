package experiment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/stairwise/internal/staircase"
	"github.com/abhisek/stairwise/internal/store"
)

// fakeRecorder keeps events in memory.
type fakeRecorder struct {
	mu     sync.Mutex
	runs   []store.RunEventData
	trials []store.TrialEventData
	err    error
}

func (f *fakeRecorder) AppendRunEvent(_ context.Context, data store.RunEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, data)
	return nil
}

func (f *fakeRecorder) AppendTrialEvent(_ context.Context, data store.TrialEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.trials = append(f.trials, data)
	return nil
}

// scriptResponder answers trials from a fixed list and fails when it runs out.
type scriptResponder struct {
	answers []bool
	seen    []Trial
	after   func(n int)
}

func (s *scriptResponder) Respond(_ context.Context, t Trial) (Response, error) {
	if len(s.seen) >= len(s.answers) {
		return Response{}, errors.New("script exhausted")
	}
	correct := s.answers[len(s.seen)]
	s.seen = append(s.seen, t)
	if s.after != nil {
		s.after(len(s.seen))
	}
	return Response{Correct: correct, Latency: 500 * time.Millisecond}, nil
}

func testParticipant() Participant {
	return Participant{ID: "P07", Age: 23, Sex: SexFemale}
}

func scenarioConfig() Config {
	return Config{
		Training: TrainingConfig{Levels: []float64{5, 6}, Reps: 2},
		Staircase: staircase.Config{
			NUp: 3, NDown: 1, MaxReversals: 2, StartValue: 10, Step: 1,
		},
	}
}

func newTestSession(t *testing.T, cfg Config, repo Recorder) *Session {
	t.Helper()
	s, err := NewSession("run-1", testParticipant(), cfg, repo, nil)
	require.NoError(t, err)
	return s
}

func TestParticipantCode(t *testing.T) {
	assert.Equal(t, "P07FEMALE23", testParticipant().Code())
}

func TestParticipantValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Participant
		wantErr bool
	}{
		{"valid", testParticipant(), false},
		{"empty id", Participant{ID: " ", Age: 20, Sex: SexMale}, true},
		{"negative age", Participant{ID: "a", Age: -1, Sex: SexMale}, true},
		{"too old", Participant{ID: "a", Age: 151, Sex: SexMale}, true},
		{"unknown sex", Participant{ID: "a", Age: 20, Sex: "X"}, true},
		{"other", Participant{ID: "a", Age: 0, Sex: SexOther}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseSex(t *testing.T) {
	for in, want := range map[string]Sex{
		"m": SexMale, "MALE": SexMale, " female ": SexFemale, "F": SexFemale, "other": SexOther,
	} {
		got, err := ParseSex(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSex("x")
	assert.Error(t, err)
}

func TestTrainingBlockOrder(t *testing.T) {
	cfg := Config{Training: TrainingConfig{Levels: []float64{16, 14, 12}, Reps: 2}}
	assert.Equal(t, []float64{16, 16, 14, 14, 12, 12}, cfg.TrainingBlock())

	cfg.Training.Reps = 0
	assert.Empty(t, cfg.TrainingBlock())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Training.Reps = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxTrials = -5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Staircase.Step = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, staircase.ErrConfiguration)
}

func TestNewSessionRejectsInvalidInput(t *testing.T) {
	_, err := NewSession("", Participant{}, DefaultConfig(), nil, nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Staircase.NUp = 0
	_, err = NewSession("", testParticipant(), cfg, nil, nil)
	assert.ErrorIs(t, err, staircase.ErrConfiguration)
}

func TestNewSessionGeneratesRunID(t *testing.T) {
	s, err := NewSession("", testParticipant(), DefaultConfig(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, s.RunID(), 36)
}

func TestRunnerScenario(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSession(t, scenarioConfig(), rec)

	responder := &scriptResponder{answers: []bool{
		true, false, true, true, // training
		true, true, true, false, true, true, true, // staircase
	}}
	var seen []TrialRecord
	runner := NewRunner(s, responder)
	runner.OnTrial = func(r TrialRecord) { seen = append(seen, r) }

	sum, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusFinished, sum.Status)
	assert.Equal(t, 11, sum.Trials)
	assert.Equal(t, 4, sum.TrainingTrials)
	assert.Equal(t, 75, sum.TrainingAccuracy)
	assert.Equal(t, 7, sum.StaircaseTrials)
	assert.Equal(t, 2, sum.Reversals)
	assert.Equal(t, 11.0, sum.FinalValue)
	assert.Equal(t, []float64{11, 10}, sum.ReversalValues)
	assert.Len(t, seen, 11)

	// Training block comes first, in level order.
	for i, want := range []struct {
		level     int
		intensity float64
	}{{1, 5}, {1, 5}, {2, 6}, {2, 6}} {
		tr := responder.seen[i]
		assert.Equal(t, i, tr.Index)
		assert.Equal(t, PhaseTraining, tr.Phase)
		assert.Equal(t, want.level, tr.TrainingLevel)
		assert.Equal(t, want.intensity, tr.Intensity)
	}
	// Staircase indices continue after training.
	assert.Equal(t, 4, responder.seen[4].Index)
	assert.Equal(t, PhaseStaircase, responder.seen[4].Phase)
	assert.Equal(t, 10.0, responder.seen[4].Intensity)
	assert.Equal(t, 11.0, responder.seen[7].Intensity)

	// Levels are recorded after the report.
	assert.Equal(t, 11.0, seen[6].Level)
	assert.False(t, seen[6].Reversal)
	assert.Equal(t, 10.0, seen[7].Level)
	assert.True(t, seen[7].Reversal)
	assert.Equal(t, 1, seen[7].Reversals)
	assert.True(t, seen[10].Reversal)
	assert.Equal(t, 2, seen[10].Reversals)

	require.Len(t, rec.runs, 2)
	start, end := rec.runs[0], rec.runs[1]
	assert.Equal(t, store.RunActionStart, start.Action)
	assert.Equal(t, "P07FEMALE23", start.ParticipantCode)
	assert.Contains(t, start.Config, `"n_up":3`)
	assert.Equal(t, store.RunActionEnd, end.Action)
	assert.Equal(t, "finished", end.Status)
	assert.Equal(t, 11, end.Trials)
	assert.Equal(t, 3, end.TrainingCorrect)
	assert.Equal(t, 2, end.Reversals)

	require.Len(t, rec.trials, 11)
	assert.Equal(t, "training", rec.trials[0].Phase)
	assert.Equal(t, int64(500), rec.trials[0].LatencyMs)
	assert.Equal(t, "staircase", rec.trials[10].Phase)
	assert.True(t, rec.trials[10].Reversal)

	_, err = s.NextTrial()
	assert.ErrorIs(t, err, ErrDone)
}

func TestRunnerAbortsOnCancel(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSession(t, scenarioConfig(), rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	responder := &scriptResponder{
		answers: []bool{true, true, true, true, true},
		after: func(n int) {
			if n == 2 {
				cancel()
			}
		},
	}

	sum, err := NewRunner(s, responder).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusAborted, sum.Status)
	assert.Equal(t, 2, sum.Trials)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, "aborted", rec.runs[1].Status)
}

func TestRunnerCapsStaircaseTrials(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Training.Reps = 0
	cfg.MaxTrials = 3
	cfg.Staircase.MaxReversals = 10
	s := newTestSession(t, cfg, nil)

	responder := &scriptResponder{answers: []bool{true, true, true, true, true}}
	sum, err := NewRunner(s, responder).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCapped, sum.Status)
	assert.Equal(t, 3, sum.StaircaseTrials)
	assert.Equal(t, 11.0, sum.FinalValue)
	assert.Len(t, responder.seen, 3)
}

func TestRunnerResponderErrorAborts(t *testing.T) {
	s := newTestSession(t, scenarioConfig(), nil)

	responder := &scriptResponder{answers: []bool{true}}
	sum, err := NewRunner(s, responder).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "respond to trial 1")
	assert.Equal(t, StatusAborted, sum.Status)
	assert.Equal(t, 1, sum.Trials)
}

func TestRunnerContinuesWhenTrialsCannotBeStored(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	s := newTestSession(t, scenarioConfig(), rec)

	responder := &scriptResponder{answers: []bool{
		true, false, true, true,
		true, true, true, false, true, true, true,
	}}
	sum, err := NewRunner(s, responder).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record trial 0: disk full")
	assert.Contains(t, err.Error(), "record trial 10: disk full")

	var perr *PersistError
	assert.ErrorAs(t, err, &perr)

	assert.Equal(t, StatusFinished, sum.Status)
	assert.Equal(t, 11, sum.Trials)
	assert.Empty(t, rec.trials)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, store.RunActionEnd, rec.runs[1].Action)
	assert.Equal(t, "finished", rec.runs[1].Status)
}

func TestRunnerStopsOnNonStorageRecordError(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSession(t, scenarioConfig(), rec)

	// A responder that records on the session itself leaves nothing pending
	// for the runner.
	responder := responderFunc(func(ctx context.Context, tr Trial) (Response, error) {
		_, err := s.Record(ctx, tr, Response{Correct: true})
		return Response{Correct: true}, err
	})
	sum, err := NewRunner(s, responder).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoPendingTrial)
	assert.Equal(t, StatusAborted, sum.Status)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, "aborted", rec.runs[1].Status)
}

type responderFunc func(ctx context.Context, t Trial) (Response, error)

func (f responderFunc) Respond(ctx context.Context, t Trial) (Response, error) {
	return f(ctx, t)
}

func TestSessionOrdering(t *testing.T) {
	s := newTestSession(t, scenarioConfig(), nil)
	ctx := context.Background()

	_, err := s.NextTrial()
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyStarted)

	first, err := s.NextTrial()
	require.NoError(t, err)
	again, err := s.NextTrial()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = s.Record(ctx, Trial{Index: 5}, Response{Correct: true})
	assert.ErrorIs(t, err, ErrNoPendingTrial)

	_, err = s.Record(ctx, first, Response{Correct: true})
	require.NoError(t, err)
	_, err = s.Record(ctx, first, Response{Correct: true})
	assert.ErrorIs(t, err, ErrNoPendingTrial)
}

func TestSessionTimeoutCountsAsIncorrect(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Training.Reps = 0
	s := newTestSession(t, cfg, nil)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	tr, err := s.NextTrial()
	require.NoError(t, err)

	resp := Timeout()
	resp.Correct = true
	rec, err := s.Record(ctx, tr, resp)
	require.NoError(t, err)

	assert.False(t, rec.Correct)
	assert.True(t, rec.TimedOut)
	assert.Equal(t, int64(-1), rec.LatencyMs())
	// 1-down: one incorrect answer steps down.
	assert.Equal(t, 9.0, rec.Level)
}

func TestSessionPersistFailureStillAdvances(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	s := newTestSession(t, scenarioConfig(), rec)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	tr, err := s.NextTrial()
	require.NoError(t, err)
	_, err = s.Record(ctx, tr, Response{Correct: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	next, err := s.NextTrial()
	require.NoError(t, err)
	assert.Equal(t, 1, next.Index)
	assert.Equal(t, 1, s.Summary().Trials)
}

func TestSessionAbort(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSession(t, scenarioConfig(), rec)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	_, err := s.NextTrial()
	require.NoError(t, err)

	require.NoError(t, s.Abort(ctx))
	assert.Equal(t, StatusAborted, s.Status())
	_, err = s.NextTrial()
	assert.ErrorIs(t, err, ErrDone)

	// A second abort writes nothing.
	require.NoError(t, s.Abort(ctx))
	assert.Len(t, rec.runs, 2)
}

func TestSummaryDuration(t *testing.T) {
	s := newTestSession(t, scenarioConfig(), nil)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	assert.Zero(t, s.Summary().Duration)

	require.NoError(t, s.Start(context.Background()))
	clock = clock.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, s.Summary().Duration)

	require.NoError(t, s.Abort(context.Background()))
	clock = clock.Add(time.Hour)
	assert.Equal(t, 90*time.Second, s.Summary().Duration)
}
