package experiment

import (
	"context"
	"errors"
	"fmt"
)

// Responder presents a trial and returns the participant's response.
type Responder interface {
	Respond(ctx context.Context, t Trial) (Response, error)
}

// Runner drives a Session to completion with a Responder.
type Runner struct {
	session   *Session
	responder Responder

	// OnTrial, if set, is called after every recorded trial.
	OnTrial func(TrialRecord)
}

// NewRunner creates a Runner for s answered by r.
func NewRunner(s *Session, r Responder) *Runner {
	return &Runner{session: s, responder: r}
}

// Run starts the session if needed and presents trials until the run ends.
// Cancelling ctx aborts the run between trials; the summary is returned
// together with the context error. Events that could not be stored do not
// stop the run; their errors are joined into the returned error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	s := r.session
	var persistErrs []error
	if s.Status() == StatusPending {
		if err := s.Start(ctx); err != nil {
			if !isPersistError(err) {
				return r.abort(ctx, err)
			}
			persistErrs = append(persistErrs, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, errors.Join(append(persistErrs, err)...))
		}

		t, err := s.NextTrial()
		if errors.Is(err, ErrDone) {
			return s.Summary(), errors.Join(persistErrs...)
		}
		if err != nil {
			return r.abort(ctx, errors.Join(append(persistErrs, err)...))
		}

		resp, err := r.responder.Respond(ctx, t)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			} else {
				err = fmt.Errorf("respond to trial %d: %w", t.Index, err)
			}
			return r.abort(ctx, errors.Join(append(persistErrs, err)...))
		}

		rec, err := s.Record(ctx, t, resp)
		if err != nil {
			if !isPersistError(err) {
				return r.abort(ctx, errors.Join(append(persistErrs, err)...))
			}
			persistErrs = append(persistErrs, err)
		}
		if r.OnTrial != nil {
			r.OnTrial(rec)
		}
	}
}

func (r *Runner) abort(ctx context.Context, cause error) (Summary, error) {
	// The end event is written even though ctx may already be cancelled.
	if err := r.session.Abort(context.WithoutCancel(ctx)); err != nil {
		cause = errors.Join(cause, err)
	}
	return r.session.Summary(), cause
}
