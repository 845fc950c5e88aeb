package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo with ent's SQL builder over database/sql.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

// runEventRow is the scan target for a "run_events" row.
type runEventRow struct {
	ID              int       `sql:"id"`
	Sequence        int64     `sql:"sequence"`
	Timestamp       time.Time `sql:"timestamp"`
	RunID           string    `sql:"run_id"`
	Action          string    `sql:"action"`
	ParticipantCode string    `sql:"participant_code"`
	ParticipantID   string    `sql:"participant_id"`
	ParticipantAge  int       `sql:"participant_age"`
	ParticipantSex  string    `sql:"participant_sex"`
	Config          string    `sql:"config"`
	Status          string    `sql:"status"`
	Trials          int       `sql:"trials"`
	TrainingTrials  int       `sql:"training_trials"`
	TrainingCorrect int       `sql:"training_correct"`
	Reversals       int       `sql:"reversals"`
	FinalValue      float64   `sql:"final_value"`
	DurationMs      int64     `sql:"duration_ms"`
}

func runEventColumns() []string {
	cols := make([]string, len(RunEventsColumns))
	for i, c := range RunEventsColumns {
		cols[i] = c.Name
	}
	return cols
}

func (r *eventRepo) AppendRunEvent(ctx context.Context, data RunEventData) error {
	if data.RunID == "" {
		return fmt.Errorf("append run event: empty run id")
	}
	if data.Action != RunActionStart && data.Action != RunActionEnd {
		return fmt.Errorf("append run event: unknown action %q", data.Action)
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(runEventsTable).
		Columns(
			"sequence", "timestamp", "run_id", "action",
			"participant_code", "participant_id", "participant_age", "participant_sex",
			"config", "status", "trials", "training_trials", "training_correct",
			"reversals", "final_value", "duration_ms",
		).
		Values(
			seqNum, time.Now().UTC(), data.RunID, data.Action,
			data.ParticipantCode, data.ParticipantID, data.ParticipantAge, data.ParticipantSex,
			data.Config, data.Status, data.Trials, data.TrainingTrials, data.TrainingCorrect,
			data.Reversals, data.FinalValue, data.DurationMs,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save run event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryRunSummaries(ctx context.Context, opts QueryOpts) ([]RunSummaryRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(runEventColumns()...).
		From(b.Table(runEventsTable)).
		Where(entsql.EQ("action", RunActionStart)).
		OrderBy(entsql.Desc("sequence"))
	applyQueryOpts(sel, opts)

	starts, err := r.selectRunEvents(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}

	records := make([]RunSummaryRecord, 0, len(starts))
	for _, start := range starts {
		end, err := r.endEvent(ctx, start.RunID)
		if err != nil {
			return nil, fmt.Errorf("query run summaries: %w", err)
		}
		records = append(records, buildRunSummary(start, end))
	}
	return records, nil
}

func (r *eventRepo) LatestRun(ctx context.Context) (*RunSummaryRecord, error) {
	runs, err := r.QueryRunSummaries(ctx, QueryOpts{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *eventRepo) QueryRun(ctx context.Context, runID string) (*RunSummaryRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(runEventColumns()...).
		From(b.Table(runEventsTable)).
		Where(entsql.And(
			entsql.EQ("run_id", runID),
			entsql.EQ("action", RunActionStart),
		)).
		Limit(1)

	starts, err := r.selectRunEvents(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	if len(starts) == 0 {
		return nil, nil
	}

	end, err := r.endEvent(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	rec := buildRunSummary(starts[0], end)
	return &rec, nil
}

// endEvent returns the end event of a run, or nil while the run is open.
func (r *eventRepo) endEvent(ctx context.Context, runID string) (*runEventRow, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(runEventColumns()...).
		From(b.Table(runEventsTable)).
		Where(entsql.And(
			entsql.EQ("run_id", runID),
			entsql.EQ("action", RunActionEnd),
		)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1)

	ends, err := r.selectRunEvents(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(ends) == 0 {
		return nil, nil
	}
	return &ends[0], nil
}

func (r *eventRepo) selectRunEvents(ctx context.Context, sel *entsql.Selector) ([]runEventRow, error) {
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []runEventRow
	if err := entsql.ScanSlice(rows, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func buildRunSummary(start runEventRow, end *runEventRow) RunSummaryRecord {
	rec := RunSummaryRecord{
		RunID:           start.RunID,
		StartedAt:       start.Timestamp,
		ParticipantCode: start.ParticipantCode,
		Config:          start.Config,
		Status:          "running",
	}
	if end != nil {
		rec.EndedAt = end.Timestamp
		rec.Status = end.Status
		rec.Trials = end.Trials
		rec.TrainingTrials = end.TrainingTrials
		rec.TrainingCorrect = end.TrainingCorrect
		rec.Reversals = end.Reversals
		rec.FinalValue = end.FinalValue
		rec.DurationMs = end.DurationMs
	}
	return rec
}

// applyQueryOpts adds the sequence, time and limit filters of opts to sel.
func applyQueryOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", opts.To.UTC()))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
}
