package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendTrialEvent(ctx context.Context, data TrialEventData) error {
	if data.RunID == "" {
		return fmt.Errorf("append trial event: empty run id")
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(trialEventsTable).
		Columns(
			"sequence", "timestamp", "run_id", "participant_code", "trial_index",
			"phase", "training_level", "intensity", "correct", "timed_out",
			"level", "reversal", "reversals", "latency_ms",
		).
		Values(
			seqNum, time.Now().UTC(), data.RunID, data.ParticipantCode, data.TrialIndex,
			data.Phase, data.TrainingLevel, data.Intensity, data.Correct, data.TimedOut,
			data.Level, data.Reversal, data.Reversals, data.LatencyMs,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save trial event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryTrials(ctx context.Context, runID string) ([]TrialRecord, error) {
	cols := make([]string, len(TrialEventsColumns))
	for i, c := range TrialEventsColumns {
		cols[i] = c.Name
	}

	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select(cols...).
		From(b.Table(trialEventsTable)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy(entsql.Asc("sequence")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var out []TrialRecord
	if err := entsql.ScanSlice(rows, &out); err != nil {
		return nil, fmt.Errorf("scan trials: %w", err)
	}
	return out, nil
}
