package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names shared by the repositories.
const (
	runEventsTable   = "run_events"
	trialEventsTable = "trial_events"
)

var (
	// RunEventsColumns holds the columns for the "run_events" table.
	RunEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true, Comment: "Monotonically increasing global sequence number"},
		{Name: "timestamp", Type: field.TypeTime, Comment: "UTC wall-clock time of the event"},
		{Name: "run_id", Type: field.TypeString, Comment: "UUID grouping events of one run"},
		{Name: "action", Type: field.TypeString, Comment: "start or end"},
		{Name: "participant_code", Type: field.TypeString, Default: ""},
		{Name: "participant_id", Type: field.TypeString, Default: ""},
		{Name: "participant_age", Type: field.TypeInt, Default: 0},
		{Name: "participant_sex", Type: field.TypeString, Default: ""},
		{Name: "config", Type: field.TypeString, Default: "", Comment: "Experiment configuration as JSON (on start only)"},
		{Name: "status", Type: field.TypeString, Default: "", Comment: "finished, aborted or capped (on end only)"},
		{Name: "trials", Type: field.TypeInt, Default: 0},
		{Name: "training_trials", Type: field.TypeInt, Default: 0},
		{Name: "training_correct", Type: field.TypeInt, Default: 0},
		{Name: "reversals", Type: field.TypeInt, Default: 0},
		{Name: "final_value", Type: field.TypeFloat64, Default: 0},
		{Name: "duration_ms", Type: field.TypeInt64, Default: 0},
	}
	// RunEventsTable holds the schema information for the "run_events" table.
	RunEventsTable = &schema.Table{
		Name:       runEventsTable,
		Columns:    RunEventsColumns,
		PrimaryKey: []*schema.Column{RunEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "runevent_sequence", Unique: false, Columns: []*schema.Column{RunEventsColumns[1]}},
			{Name: "runevent_timestamp", Unique: false, Columns: []*schema.Column{RunEventsColumns[2]}},
			{Name: "runevent_run_id", Unique: false, Columns: []*schema.Column{RunEventsColumns[3]}},
			{Name: "runevent_action", Unique: false, Columns: []*schema.Column{RunEventsColumns[4]}},
		},
	}

	// TrialEventsColumns holds the columns for the "trial_events" table.
	TrialEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "run_id", Type: field.TypeString},
		{Name: "participant_code", Type: field.TypeString, Default: ""},
		{Name: "trial_index", Type: field.TypeInt},
		{Name: "phase", Type: field.TypeString, Comment: "training or staircase"},
		{Name: "training_level", Type: field.TypeInt, Default: 0, Comment: "1-based training block, 0 for staircase trials"},
		{Name: "intensity", Type: field.TypeFloat64, Comment: "Value presented on the trial"},
		{Name: "correct", Type: field.TypeBool},
		{Name: "timed_out", Type: field.TypeBool, Default: false},
		{Name: "level", Type: field.TypeFloat64, Default: 0, Comment: "Staircase value after the report"},
		{Name: "reversal", Type: field.TypeBool, Default: false},
		{Name: "reversals", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: -1},
	}
	// TrialEventsTable holds the schema information for the "trial_events" table.
	TrialEventsTable = &schema.Table{
		Name:       trialEventsTable,
		Columns:    TrialEventsColumns,
		PrimaryKey: []*schema.Column{TrialEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "trialevent_sequence", Unique: false, Columns: []*schema.Column{TrialEventsColumns[1]}},
			{Name: "trialevent_run_id", Unique: false, Columns: []*schema.Column{TrialEventsColumns[3]}},
			{Name: "trialevent_phase", Unique: false, Columns: []*schema.Column{TrialEventsColumns[6]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		RunEventsTable,
		TrialEventsTable,
	}
)
