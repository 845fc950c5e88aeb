package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/stairwise/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		participant, _ := cmd.Flags().GetString("participant")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.EventRepo().QueryRunSummaries(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query runs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs found.")
			return nil
		}

		// Header.
		fmt.Fprintf(out, "%-36s  %-19s  %-16s  %-9s  %-6s  %-4s  %s\n",
			"Run", "Started", "Participant", "Status", "Trials", "Rev", "Final")
		fmt.Fprintln(out, strings.Repeat("─", 110))

		for _, r := range runs {
			if participant != "" && !strings.HasPrefix(r.ParticipantCode, participant) {
				continue
			}
			fmt.Fprintf(out, "%-36s  %-19s  %-16s  %-9s  %-6d  %-4d  %s\n",
				r.RunID,
				r.StartedAt.Local().Format(timeLayout),
				r.ParticipantCode,
				r.Status,
				r.Trials,
				r.Reversals,
				formatValue(r.FinalValue),
			)
		}
		return nil
	},
}

var runsViewCmd = &cobra.Command{
	Use:   "view <run-id>",
	Short: "View a run and its trials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		repo := s.EventRepo()
		r, err := repo.QueryRun(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		if r == nil {
			return fmt.Errorf("run %s not found", args[0])
		}
		trials, err := repo.QueryTrials(ctx, r.RunID)
		if err != nil {
			return fmt.Errorf("query trials: %w", err)
		}

		out := cmd.OutOrStdout()
		sep := strings.Repeat("─", 72)

		fmt.Fprintf(out, "Run:          %s\n", r.RunID)
		fmt.Fprintf(out, "Participant:  %s\n", r.ParticipantCode)
		fmt.Fprintf(out, "Started:      %s\n", r.StartedAt.Local().Format(timeLayout))
		if !r.EndedAt.IsZero() {
			fmt.Fprintf(out, "Ended:        %s (%s)\n", r.EndedAt.Local().Format(timeLayout),
				(time.Duration(r.DurationMs) * time.Millisecond).Round(time.Second))
		}
		fmt.Fprintf(out, "Status:       %s\n", r.Status)
		fmt.Fprintf(out, "Trials:       %d (%d training, %d correct)\n", r.Trials, r.TrainingTrials, r.TrainingCorrect)
		fmt.Fprintf(out, "Reversals:    %d\n", r.Reversals)
		fmt.Fprintf(out, "Final value:  %s\n", formatValue(r.FinalValue))
		if r.Config != "" {
			fmt.Fprintf(out, "Config:       %s\n", r.Config)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, sep)
		fmt.Fprintf(out, "%-5s  %-9s  %-5s  %-9s  %-8s  %-9s  %-8s  %s\n",
			"#", "Phase", "Level", "Intensity", "Outcome", "Latency", "Next", "Reversal")
		fmt.Fprintln(out, sep)
		if len(trials) == 0 {
			fmt.Fprintln(out, "(no trials)")
			return nil
		}
		for _, t := range trials {
			fmt.Fprintln(out, trialRow(t))
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "Max number of runs to show")
	runsListCmd.Flags().String("participant", "", "Only show runs whose participant code starts with this")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsViewCmd)
}

// trialRow formats one stored trial for runs view.
func trialRow(t store.TrialRecord) string {
	level := "-"
	if t.TrainingLevel > 0 {
		level = fmt.Sprintf("%d", t.TrainingLevel)
	}
	outcome := "✗"
	switch {
	case t.TimedOut:
		outcome = "timeout"
	case t.Correct:
		outcome = "✓"
	}
	latency := "-"
	if t.LatencyMs >= 0 {
		latency = fmt.Sprintf("%dms", t.LatencyMs)
	}
	next, rev := "-", ""
	if t.Phase == "staircase" {
		next = formatValue(t.Level)
		if t.Reversal {
			rev = fmt.Sprintf("%d", t.Reversals)
		}
	}
	return fmt.Sprintf("%-5d  %-9s  %-5s  %-9s  %-8s  %-9s  %-8s  %s",
		t.TrialIndex, t.Phase, level, formatValue(t.Intensity), outcome, latency, next, rev)
}
