package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/observer"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a session against a simulated observer",
	Long: "Run a complete session headlessly against a simulated observer with a logistic " +
		"psychometric function and print the summary. Flags override the observer block " +
		"of the config file.\n\n" +
		"With --script the answers are replayed from a list instead, e.g. " +
		"--script y,n,y,-,y where - marks a timeout. The run aborts if the list runs out.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		obsCfg, err := observerFromFlags(cmd, cfg.Observer)
		if err != nil {
			return err
		}

		var (
			obs      experiment.Responder
			scripted *observer.Scripted
			label    = fmt.Sprintf("threshold %s, %s", formatValue(obsCfg.Threshold), obsCfg.Polarity)
		)
		if script, _ := cmd.Flags().GetString("script"); script != "" {
			answers, err := observer.ParseScript(script)
			if err != nil {
				return fmt.Errorf("--script: %w", err)
			}
			scripted = observer.NewScripted(answers...)
			obs = scripted
			label = fmt.Sprintf("scripted, %d answers", len(answers))
		} else {
			sim, err := observer.NewSimulated(obsCfg)
			if err != nil {
				return err
			}
			obs = sim
		}

		p := cfg.Participant
		if p.ID == "" {
			p = experiment.Participant{ID: "SIM", Sex: experiment.SexOther}
		}

		var repo experiment.Recorder
		if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			repo = st.EventRepo()
		}

		sess, err := experiment.NewSession("", p, cfg.Experiment(), repo, slog.Default())
		if err != nil {
			return err
		}

		runner := experiment.NewRunner(sess, obs)
		if verbose, _ := cmd.Flags().GetBool("trials"); verbose {
			out := cmd.OutOrStdout()
			runner.OnTrial = func(rec experiment.TrialRecord) {
				printTrialRecord(out, rec)
			}
		}

		sum, err := runner.Run(cmd.Context())
		printSummary(cmd.OutOrStdout(), sum, label)
		if scripted != nil && scripted.Remaining() > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Unused answers:    %d\n", scripted.Remaining())
		}
		return err
	},
}

func init() {
	simulateCmd.Flags().Float64("threshold", 0, "Observer threshold intensity")
	simulateCmd.Flags().Float64("spread", 0, "Logistic spread of the psychometric function")
	simulateCmd.Flags().Float64("guess", 0, "Guess rate (lower asymptote)")
	simulateCmd.Flags().Float64("lapse", 0, "Lapse rate (1 - upper asymptote)")
	simulateCmd.Flags().Uint64("seed", 0, "Random seed")
	simulateCmd.Flags().String("polarity", "", "Whether higher values are easier or harder")
	simulateCmd.Flags().Bool("no-store", false, "Do not record the run in the database")
	simulateCmd.Flags().Bool("trials", false, "Print every trial as it is recorded")
	simulateCmd.Flags().String("script", "", "Replay these answers (y, n or - for timeout) instead of simulating")
}

// observerFromFlags overlays the flags the user set on base.
func observerFromFlags(cmd *cobra.Command, base observer.SimulatedConfig) (observer.SimulatedConfig, error) {
	c := base
	f := cmd.Flags()
	if f.Changed("threshold") {
		c.Threshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("spread") {
		c.Spread, _ = f.GetFloat64("spread")
	}
	if f.Changed("guess") {
		c.Guess, _ = f.GetFloat64("guess")
	}
	if f.Changed("lapse") {
		c.Lapse, _ = f.GetFloat64("lapse")
	}
	if f.Changed("seed") {
		c.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("polarity") {
		s, _ := f.GetString("polarity")
		pol, err := observer.ParsePolarity(s)
		if err != nil {
			return c, err
		}
		c.Polarity = pol
	}
	return c, c.Validate()
}

func printTrialRecord(w io.Writer, rec experiment.TrialRecord) {
	outcome := "✗"
	switch {
	case rec.TimedOut:
		outcome = "–"
	case rec.Correct:
		outcome = "✓"
	}
	rev := ""
	if rec.Reversal {
		rev = fmt.Sprintf("  reversal %d", rec.Reversals)
	}
	fmt.Fprintf(w, "%4d  %-9s  %8s  %s  → %s%s\n",
		rec.Trial.Index, rec.Trial.Phase, formatValue(rec.Trial.Intensity), outcome, formatValue(rec.Level), rev)
}

func printSummary(w io.Writer, sum experiment.Summary, observerLabel string) {
	vals := make([]string, len(sum.ReversalValues))
	for i, v := range sum.ReversalValues {
		vals[i] = formatValue(v)
	}

	fmt.Fprintf(w, "Run:               %s\n", sum.RunID)
	fmt.Fprintf(w, "Participant:       %s\n", sum.Participant.Code())
	fmt.Fprintf(w, "Status:            %s\n", sum.Status)
	fmt.Fprintf(w, "Trials:            %d (%d training, %d staircase)\n", sum.Trials, sum.TrainingTrials, sum.StaircaseTrials)
	fmt.Fprintf(w, "Training accuracy: %d%%\n", sum.TrainingAccuracy)
	fmt.Fprintf(w, "Reversals:         %d\n", sum.Reversals)
	fmt.Fprintf(w, "Reversal values:   %s\n", strings.Join(vals, " "))
	fmt.Fprintf(w, "Final value:       %s\n", formatValue(sum.FinalValue))
	fmt.Fprintf(w, "Observer:          %s\n", observerLabel)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
