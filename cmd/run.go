package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/stairwise/internal/app"
	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/screen"
	"github.com/abhisek/stairwise/internal/screens/console"
	"github.com/abhisek/stairwise/internal/screens/participant"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a run in the operator console",
	Long: "Start a run in the operator console. With --participant, --age and --sex the " +
		"console opens directly; otherwise the participant form is shown first, prefilled " +
		"from the flags and the config file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		p, complete, err := participantFromFlags(cmd, cfg.Participant)
		if err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		env := console.Env{
			Config: cfg.Experiment(),
			Repo:   st.EventRepo(),
			Logger: tuiLogger(cmd),
		}

		var initial screen.Screen
		if complete {
			c, err := env.NewRun(p)
			if err != nil {
				return fmt.Errorf("start run: %w", err)
			}
			initial = c
		} else {
			initial = participant.New(env, p)
		}
		return app.Run(cmd.Context(), initial)
	},
}

func init() {
	runCmd.Flags().String("participant", "", "Participant ID")
	runCmd.Flags().Int("age", 0, "Participant age in years")
	runCmd.Flags().String("sex", "", "Participant sex: male, female or other")
}

// participantFromFlags overlays the participant flags on defaults. It reports
// whether the result is a complete, valid participant.
func participantFromFlags(cmd *cobra.Command, defaults experiment.Participant) (experiment.Participant, bool, error) {
	p := defaults
	if id, _ := cmd.Flags().GetString("participant"); id != "" {
		p.ID = id
	}
	if cmd.Flags().Changed("age") {
		p.Age, _ = cmd.Flags().GetInt("age")
	}
	if s, _ := cmd.Flags().GetString("sex"); s != "" {
		sex, err := experiment.ParseSex(s)
		if err != nil {
			return p, false, err
		}
		p.Sex = sex
	}
	return p, p.Validate() == nil && (p.Age > 0 || cmd.Flags().Changed("age")), nil
}
