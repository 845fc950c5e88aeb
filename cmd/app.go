package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/stairwise/internal/app"
	"github.com/abhisek/stairwise/internal/screens/console"
	"github.com/abhisek/stairwise/internal/screens/home"
)

// runApp opens the store, loads the configuration, and launches the TUI at
// the home screen.
func runApp(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	eventRepo := st.EventRepo()
	env := console.Env{
		Config: cfg.Experiment(),
		Repo:   eventRepo,
		Logger: tuiLogger(cmd),
	}
	return app.Run(cmd.Context(), home.New(env, eventRepo, cfg.Participant))
}
