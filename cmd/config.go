package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/stairwise/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or check configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "stairwise.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := config.WriteDefault(path, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a configuration file",
	Long:  "Check a configuration file against the schema and the staircase rules. Without a path, the file named by --config or $" + config.EnvVar + " is checked.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if len(args) == 1 {
			path = args[0]
		}
		f, used, err := config.Resolve(path)
		if err != nil {
			return err
		}
		if used == "" {
			return fmt.Errorf("no config file given (pass a path, --config or set %s)", config.EnvVar)
		}

		sc := f.Staircase
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d training trials, %d-up/%d-down from %s by %s to %d reversals\n",
			used, len(f.Experiment().TrainingBlock()), sc.NUp, sc.NDown,
			formatValue(sc.StartValue), formatValue(sc.Step), sc.MaxReversals)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}
