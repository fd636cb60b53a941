package piiscan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/governable/piiscan/internal/config"
)

var (
	cfgOutput string
	cfgForce  bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter .piiscan.yml",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", ".piiscan.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(cfgOutput); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
	}
	if err := os.WriteFile(cfgOutput, []byte(config.Starter), 0644); err != nil {
		return err
	}
	// the template must stay loadable
	if _, err := config.LoadFile(cfgOutput); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)
	return nil
}
