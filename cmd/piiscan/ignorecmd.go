package piiscan

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/governable/piiscan/internal/ignore"
)

var flagIgnoreDefaults bool

func init() {
	cmd := &cobra.Command{
		Use:   "ignore [patterns...]",
		Short: "Add patterns to the scan root's " + ignore.FileName,
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if flagIgnoreDefaults {
				patterns = append(patterns, ignore.DefaultDataIgnores()...)
			}
			if len(patterns) == 0 {
				return errors.New("no patterns given")
			}
			root, err := filepath.Abs(flagPath)
			if err != nil {
				return err
			}
			for _, p := range patterns {
				if err := ignore.Append(root, p); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", filepath.Join(root, ignore.FileName))
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "scan root holding the ignore file")
	cmd.Flags().BoolVar(&flagIgnoreDefaults, "defaults", false, "also add the built-in generated-data patterns")
}
