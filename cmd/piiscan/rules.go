package piiscan

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the active pattern rules and analyzer entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, _ := filepath.Abs(".")
			local, global, err := loadConfigs(cwd)
			if err != nil {
				return err
			}
			st, err := resolve(cmd, local, global)
			if err != nil {
				return err
			}
			log, err := newLogger(st, "warn", "console")
			if err != nil {
				return err
			}
			b, err := buildEngine(cmdContext(cmd), st, log)
			if err != nil {
				return err
			}
			defer b.Close()

			out := cmd.OutOrStdout()
			for _, label := range b.engine.Rules().Labels() {
				_, _ = fmt.Fprintln(out, label)
			}
			if b.http == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(cmdContext(cmd), 10*time.Second)
			defer cancel()
			ents, err := b.http.SupportedEntities(ctx, st.language)
			if err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "analyzer unavailable:", err)
				return nil
			}
			for _, e := range ents {
				_, _ = fmt.Fprintf(out, "%s (statistical)\n", e)
			}
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
