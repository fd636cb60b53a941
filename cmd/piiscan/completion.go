package piiscan

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/governable/piiscan/internal/rules"
)

var completionShells = map[string]func(io.Writer) error{
	"bash":       rootCmd.GenBashCompletion,
	"zsh":        rootCmd.GenZshCompletion,
	"fish":       func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
	"powershell": rootCmd.GenPowerShellCompletionWithDesc,
}

func init() {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := completionShells[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
			return gen(cmd.OutOrStdout())
		},
		Example: `  piiscan completion bash > /etc/bash_completion.d/piiscan
  piiscan completion zsh > "${fpath[1]}/_piiscan"`,
	}
	rootCmd.AddCommand(cmd)
}

// registerFlagCompletions runs after the persistent flags exist.
func registerFlagCompletions() {
	fixed := func(vals ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return vals, cobra.ShellCompDirectiveNoFileComp
		}
	}
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", fixed("debug", "info", "warn", "error"))
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", fixed("json", "console"))
	_ = rootCmd.RegisterFlagCompletionFunc("entities", completeEntities)
}

// completeEntities offers the built-in rule labels for the last element of a
// comma-separated --entities value.
func completeEntities(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndexByte(toComplete, ','); i >= 0 {
		prefix = toComplete[:i+1]
	}
	var out []string
	for _, l := range rules.Default().Labels() {
		if strings.ContainsRune(l, ' ') {
			continue
		}
		out = append(out, prefix+l)
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
