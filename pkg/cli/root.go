package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// appFlags holds the persistent flags every subcommand reads to build its
// own App, mirroring cmd/tarsy/main.go's -config-dir flag plus the
// environment-variable fallbacks spec.md §6 names.
type appFlags struct {
	storeRoot string
	configDir string
	repoRoot  string
}

func (f *appFlags) toConfig() Config {
	cfg := ConfigFromEnv()
	if f.storeRoot != "" {
		cfg.StoreRoot = f.storeRoot
	}
	if f.configDir != "" {
		cfg.ConfigDir = f.configDir
	}
	if f.repoRoot != "" {
		cfg.RepoRoot = f.repoRoot
	}
	return cfg
}

// NewRootCommand builds the full `agentforge` command tree, per spec.md
// §6's CLI surface table.
func NewRootCommand() *cobra.Command {
	flags := &appFlags{}

	root := &cobra.Command{
		Use:           "agentforge",
		Short:         "Autonomous software-development pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.storeRoot, "root", "", "state store root (overrides AGENTFORGE_ROOT)")
	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (overrides CONFIG_DIR)")
	root.PersistentFlags().StringVar(&flags.repoRoot, "repo", "", "repository root agents operate on (overrides AGENTFORGE_REPO_ROOT)")

	root.AddCommand(
		newStartCmd(flags),
		newDesignCmd(flags),
		newImplementCmd(flags),
		newTestCmd(flags),
		newFixCmd(flags),
		newContinueCmd(flags),
		newFeedbackCmd(flags),
		newApproveCmd(flags),
		newRejectCmd(flags),
		newStatusCmd(flags),
		newResolveCmd(flags),
		newReplayCmd(flags),
		newForkCmd(flags),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code, per
// spec.md §6's exit-code table.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return ExitCodeFor(err)
	}
	return ExitSuccess
}
