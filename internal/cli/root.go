// Package cli builds the dotkeep command tree. Commands stay thin: they
// parse flags, construct the relevant pkg types and render results.
package cli

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dotkeep/dotkeep/internal/version"
	"github.com/dotkeep/dotkeep/pkg/cobrax/topics"
	"github.com/dotkeep/dotkeep/pkg/logging"
)

//go:embed topics/*.md
var topicFiles embed.FS

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		verbosity int
		dryRun    bool
	)

	rootCmd := &cobra.Command{
		Use:   "dotkeep",
		Short: "Personal machine toolkit: dotfiles, secrets and small chores",
		Long: `dotkeep keeps one machine's loose ends in a single binary: a
manifest-driven dotfiles symlink manager, a Bitwarden-backed secrets and
file-encryption wrapper, and helpers for WireGuard, smart plugs,
screenshots and archives.`,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Preview changes without executing them")

	// Disable the stock help command; topics installs its own
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newLinkCmd())
	rootCmd.AddCommand(newUnlinkCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newSecretCmd())
	rootCmd.AddCommand(newWgCmd())
	rootCmd.AddCommand(newPlugCmd())
	rootCmd.AddCommand(newShotsCmd())
	rootCmd.AddCommand(newArchiveCmd())
	rootCmd.AddCommand(newSanitizeCmd())

	if sub, err := fs.Sub(topicFiles, "topics"); err == nil {
		_ = topics.Install(rootCmd, sub, topics.Options{
			Renderer: topics.NewGlamourRenderer(),
		})
	}

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including commit hash and build date`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dotkeep version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Printf("Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Printf("Built:  %s\n", version.Date)
			}
		},
	}
}
