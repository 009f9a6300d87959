package cli

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dotkeep/dotkeep/pkg/dotfiles"
	"github.com/dotkeep/dotkeep/pkg/style"
	"github.com/dotkeep/dotkeep/pkg/ui"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the dotfiles storage",
		Long: `Init creates the storage root and an empty manifest. The storage root
is resolved from DOTKEEP_ROOT, the enclosing git repository, or ~/dotfiles.
Running init on an initialized storage is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newDotfilesManager()
			if err != nil {
				return err
			}

			result, err := mgr.Init()
			if err != nil {
				return err
			}

			if result.Created {
				fmt.Printf("Initialized dotfiles storage at %s\n", result.StorageRoot)
			} else {
				fmt.Printf("Storage at %s is already initialized\n", result.StorageRoot)
			}
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Move a file into storage and symlink it back",
		Long: `Add moves an existing file into the storage root, records it in the
manifest and leaves a symlink at the original location.

The storage name defaults to the basename without its leading dot;
use --name to override it.`,
		Example: `  # Track ~/.vimrc under the name "vimrc"
  dotkeep add ~/.vimrc

  # Track with an explicit name
  dotkeep add ~/.config/git/config --name gitconfig`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newDotfilesManager()
			if err != nil {
				return err
			}

			result, err := mgr.Add(dotfiles.AddOptions{
				Path:   args[0],
				Name:   name,
				DryRun: dryRunFlag(cmd),
			})
			if err != nil {
				return err
			}

			if result.DryRun {
				fmt.Printf("Would add %s as '%s'\n", args[0], result.Entry.Name)
				return nil
			}
			fmt.Printf("Added '%s': %s -> %s\n", result.Entry.Name, result.Entry.Target, result.StoredPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Storage name for the file")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Stop tracking an entry and restore the original file",
		Long: `Remove is the inverse of add: the destination symlink is deleted, the
stored file moves back to its recorded target path and the manifest entry
is dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newDotfilesManager()
			if err != nil {
				return err
			}

			result, err := mgr.Remove(dotfiles.RemoveOptions{
				Name:   args[0],
				DryRun: dryRunFlag(cmd),
			})
			if err != nil {
				return err
			}

			if result.DryRun {
				fmt.Printf("Would restore '%s' to %s\n", result.Entry.Name, result.Entry.Target)
				return nil
			}
			fmt.Printf("Removed '%s', restored %s\n", result.Entry.Name, result.Restored)
			return nil
		},
	}
}

func newLinkCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "link [names...]",
		Short: "Create destination symlinks for manifest entries",
		Long: `Link walks the manifest and creates the destination symlink for each
selected entry. Already-correct links are left alone, so link is safe to
run repeatedly (e.g. after cloning the storage repo on a new machine).

Conflicting destinations are skipped unless --force is given, which backs
the occupant up next to the storage root before replacing it.`,
		Example: `  # Link everything
  dotkeep link

  # Link selected entries
  dotkeep link vimrc zshrc

  # Replace whatever is in the way, keeping a backup
  dotkeep link --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newDotfilesManager()
			if err != nil {
				return err
			}

			result, err := mgr.Link(dotfiles.LinkOptions{
				Names:  args,
				Force:  force,
				DryRun: dryRunFlag(cmd),
			})
			if err != nil {
				return err
			}

			for _, es := range result.Statuses {
				fmt.Println(style.RenderEntryStatus(es))
			}
			if result.DryRun {
				fmt.Printf("\nDry run: %d link(s) would be created, %d skipped\n", result.Created, result.Skipped)
			} else {
				fmt.Printf("\n%d link(s) created, %d skipped\n", result.Created, result.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Back up conflicting files and link anyway")
	return cmd
}

func newUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink [names...]",
		Short: "Remove destination symlinks",
		Long: `Unlink removes destination symlinks that point into storage. Stored
files stay put, so a later link restores everything. Regular files and
foreign symlinks are never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newDotfilesManager()
			if err != nil {
				return err
			}

			result, err := mgr.Unlink(dotfiles.UnlinkOptions{
				Names:  args,
				DryRun: dryRunFlag(cmd),
			})
			if err != nil {
				return err
			}

			if result.DryRun {
				fmt.Printf("Dry run: %d link(s) would be removed, %d skipped\n", result.Removed, result.Skipped)
			} else {
				fmt.Printf("%d link(s) removed, %d skipped\n", result.Removed, result.Skipped)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of every manifest entry",
		Long: `Status reports each entry as linked, unlinked, conflict (something else
occupies the destination) or stale (the stored file is missing).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newDotfilesManager()
			if err != nil {
				return err
			}

			result, err := mgr.Status()
			if err != nil {
				return err
			}

			if ui.DetectFormat(os.Stdout) == ui.FormatTerminal && len(result.Statuses) > 0 {
				if err := pterm.DefaultTable.
					WithHasHeader().
					WithData(style.StatusTableData(result.Statuses)).
					Render(); err != nil {
					log.Debug().Err(err).Msg("table render failed, falling back to plain output")
					fmt.Println(style.RenderStatusReport(result.Statuses))
				}
				return nil
			}

			fmt.Println(style.RenderStatusReport(result.Statuses))
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List manifest entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newDotfilesManager()
			if err != nil {
				return err
			}

			entries, err := mgr.List()
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No entries tracked.")
				return nil
			}
			for _, entry := range entries {
				fmt.Printf("%s:%s\n", entry.Name, entry.Target)
			}
			return nil
		},
	}
}
