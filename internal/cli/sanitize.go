package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dotkeep/dotkeep/pkg/sanitize"
)

func newSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <files...>",
		Short: "Rename files to lowercase, dash-separated names",
		Long: `Sanitize renames the given files to a safe form: lowercase, spaces and
punctuation runs collapsed to single dashes, extension preserved.
"My Report (final).PDF" becomes "my-report-final.pdf".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renames, err := sanitize.Files(args, dryRunFlag(cmd))
			if err != nil {
				return err
			}

			if len(renames) == 0 {
				fmt.Println("All names already clean.")
				return nil
			}
			for _, r := range renames {
				fmt.Printf("%s -> %s\n", r.From, r.To)
			}
			if dryRunFlag(cmd) {
				fmt.Printf("\nDry run: %d file(s) would be renamed\n", len(renames))
			}
			return nil
		},
	}
}
