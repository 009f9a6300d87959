package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/paths"
	"github.com/dotkeep/dotkeep/pkg/runner"
	"github.com/dotkeep/dotkeep/pkg/shots"
)

func newShotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shots",
		Short: "Rename, tag and organize screenshots",
	}

	cmd.AddCommand(newShotsTidyCmd())
	cmd.AddCommand(newShotsTagCmd())
	cmd.AddCommand(newShotsOrganizeCmd())

	return cmd
}

func newShotsTidyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tidy [dir]",
		Short: "Rename screenshots to the compact shot-YYYYMMDD-HHMMSS form",
		Long: `Tidy renames every screenshot in the directory from the verbose
platform naming ("Screenshot 2024-01-02 at 13.37.00.png") to the compact
sortable form. The directory defaults to shots.dir from the config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			dir := cfg.Shots.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			dir = paths.ExpandHome(dir)

			renames, err := shots.Tidy(dir, dryRunFlag(cmd))
			if err != nil {
				return err
			}

			if len(renames) == 0 {
				fmt.Println("Nothing to tidy.")
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

func newShotsTagCmd() *cobra.Command {
	var auto bool
	var model string

	cmd := &cobra.Command{
		Use:   "tag <file> [tags...]",
		Short: "Embed tags in a filename",
		Long: `Tag renames the file so the tags ride along in the name, separated
from the base by a double dash: diagram--arch-work.png. Tags already in
the name are kept; the merged set is deduplicated and sorted.

With --auto an ollama vision model (shots.model in the config file)
describes the image and its answer is merged into the tag list.`,
		Example: `  dotkeep shots tag shot-20240102-133700.png work meeting
  dotkeep shots tag --auto shot-20240102-133700.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags := args[1:]

			if auto {
				cfg, _, err := setup()
				if err != nil {
					return err
				}
				if model == "" {
					model = cfg.Shots.Model
				}

				analyzer := shots.NewAnalyzer(runner.New(), model)
				found, err := analyzer.Tags(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tags = append(tags, found...)
			}
			if len(tags) == 0 {
				return errors.New(errors.ErrInvalidInput,
					"no tags given, pass tags or use --auto")
			}

			rename, err := shots.Tag(args[0], tags, dryRunFlag(cmd))
			if err != nil {
				return err
			}

			if rename.From == rename.To {
				fmt.Println("Already tagged, nothing to do.")
				return nil
			}
			fmt.Printf("%s -> %s\n", rename.From, rename.To)
			return nil
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "Derive tags with an ollama vision model")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Ollama vision model (default: shots.model)")

	return cmd
}

func newShotsOrganizeCmd() *cobra.Command {
	var out, model, categories string
	var move bool

	cmd := &cobra.Command{
		Use:   "organize [dir]",
		Short: "Sort screenshots into category folders with a vision model",
		Long: `Organize runs every image in the directory through an ollama vision
model (shots.model in the config file, llava by default) and copies it
into a category subfolder of <dir>/organized. Requires a running ollama
with a vision model pulled: ollama pull llava.`,
		Example: `  dotkeep shots organize ~/Desktop
  dotkeep shots organize --move --categories "family,pets,travel" ~/photos`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			dir := cfg.Shots.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			dir = paths.ExpandHome(dir)

			if model == "" {
				model = cfg.Shots.Model
			}

			opts := shots.OrganizeOptions{
				OutDir: paths.ExpandHome(out),
				Move:   move,
				DryRun: dryRunFlag(cmd),
			}
			for _, c := range strings.Split(categories, ",") {
				if c = strings.TrimSpace(c); c != "" {
					opts.Categories = append(opts.Categories, c)
				}
			}

			analyzer := shots.NewAnalyzer(runner.New(), model)
			moves, err := analyzer.Organize(cmd.Context(), dir, opts)
			if err != nil {
				return err
			}

			if len(moves) == 0 {
				fmt.Println("No images to organize.")
				return nil
			}
			for _, m := range moves {
				fmt.Printf("%s -> %s/ (%s)\n",
					filepath.Base(m.From), m.Category.Name, m.Category.Confidence)
			}

			fmt.Println("\nSummary:")
			for _, line := range shots.CategoryCounts(moves) {
				fmt.Printf("  %s\n", line)
			}
			if dryRunFlag(cmd) {
				fmt.Printf("\nDry run: %d file(s) would be organized\n", len(moves))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default: <dir>/organized)")
	cmd.Flags().BoolVar(&move, "move", false, "Move files instead of copying")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Ollama vision model (default: shots.model)")
	cmd.Flags().StringVar(&categories, "categories", "", "Comma-separated category list")

	return cmd
}
