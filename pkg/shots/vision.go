package shots

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
	"github.com/dotkeep/dotkeep/pkg/runner"
)

// DefaultModel is the ollama vision model used when none is configured
const DefaultModel = "llava"

// DefaultCategories is the category list used when none is given
var DefaultCategories = []string{
	"people", "pets", "nature", "food", "travel",
	"events", "screenshots", "documents", "other",
}

const tagPrompt = "Analyze this image and list what you see as comma-separated tags. " +
	"Include: people (count), animals (type), objects, location/setting, activities. " +
	"Be concise - just tags, no sentences."

const categorizePrompt = `Look at this image and categorize it.
Choose the BEST matching category from this list: %s
Also provide a confidence score (high/medium/low).
Respond in this exact format:
category: <chosen category>
confidence: <high/medium/low>
description: <brief 5-10 word description>`

// Analyzer runs images through an ollama vision model
type Analyzer struct {
	runner  runner.Runner
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAnalyzer creates an Analyzer for the given model (empty: DefaultModel)
func NewAnalyzer(r runner.Runner, model string) *Analyzer {
	if model == "" {
		model = DefaultModel
	}
	return &Analyzer{
		runner:  r,
		model:   model,
		timeout: time.Minute,
		logger:  logging.GetLogger("shots"),
	}
}

// run invokes the model on one image, bounded by the per-image timeout
func (a *Analyzer) run(ctx context.Context, prompt, path string) (runner.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.runner.Run(ctx, "ollama", "run", a.model, prompt, path)
}

// tagWord extracts the usable words from the model's tag output
var tagWord = regexp.MustCompile(`[a-z0-9]+`)

// Tags asks the model to describe the image as a list of single-word tags,
// suitable for TaggedName.
func (a *Analyzer) Tags(ctx context.Context, path string) ([]string, error) {
	res, err := a.run(ctx, tagPrompt, path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var tags []string
	for _, word := range tagWord.FindAllString(strings.ToLower(res.Stdout), -1) {
		if !seen[word] {
			seen[word] = true
			tags = append(tags, word)
		}
	}
	return tags, nil
}

// Category is the model's verdict for one image
type Category struct {
	Name        string
	Confidence  string
	Description string
}

// Categorize asks the model to pick the best category for the image.
// Answers outside the allowed list come back as "other".
func (a *Analyzer) Categorize(ctx context.Context, path string, categories []string) (Category, error) {
	prompt := fmt.Sprintf(categorizePrompt, strings.Join(categories, ", "))
	res, err := a.run(ctx, prompt, path)
	if err != nil {
		return Category{}, err
	}
	return parseCategory(res.Stdout, categories), nil
}

// parseCategory reads the model's line-oriented answer. Missing or
// unrecognized fields degrade to "other"/"unknown" instead of failing,
// vision models do not always follow the format.
func parseCategory(out string, allowed []string) Category {
	c := Category{Name: "other", Confidence: "unknown"}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.ToLower(line))
		if v, ok := strings.CutPrefix(line, "category:"); ok {
			c.Name = matchCategory(strings.TrimSpace(v), allowed)
		} else if v, ok := strings.CutPrefix(line, "confidence:"); ok {
			c.Confidence = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "description:"); ok {
			c.Description = strings.TrimSpace(v)
		}
	}
	return c
}

// matchCategory maps a free-form answer onto the allowed list
func matchCategory(answer string, allowed []string) string {
	if answer == "" {
		return "other"
	}
	for _, cat := range allowed {
		lower := strings.ToLower(cat)
		if strings.Contains(answer, lower) || strings.Contains(lower, answer) {
			return cat
		}
	}
	return "other"
}

// Move records one image placed into a category folder
type Move struct {
	From     string
	To       string
	Category Category
}

// OrganizeOptions configures Organize
type OrganizeOptions struct {
	// OutDir is the destination root (default: <dir>/organized)
	OutDir string

	// Categories the model may choose from (default: DefaultCategories)
	Categories []string

	// Move relocates files instead of copying them
	Move   bool
	DryRun bool
}

// Organize categorizes every image in dir and places it into a category
// subfolder of the output directory. Images the model cannot read are
// skipped; name collisions get a numeric suffix.
func (a *Analyzer) Organize(ctx context.Context, dir string, opts OrganizeOptions) ([]Move, error) {
	if len(opts.Categories) == 0 {
		opts.Categories = DefaultCategories
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Join(dir, "organized")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", dir)
	}

	var moves []Move
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		from := filepath.Join(dir, entry.Name())
		cat, err := a.Categorize(ctx, from, opts.Categories)
		if err != nil {
			if errors.IsErrorCode(err, errors.ErrCommandNotFound) {
				return moves, err
			}
			a.logger.Warn().Err(err).Str("file", entry.Name()).Msg("model failed on image, skipping")
			continue
		}

		to := uniquePath(filepath.Join(outDir, cat.Name, entry.Name()))
		if !opts.DryRun {
			if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
				return moves, errors.Wrapf(err, errors.ErrDirCreate,
					"cannot create category directory for %s", cat.Name)
			}
			if opts.Move {
				err = os.Rename(from, to)
			} else {
				err = copyFile(from, to)
			}
			if err != nil {
				return moves, errors.Wrapf(err, errors.ErrFileAccess, "cannot place %s", from)
			}
			a.logger.Info().Str("file", entry.Name()).Str("category", cat.Name).Msg("organized image")
		}
		moves = append(moves, Move{From: from, To: to, Category: cat})
	}

	return moves, nil
}

// CategoryCounts summarizes moves per category, most frequent first
func CategoryCounts(moves []Move) []string {
	counts := make(map[string]int)
	for _, m := range moves {
		counts[m.Category.Name]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %d", name, counts[name]))
	}
	return lines
}

// copyFile copies from to to, preserving the permission bits
func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
