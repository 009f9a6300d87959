// Package shots renames screenshots from the verbose platform naming
// conventions to a compact sortable form, and manages tags embedded in
// filenames.
//
// Normalized form: shot-YYYYMMDD-HHMMSS.ext
// Tagged form:     base--tag1-tag2.ext
package shots

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
	"github.com/dotkeep/dotkeep/pkg/sanitize"
)

// screenshotPatterns match the naming conventions screenshots arrive with.
// Capture groups: date parts, then time parts.
var screenshotPatterns = []*regexp.Regexp{
	// macOS: "Screenshot 2024-01-02 at 13.37.00.png", older "Screen Shot ..."
	regexp.MustCompile(`^Screen ?[Ss]hot (\d{4})-(\d{2})-(\d{2}) at (\d{1,2})\.(\d{2})\.(\d{2})(?: ?\(\d+\))?$`),
	// GNOME: "Screenshot from 2024-01-02 13-37-00"
	regexp.MustCompile(`^Screenshot from (\d{4})-(\d{2})-(\d{2}) (\d{2})-(\d{2})-(\d{2})$`),
	// Windows-ish: "Screenshot 2024-01-02 133700"
	regexp.MustCompile(`^Screenshot (\d{4})-(\d{2})-(\d{2}) (\d{2})(\d{2})(\d{2})$`),
}

// imageExtensions limits tidying and organizing to image files
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".bmp": true, ".tiff": true, ".heic": true,
}

// NormalizedName converts a screenshot filename to the compact form.
// The second return is false when the name matches no known convention.
func NormalizedName(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExtensions[ext] {
		return "", false
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))

	for _, pattern := range screenshotPatterns {
		m := pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		hour := m[4]
		if len(hour) == 1 {
			hour = "0" + hour
		}
		return fmt.Sprintf("shot-%s%s%s-%s%s%s%s", m[1], m[2], m[3], hour, m[5], m[6], ext), true
	}
	return "", false
}

// Rename holds one planned rename
type Rename struct {
	From string
	To   string
}

// Tidy renames every screenshot in dir to the normalized form. Name
// collisions get a numeric suffix. With dryRun the renames are planned
// but not performed.
func Tidy(dir string, dryRun bool) ([]Rename, error) {
	logger := logging.GetLogger("shots")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", dir)
	}

	var renames []Rename
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		normalized, ok := NormalizedName(entry.Name())
		if !ok {
			continue
		}

		to := uniquePath(filepath.Join(dir, normalized))
		from := filepath.Join(dir, entry.Name())

		if !dryRun {
			if err := os.Rename(from, to); err != nil {
				return renames, errors.Wrapf(err, errors.ErrFileAccess,
					"cannot rename %s", from)
			}
			logger.Info().Str("from", entry.Name()).Str("to", filepath.Base(to)).Msg("renamed screenshot")
		}
		renames = append(renames, Rename{From: from, To: to})
	}

	return renames, nil
}

// uniquePath appends -1, -2, ... before the extension until path is free
func uniquePath(path string) string {
	if _, err := os.Lstat(path); err != nil {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if _, err := os.Lstat(candidate); err != nil {
			return candidate
		}
	}
}

// tagSeparator splits the base name from its tag list
const tagSeparator = "--"

// ParseTags splits a filename into its base name and embedded tags
func ParseTags(name string) (base string, tags []string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	stem, tagPart, found := strings.Cut(stem, tagSeparator)
	base = stem + ext
	if !found || tagPart == "" {
		return base, nil
	}
	return base, strings.Split(tagPart, "-")
}

// TaggedName merges newTags into the name's embedded tag list. Tags are
// sanitized, deduplicated and sorted.
func TaggedName(name string, newTags []string) (string, error) {
	base, existing := ParseTags(name)

	seen := make(map[string]bool)
	var tags []string
	for _, tag := range append(existing, newTags...) {
		cleaned := sanitize.Name(tag)
		if cleaned == "" {
			return "", errors.Newf(errors.ErrInvalidInput, "tag %q sanitizes to nothing", tag)
		}
		if strings.Contains(cleaned, "-") || strings.Contains(cleaned, ".") {
			return "", errors.Newf(errors.ErrInvalidInput,
				"tag %q must be a single word", tag)
		}
		if !seen[cleaned] {
			seen[cleaned] = true
			tags = append(tags, cleaned)
		}
	}
	sort.Strings(tags)

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if len(tags) == 0 {
		return base, nil
	}
	return stem + tagSeparator + strings.Join(tags, "-") + ext, nil
}

// Tag renames path so its filename carries the given tags
func Tag(path string, tags []string, dryRun bool) (Rename, error) {
	logger := logging.GetLogger("shots")

	if _, err := os.Lstat(path); err != nil {
		return Rename{}, errors.Wrapf(err, errors.ErrFileNotFound, "cannot tag %s", path)
	}

	tagged, err := TaggedName(filepath.Base(path), tags)
	if err != nil {
		return Rename{}, err
	}

	to := filepath.Join(filepath.Dir(path), tagged)
	rename := Rename{From: path, To: to}
	if to == path {
		return rename, nil
	}

	if _, err := os.Lstat(to); err == nil {
		return rename, errors.Newf(errors.ErrAlreadyExists, "%s already exists", to)
	}

	if !dryRun {
		if err := os.Rename(path, to); err != nil {
			return rename, errors.Wrapf(err, errors.ErrFileAccess, "cannot rename %s", path)
		}
		logger.Info().Str("from", filepath.Base(path)).Str("to", tagged).Msg("tagged file")
	}
	return rename, nil
}
