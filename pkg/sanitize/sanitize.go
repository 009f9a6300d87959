// Package sanitize cleans up filenames: lowercase, ASCII-safe, dashes
// instead of spaces and punctuation runs, extension preserved.
package sanitize

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
)

// Name sanitizes a bare filename (no directory part). The extension is
// lowercased but otherwise preserved.
func Name(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	return clean(base) + strings.ToLower(ext)
}

// clean maps a name fragment to the safe character set
func clean(s string) string {
	var b strings.Builder
	lastDash := true // swallow leading dashes
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == '.':
			b.WriteRune(r)
			lastDash = false
		default:
			// Everything else becomes a single dash
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-.")
}

// Rename holds one planned rename
type Rename struct {
	From string
	To   string
}

// Files sanitizes the names of the given files on disk. With dryRun the
// renames are only planned. Files whose names are already clean are
// skipped; a rename that would clobber an existing file is an error.
func Files(files []string, dryRun bool) ([]Rename, error) {
	logger := logging.GetLogger("sanitize")
	var renames []Rename

	for _, path := range files {
		if _, err := os.Lstat(path); err != nil {
			return renames, errors.Wrapf(err, errors.ErrFileNotFound, "cannot sanitize %s", path)
		}

		dir := filepath.Dir(path)
		base := filepath.Base(path)
		cleaned := Name(base)
		if cleaned == base {
			continue
		}
		if cleaned == "" {
			return renames, errors.Newf(errors.ErrInvalidInput,
				"%q sanitizes to an empty name", base)
		}

		to := filepath.Join(dir, cleaned)
		if _, err := os.Lstat(to); err == nil {
			return renames, errors.Newf(errors.ErrAlreadyExists,
				"cannot rename %s: %s already exists", path, to)
		}

		if !dryRun {
			if err := os.Rename(path, to); err != nil {
				return renames, errors.Wrapf(err, errors.ErrFileAccess,
					"cannot rename %s", path)
			}
			logger.Info().Str("from", base).Str("to", cleaned).Msg("renamed")
		}
		renames = append(renames, Rename{From: path, To: to})
	}

	return renames, nil
}
