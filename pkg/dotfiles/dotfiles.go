// Package dotfiles implements the manifest-driven symlink manager.
//
// The storage root holds the real files; the manifest maps each stored file
// to its destination; destinations are symlinks into storage. All operations
// are linear scans over the manifest; link and unlink are idempotent.
package dotfiles

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
	"github.com/dotkeep/dotkeep/pkg/manifest"
	"github.com/dotkeep/dotkeep/pkg/paths"
)

// State describes the deployment state of one manifest entry
type State string

const (
	// StateLinked means the destination is a correct symlink into storage
	StateLinked State = "linked"

	// StateUnlinked means nothing exists at the destination
	StateUnlinked State = "unlinked"

	// StateConflict means the destination is occupied by something else
	StateConflict State = "conflict"

	// StateStale means the manifest names a stored file that is missing
	StateStale State = "stale"
)

// EntryStatus is the computed state of one entry
type EntryStatus struct {
	Entry  manifest.Entry
	State  State
	Detail string
}

// Manager performs manifest-driven dotfile operations
type Manager struct {
	paths  paths.Paths
	logger zerolog.Logger
}

// NewManager creates a Manager over the given paths
func NewManager(p paths.Paths) *Manager {
	return &Manager{
		paths:  p,
		logger: logging.GetLogger("dotfiles"),
	}
}

// loadManifest loads the manifest, adding a hint when it does not exist yet
func (m *Manager) loadManifest() (*manifest.Manifest, error) {
	mf, err := manifest.Load(m.paths.ManifestPath())
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrManifestLoad) {
			if _, statErr := os.Stat(m.paths.ManifestPath()); os.IsNotExist(statErr) {
				return nil, errors.Wrapf(err, errors.ErrManifestLoad,
					"no manifest at %s (run 'dotkeep init' first)", m.paths.ManifestPath())
			}
		}
		return nil, err
	}
	return mf, nil
}

// InitResult reports what Init created
type InitResult struct {
	StorageRoot  string
	ManifestPath string
	Created      bool
}

// Init creates the storage root and an empty manifest. Running it against
// an initialized storage root is a no-op.
func (m *Manager) Init() (InitResult, error) {
	result := InitResult{
		StorageRoot:  m.paths.StorageRoot(),
		ManifestPath: m.paths.ManifestPath(),
	}

	if err := os.MkdirAll(m.paths.StorageRoot(), 0755); err != nil {
		return result, errors.Wrapf(err, errors.ErrDirCreate,
			"cannot create storage root %s", m.paths.StorageRoot())
	}

	if _, err := os.Stat(m.paths.ManifestPath()); err == nil {
		m.logger.Debug().Str("manifest", m.paths.ManifestPath()).Msg("manifest already exists")
		return result, nil
	}

	header := "# dotkeep manifest: storage_name:target_path\n"
	if err := os.WriteFile(m.paths.ManifestPath(), []byte(header), 0644); err != nil {
		return result, errors.Wrapf(err, errors.ErrFileCreate,
			"cannot create manifest %s", m.paths.ManifestPath())
	}

	result.Created = true
	m.logger.Info().Str("root", result.StorageRoot).Msg("initialized storage")
	return result, nil
}

// AddOptions configures Add
type AddOptions struct {
	// Path is the file to take under management
	Path string

	// Name overrides the storage name (default: basename without leading dot)
	Name string

	DryRun bool
}

// AddResult reports the outcome of Add
type AddResult struct {
	Entry      manifest.Entry
	StoredPath string
	DryRun     bool
}

// Add moves an existing file into storage, records it in the manifest and
// symlinks the original path to the stored file.
func (m *Manager) Add(opts AddOptions) (AddResult, error) {
	result := AddResult{DryRun: opts.DryRun}

	target, err := m.paths.NormalizePath(opts.Path)
	if err != nil {
		return result, err
	}

	info, err := os.Lstat(target)
	if err != nil {
		return result, errors.Wrapf(err, errors.ErrFileNotFound, "cannot add %s", target)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		if m.pointsIntoStorage(target) {
			return result, errors.Newf(errors.ErrAlreadyExists,
				"%s is already managed by dotkeep", target)
		}
		return result, errors.Newf(errors.ErrInvalidInput,
			"%s is a symlink; add the file it points to instead", target)
	}

	name := opts.Name
	if name == "" {
		name = strings.TrimPrefix(filepath.Base(target), ".")
	}

	mf, err := m.loadManifest()
	if err != nil {
		return result, err
	}
	if mf.Has(name) {
		return result, errors.Newf(errors.ErrManifestDuplicate,
			"storage name %q is already in use", name)
	}

	stored := m.paths.StoredPath(name)
	if _, err := os.Lstat(stored); err == nil {
		return result, errors.Newf(errors.ErrAlreadyExists,
			"storage already contains %s", stored)
	}

	entry := manifest.Entry{Name: name, Target: paths.ContractHome(target)}
	result.Entry = entry
	result.StoredPath = stored

	if opts.DryRun {
		return result, nil
	}

	if err := os.Rename(target, stored); err != nil {
		return result, errors.Wrapf(err, errors.ErrFileAccess,
			"cannot move %s into storage", target)
	}

	if err := os.Symlink(stored, target); err != nil {
		// Put the file back so a failed add leaves no trace
		if restoreErr := os.Rename(stored, target); restoreErr != nil {
			m.logger.Error().Err(restoreErr).Str("stored", stored).
				Msg("failed to restore file after symlink error")
		}
		return result, errors.Wrapf(err, errors.ErrSymlinkCreate,
			"cannot link %s", target)
	}

	if err := mf.Add(entry); err != nil {
		return result, err
	}
	if err := mf.Save(m.paths.ManifestPath()); err != nil {
		return result, err
	}

	m.logger.Info().Str("name", name).Str("target", target).Msg("added file")
	return result, nil
}

// RemoveOptions configures Remove
type RemoveOptions struct {
	Name   string
	DryRun bool
}

// RemoveResult reports the outcome of Remove
type RemoveResult struct {
	Entry    manifest.Entry
	Restored string
	DryRun   bool
}

// Remove is the inverse of Add: the destination symlink is deleted, the
// stored file moves back to its recorded target path and the manifest
// entry is dropped.
func (m *Manager) Remove(opts RemoveOptions) (RemoveResult, error) {
	result := RemoveResult{DryRun: opts.DryRun}

	mf, err := m.loadManifest()
	if err != nil {
		return result, err
	}

	entry, ok := mf.Get(opts.Name)
	if !ok {
		return result, errors.Newf(errors.ErrEntryNotFound, "no entry named %q", opts.Name)
	}
	result.Entry = entry

	stored := m.paths.StoredPath(entry.Name)
	target := entry.TargetPath()
	result.Restored = target

	if _, err := os.Stat(stored); err != nil {
		return result, errors.Wrapf(err, errors.ErrStaleEntry,
			"stored file for %q is missing", entry.Name)
	}

	// The destination may be our symlink, absent, or something foreign.
	// A foreign occupant must not be clobbered.
	if info, err := os.Lstat(target); err == nil {
		if info.Mode()&os.ModeSymlink == 0 || !m.linksTo(target, stored) {
			return result, errors.Newf(errors.ErrLinkConflict,
				"%s is not managed by dotkeep, refusing to replace it", target)
		}
		if !opts.DryRun {
			if err := os.Remove(target); err != nil {
				return result, errors.Wrapf(err, errors.ErrFileAccess,
					"cannot remove symlink %s", target)
			}
		}
	}

	if opts.DryRun {
		return result, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return result, errors.Wrapf(err, errors.ErrDirCreate,
			"cannot create parent directory for %s", target)
	}
	if err := os.Rename(stored, target); err != nil {
		return result, errors.Wrapf(err, errors.ErrFileAccess,
			"cannot move %s back to %s", stored, target)
	}

	if err := mf.Remove(entry.Name); err != nil {
		return result, err
	}
	if err := mf.Save(m.paths.ManifestPath()); err != nil {
		return result, err
	}

	m.logger.Info().Str("name", entry.Name).Str("target", target).Msg("removed file")
	return result, nil
}

// LinkOptions configures Link
type LinkOptions struct {
	// Names restricts the operation to the listed entries (default: all)
	Names []string

	// Force backs up whatever occupies a conflicting destination and links anyway
	Force  bool
	DryRun bool
}

// LinkResult reports per-entry outcomes of Link
type LinkResult struct {
	Statuses []EntryStatus
	Created  int
	Skipped  int
	DryRun   bool
}

// Link creates the destination symlinks for the selected entries.
// Idempotent: an already-correct link is a no-op; conflicts are reported and
// skipped unless Force is set.
func (m *Manager) Link(opts LinkOptions) (LinkResult, error) {
	result := LinkResult{DryRun: opts.DryRun}

	mf, err := m.loadManifest()
	if err != nil {
		return result, err
	}

	entries, err := selectEntries(mf, opts.Names)
	if err != nil {
		return result, err
	}

	for _, entry := range entries {
		status := m.evalEntry(entry)

		switch status.State {
		case StateLinked, StateStale:
			result.Skipped++

		case StateConflict:
			if !opts.Force {
				result.Skipped++
				break
			}
			if !opts.DryRun {
				if err := m.backupAndLink(entry); err != nil {
					return result, err
				}
			}
			status.State = StateLinked
			status.Detail = "replaced after backup"
			result.Created++

		case StateUnlinked:
			if !opts.DryRun {
				if err := m.createLink(entry); err != nil {
					return result, err
				}
			}
			status.State = StateLinked
			status.Detail = "created"
			result.Created++
		}

		result.Statuses = append(result.Statuses, status)
	}

	m.logger.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Bool("dryRun", opts.DryRun).
		Msg("link finished")
	return result, nil
}

// UnlinkOptions configures Unlink
type UnlinkOptions struct {
	Names  []string
	DryRun bool
}

// UnlinkResult reports per-entry outcomes of Unlink
type UnlinkResult struct {
	Statuses []EntryStatus
	Removed  int
	Skipped  int
	DryRun   bool
}

// Unlink removes destination symlinks that point into storage. Regular
// files and foreign symlinks are never touched; stored files stay put.
func (m *Manager) Unlink(opts UnlinkOptions) (UnlinkResult, error) {
	result := UnlinkResult{DryRun: opts.DryRun}

	mf, err := m.loadManifest()
	if err != nil {
		return result, err
	}

	entries, err := selectEntries(mf, opts.Names)
	if err != nil {
		return result, err
	}

	for _, entry := range entries {
		status := m.evalEntry(entry)

		if status.State == StateLinked {
			if !opts.DryRun {
				if err := os.Remove(entry.TargetPath()); err != nil {
					return result, errors.Wrapf(err, errors.ErrFileAccess,
						"cannot remove symlink %s", entry.TargetPath())
				}
			}
			status.State = StateUnlinked
			status.Detail = "removed"
			result.Removed++
		} else {
			result.Skipped++
		}

		result.Statuses = append(result.Statuses, status)
	}

	m.logger.Info().
		Int("removed", result.Removed).
		Int("skipped", result.Skipped).
		Bool("dryRun", opts.DryRun).
		Msg("unlink finished")
	return result, nil
}

// StatusResult holds the computed state of every manifest entry
type StatusResult struct {
	Statuses []EntryStatus
}

// Status computes the state of every manifest entry
func (m *Manager) Status() (StatusResult, error) {
	mf, err := m.loadManifest()
	if err != nil {
		return StatusResult{}, err
	}

	result := StatusResult{}
	for _, entry := range mf.Entries() {
		result.Statuses = append(result.Statuses, m.evalEntry(entry))
	}
	return result, nil
}

// List returns the manifest entries in file order
func (m *Manager) List() ([]manifest.Entry, error) {
	mf, err := m.loadManifest()
	if err != nil {
		return nil, err
	}
	return mf.Entries(), nil
}

// evalEntry computes the state of a single entry
func (m *Manager) evalEntry(entry manifest.Entry) EntryStatus {
	status := EntryStatus{Entry: entry}
	stored := m.paths.StoredPath(entry.Name)
	target := entry.TargetPath()

	if _, err := os.Stat(stored); err != nil {
		status.State = StateStale
		status.Detail = "stored file is missing"
		return status
	}

	info, err := os.Lstat(target)
	if err != nil {
		status.State = StateUnlinked
		return status
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if m.linksTo(target, stored) {
			status.State = StateLinked
			return status
		}
		status.State = StateConflict
		status.Detail = "symlink points elsewhere"
		return status
	}

	status.State = StateConflict
	status.Detail = "occupied by an unmanaged file"
	return status
}

// createLink creates the destination symlink for an entry
func (m *Manager) createLink(entry manifest.Entry) error {
	target := entry.TargetPath()
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate,
			"cannot create parent directory for %s", target)
	}
	if err := os.Symlink(m.paths.StoredPath(entry.Name), target); err != nil {
		return errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot link %s", target)
	}
	m.logger.Debug().Str("name", entry.Name).Str("target", target).Msg("created symlink")
	return nil
}

// backupAndLink moves a conflicting occupant to the backup dir, then links
func (m *Manager) backupAndLink(entry manifest.Entry) error {
	target := entry.TargetPath()
	backup := m.paths.BackupPath(entry.Name + "." + time.Now().Format("20060102-150405"))

	if err := os.MkdirAll(filepath.Dir(backup), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create backup directory")
	}
	if err := os.Rename(target, backup); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess,
			"cannot back up %s", target)
	}
	m.logger.Info().Str("target", target).Str("backup", backup).Msg("backed up conflicting file")

	return m.createLink(entry)
}

// linksTo reports whether path is a symlink resolving to dest
func (m *Manager) linksTo(path, dest string) bool {
	linkDest, err := os.Readlink(path)
	if err != nil {
		return false
	}
	if !filepath.IsAbs(linkDest) {
		linkDest = filepath.Join(filepath.Dir(path), linkDest)
	}
	return filepath.Clean(linkDest) == filepath.Clean(dest)
}

// pointsIntoStorage reports whether path is a symlink into the storage root
func (m *Manager) pointsIntoStorage(path string) bool {
	linkDest, err := os.Readlink(path)
	if err != nil {
		return false
	}
	if !filepath.IsAbs(linkDest) {
		linkDest = filepath.Join(filepath.Dir(path), linkDest)
	}
	return m.paths.InStorage(linkDest)
}

// selectEntries filters manifest entries by name, defaulting to all
func selectEntries(mf *manifest.Manifest, names []string) ([]manifest.Entry, error) {
	if len(names) == 0 {
		return mf.Entries(), nil
	}

	entries := make([]manifest.Entry, 0, len(names))
	for _, name := range names {
		entry, ok := mf.Get(name)
		if !ok {
			return nil, errors.Newf(errors.ErrEntryNotFound, "no entry named %q", name)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
