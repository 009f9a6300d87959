// Package paths provides centralized path handling for dotkeep.
// It implements XDG Base Directory compliance and resolves the dotfiles
// storage root from the environment, a git checkout, or the default
// location under the home directory.
package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dotkeep/dotkeep/pkg/errors"
)

// Environment variable names
const (
	// EnvStorageRoot is the primary environment variable for the dotfiles storage location
	EnvStorageRoot = "DOTKEEP_ROOT"

	// EnvDataDir overrides the XDG data directory for dotkeep
	EnvDataDir = "DOTKEEP_DATA_DIR"

	// EnvConfigDir overrides the XDG config directory for dotkeep
	EnvConfigDir = "DOTKEEP_CONFIG_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Default directories and files. These define dotkeep's on-disk layout and
// are not user-configurable; user-facing settings live in pkg/config.
const (
	// AppDirName is the directory name for dotkeep-specific files
	AppDirName = "dotkeep"

	// DefaultStorageDir is the default storage directory name under $HOME
	DefaultStorageDir = "dotfiles"

	// ManifestFile is the name of the manifest inside the storage root
	ManifestFile = ".manifest"

	// BackupDir is the subdirectory for files displaced by --force linking
	BackupDir = "backups"

	// SessionFile is the name of the cached vault session file
	SessionFile = "session"

	// ConfigFile is the name of the configuration file
	ConfigFile = "config.toml"

	// LogFileName is the name of the log file
	LogFileName = "dotkeep.log"
)

// Paths provides centralized path management for dotkeep
type Paths interface {
	StorageRoot() string
	UsedFallback() bool
	ManifestPath() string
	StoredPath(name string) string
	DataDir() string
	ConfigDir() string
	StateDir() string
	ConfigFilePath() string
	BackupPath(name string) string
	SessionPath() string
	LogFilePath() string
	NormalizePath(path string) (string, error)
	InStorage(path string) bool
}

type paths struct {
	storageRoot  string
	xdgData      string
	xdgConfig    string
	xdgState     string
	usedFallback bool
}

// New creates a new Paths instance with the given storage root.
// If storageRoot is empty it is resolved from DOTKEEP_ROOT, then the
// enclosing git repository, then ~/dotfiles as a fallback.
func New(storageRoot string) (Paths, error) {
	p := &paths{}

	if storageRoot == "" {
		root, usedFallback, err := findStorageRoot()
		if err != nil {
			return nil, err
		}
		p.storageRoot = root
		p.usedFallback = usedFallback
	} else {
		p.storageRoot = ExpandHome(storageRoot)
	}

	absRoot, err := filepath.Abs(p.storageRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for storage root")
	}
	p.storageRoot = absRoot

	p.setupXDGDirs()
	return p, nil
}

// setupXDGDirs initializes XDG directories, respecting environment overrides
func (p *paths) setupXDGDirs() {
	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		p.xdgData = ExpandHome(dataDir)
	} else {
		p.xdgData = filepath.Join(xdg.DataHome, AppDirName)
	}

	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		p.xdgConfig = ExpandHome(configDir)
	} else {
		p.xdgConfig = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	// xdg.StateHome exists but we keep the manual check so XDG_STATE_HOME
	// set after process start (tests) is honored
	if stateDir := os.Getenv("XDG_STATE_HOME"); stateDir != "" {
		p.xdgState = filepath.Join(stateDir, AppDirName)
	} else {
		homeDir, _ := os.UserHomeDir()
		p.xdgState = filepath.Join(homeDir, ".local", "state", AppDirName)
	}
}

// findStorageRoot determines the storage root using the following priority:
// 1. DOTKEEP_ROOT environment variable
// 2. Git repository root (via 'git rev-parse --show-toplevel')
// 3. ~/dotfiles (fallback, reported via the bool return)
func findStorageRoot() (string, bool, error) {
	if root := os.Getenv(EnvStorageRoot); root != "" {
		return ExpandHome(root), false, nil
	}

	gitRoot, err := findGitRoot()
	if err == nil && gitRoot != "" {
		return gitRoot, false, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrapf(err, errors.ErrFileAccess, "failed to get home directory")
	}

	return filepath.Join(homeDir, DefaultStorageDir), true, nil
}

// findGitRoot attempts to find the root of the current git repository
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		// Not in a git repo, or git not installed
		return "", err
	}

	gitRoot := strings.TrimSpace(string(output))
	if gitRoot == "" {
		return "", errors.New(errors.ErrNotFound, "git root is empty")
	}
	return gitRoot, nil
}

// ExpandHome expands a leading ~ to the home directory
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}

	// ~something refers to another user's home, leave it alone
	return path
}

// ContractHome replaces a home directory prefix with ~ so paths stored in
// the manifest stay portable across machines.
func ContractHome(path string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return path
	}
	if path == homeDir {
		return "~"
	}
	if strings.HasPrefix(path, homeDir+string(filepath.Separator)) {
		return "~" + path[len(homeDir):]
	}
	return path
}

// StorageRoot returns the dotfiles storage root
func (p *paths) StorageRoot() string {
	return p.storageRoot
}

// UsedFallback returns true if the default ~/dotfiles location was used
func (p *paths) UsedFallback() bool {
	return p.usedFallback
}

// ManifestPath returns the path to the manifest file
func (p *paths) ManifestPath() string {
	return filepath.Join(p.storageRoot, ManifestFile)
}

// StoredPath returns the path of a stored file inside the storage root
func (p *paths) StoredPath(name string) string {
	return filepath.Join(p.storageRoot, name)
}

// DataDir returns the XDG data directory for dotkeep
func (p *paths) DataDir() string {
	return p.xdgData
}

// ConfigDir returns the XDG config directory for dotkeep
func (p *paths) ConfigDir() string {
	return p.xdgConfig
}

// StateDir returns the XDG state directory for dotkeep
func (p *paths) StateDir() string {
	return p.xdgState
}

// ConfigFilePath returns the path to the configuration file
func (p *paths) ConfigFilePath() string {
	return filepath.Join(p.xdgConfig, ConfigFile)
}

// BackupPath returns the backup location for a displaced file
func (p *paths) BackupPath(name string) string {
	return filepath.Join(p.xdgData, BackupDir, name)
}

// SessionPath returns the path of the cached vault session file
func (p *paths) SessionPath() string {
	return filepath.Join(p.xdgState, SessionFile)
}

// LogFilePath returns the path to the dotkeep log file
func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}

// NormalizePath expands home, makes the path absolute and cleans it
func (p *paths) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path")
	}

	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path")
	}
	return filepath.Clean(abs), nil
}

// InStorage checks if a path is within the storage root
func (p *paths) InStorage(path string) bool {
	normalized, err := p.NormalizePath(path)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(p.storageRoot, normalized)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
