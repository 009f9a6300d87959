// Package manifest implements the flat text index mapping stored filenames
// to their original filesystem locations.
//
// The format is one entry per line:
//
//	storage_name:target_path
//
// Blank lines and lines starting with # are ignored. Entry order is
// preserved across load/save so the file stays diff-friendly under version
// control. Storage names must be unique; target paths are stored with a ~
// prefix for the home directory so the manifest is portable across machines.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/paths"
)

// Entry maps one stored file to its filesystem destination
type Entry struct {
	// Name is the storage name, the filename inside the storage root
	Name string

	// Target is the destination path, with ~ contracted for the home dir
	Target string
}

// TargetPath returns the expanded absolute destination path
func (e Entry) TargetPath() string {
	return paths.ExpandHome(e.Target)
}

// Manifest is an ordered set of entries with unique names
type Manifest struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty manifest
func New() *Manifest {
	return &Manifest{index: make(map[string]int)}
}

// Load reads a manifest from path. A missing file is an ErrManifestLoad;
// malformed lines and duplicate names fail with line information.
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad, "cannot open manifest %s", path)
	}
	defer func() { _ = file.Close() }()

	m := New()
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, target, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		target = strings.TrimSpace(target)
		if !ok || name == "" || target == "" {
			return nil, errors.Newf(errors.ErrManifestParse,
				"malformed manifest line %d: %q", lineNo, line)
		}

		if err := m.Add(Entry{Name: name, Target: target}); err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestParse,
				"manifest line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad, "reading manifest %s", path)
	}

	return m, nil
}

// Save writes the manifest to path atomically, preserving entry order.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create manifest directory")
	}

	var b strings.Builder
	for _, e := range m.entries {
		fmt.Fprintf(&b, "%s:%s\n", e.Name, e.Target)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write manifest %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot replace manifest %s", path)
	}
	return nil
}

// Add appends an entry. Storage names must be unique.
func (m *Manifest) Add(e Entry) error {
	if e.Name == "" || e.Target == "" {
		return errors.New(errors.ErrInvalidInput, "manifest entry needs a name and a target")
	}
	if strings.Contains(e.Name, ":") {
		return errors.Newf(errors.ErrInvalidInput, "storage name %q must not contain ':'", e.Name)
	}
	if _, exists := m.index[e.Name]; exists {
		return errors.Newf(errors.ErrManifestDuplicate, "duplicate storage name %q", e.Name)
	}

	m.index[e.Name] = len(m.entries)
	m.entries = append(m.entries, e)
	return nil
}

// Remove deletes the entry with the given name, preserving the order of
// the remaining entries.
func (m *Manifest) Remove(name string) error {
	i, exists := m.index[name]
	if !exists {
		return errors.Newf(errors.ErrEntryNotFound, "no entry named %q", name)
	}

	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, name)
	for j := i; j < len(m.entries); j++ {
		m.index[m.entries[j].Name] = j
	}
	return nil
}

// Get returns the entry with the given name
func (m *Manifest) Get(name string) (Entry, bool) {
	i, exists := m.index[name]
	if !exists {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Has reports whether an entry with the given name exists
func (m *Manifest) Has(name string) bool {
	_, exists := m.index[name]
	return exists
}

// Entries returns the entries in file order. The returned slice is a copy.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of entries
func (m *Manifest) Len() int {
	return len(m.entries)
}
