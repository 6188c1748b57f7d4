package profile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// maxFileSize caps a single profile document. Anything larger is not a
// profile.
const maxFileSize = 1 << 20 // 1 MiB

// LoadError describes a profile document that could not be loaded.
type LoadError struct {
	// Path is the file or directory that failed.
	Path string

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("profile %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("profile %q: %s", e.Path, e.Message)
}

// Unwrap supports error chain inspection.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ErrorList collects per-document load failures so one bad file does not
// hide the rest of the report.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d profile documents failed to load:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

// Add appends a non-nil error to the list.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// ToError returns nil for an empty list, the sole error for a single-entry
// list, and the list itself otherwise.
func (e *ErrorList) ToError() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	default:
		return e
	}
}

// Store indexes the profile documents found under a directory. Load may be
// called again after the directory changes, for example after a git sync;
// the index is swapped atomically.
type Store struct {
	dir string

	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewStore creates a store over the given directory. Nothing is read until
// Load is called.
func NewStore(dir string) *Store {
	return &Store{
		dir:      dir,
		profiles: make(map[string]*Profile),
	}
}

// Dir returns the directory the store reads from.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads every profile document under the directory, recursively.
// Documents that fail to parse or validate are reported in the returned
// error; the remaining documents are still indexed, replacing the previous
// index. Duplicate profile names are an error and only the first document
// wins.
func (s *Store) Load() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadError{Path: s.dir, Message: "profile directory not found", Cause: err}
		}
		return &LoadError{Path: s.dir, Message: "failed to access profile directory", Cause: err}
	}
	if !info.IsDir() {
		return &LoadError{Path: s.dir, Message: "not a directory"}
	}

	files, err := collectProfileFiles(s.dir)
	if err != nil {
		return err
	}

	loaded := make(map[string]*Profile, len(files))
	errs := &ErrorList{}

	for _, path := range files {
		p, err := loadFile(path)
		if err != nil {
			errs.Add(err)
			continue
		}
		if prev, ok := loaded[p.Name]; ok {
			errs.Add(&LoadError{
				Path:    path,
				Message: fmt.Sprintf("duplicate profile name %q, already defined in %s", p.Name, prev.Source),
			})
			continue
		}
		loaded[p.Name] = p
	}

	s.mu.Lock()
	s.profiles = loaded
	s.mu.Unlock()

	return errs.ToError()
}

// Get returns the profile with the given name. The second return value
// reports whether it exists.
func (s *Store) Get(name string) (*Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[name]
	return p, ok
}

// List returns all loaded profiles sorted by name.
func (s *Store) List() []*Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Names returns the loaded profile names sorted alphabetically.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded profiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// loadFile reads, parses, and validates a single profile document.
func loadFile(path string) (*Profile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to access file", Cause: err}
	}
	if info.Size() > maxFileSize {
		return nil, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), maxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to parse document", Cause: err}
	}
	if err := p.Validate(); err != nil {
		return nil, &LoadError{Path: path, Message: "invalid profile", Cause: err}
	}

	p.Source = path
	return &p, nil
}

// collectProfileFiles walks the directory collecting .yaml and .yml files.
// Hidden files and directories are skipped.
func collectProfileFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: dir, Message: "failed to walk profile directory", Cause: err}
	}

	return files, nil
}
