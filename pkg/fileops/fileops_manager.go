// Package fileops wraps filesystem access behind an interface so file
// handling can be swapped out in tests.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Manager is the filesystem surface handed to components.
type Manager interface {
	EnsureDir(path string) error
	WriteFile(path string, content []byte) error
	ReadFile(path string) ([]byte, error)
	FileExists(path string) bool
	ListFilesByModTime(dir string) ([]string, error)
	Rename(oldPath, newPath string) error
	WriteObjectAsYAML(path string, object interface{}) error
}

type osManager struct{}

// NewFileOpsManager returns the manager backed by the local filesystem.
func NewFileOpsManager() Manager {
	return osManager{}
}

func (osManager) EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFile writes content to path, creating parent directories as needed.
func (m osManager) WriteFile(path string, content []byte) error {
	if err := m.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	return nil
}

func (osManager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (osManager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListFilesByModTime returns the names of the regular files in dir sorted by
// modification time, newest first. Ties fall back to name order so the
// result is stable. Subdirectories are skipped.
func (osManager) ListFilesByModTime(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error listing directory: %w", err)
	}

	type fileEntry struct {
		name    string
		modTime int64
	}

	files := make([]fileEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between listing and stat, skip it.
			continue
		}
		files = append(files, fileEntry{name: entry.Name(), modTime: info.ModTime().UnixNano()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime != files[j].modTime {
			return files[i].modTime > files[j].modTime
		}
		return files[i].name < files[j].name
	})

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

func (osManager) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}

// WriteObjectAsYAML marshals object and writes it to path. Used for the
// debug prompt dumps.
func (m osManager) WriteObjectAsYAML(path string, object interface{}) error {
	data, err := yaml.Marshal(object)
	if err != nil {
		return fmt.Errorf("error marshalling to YAML: %w", err)
	}
	return m.WriteFile(path, data)
}
