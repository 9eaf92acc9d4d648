// Package viewstate holds what the dashboard remembers about how a user looks
// at their data: the persisted task view and the ephemeral search, filter and
// sort applied to cached collections.
package viewstate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// TaskView selects how a project's tasks are shown.
type TaskView string

const (
	ListView   TaskView = "list"
	KanbanView TaskView = "kanban"
)

// ParseTaskView returns the view named by s, or ListView for anything else.
func ParseTaskView(s string) TaskView {
	switch TaskView(s) {
	case KanbanView:
		return KanbanView
	}
	return ListView
}

type userPreferences struct {
	TaskView string `yaml:"task_view"`
}

type preferencesFile struct {
	Users map[string]userPreferences `yaml:"users"`
}

// PreferenceStore keeps per-user view preferences in a YAML file. The file
// is read once by LoadPreferences and rewritten on every change.
type PreferenceStore struct {
	mu   sync.Mutex
	path string
	data preferencesFile
}

// LoadPreferences reads path. A missing file yields empty preferences.
func LoadPreferences(path string) (*PreferenceStore, error) {
	s := &PreferenceStore{path: path, data: preferencesFile{Users: map[string]userPreferences{}}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	if s.data.Users == nil {
		s.data.Users = map[string]userPreferences{}
	}
	return s, nil
}

// TaskView returns the user's task view, ListView when unset or unknown.
func (s *PreferenceStore) TaskView(userID string) TaskView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ParseTaskView(s.data.Users[userID].TaskView)
}

// SetTaskView records the user's task view and writes the file.
func (s *PreferenceStore) SetTaskView(userID string, view TaskView) error {
	view = ParseTaskView(string(view))

	s.mu.Lock()
	defer s.mu.Unlock()
	prefs := s.data.Users[userID]
	prefs.TaskView = string(view)
	s.data.Users[userID] = prefs
	return s.save()
}

func (s *PreferenceStore) save() error {
	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}
