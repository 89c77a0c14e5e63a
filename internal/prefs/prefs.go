// Package prefs persists per-device UI preferences. Only the sound flag exists today.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const fileName = "prefs.yml"

type values struct {
	SoundEnabled *bool `yaml:"sound_enabled,omitempty"`
}

// Store is safe for concurrent use. A missing file means defaults: sound on.
type Store struct {
	mu    sync.RWMutex
	path  string
	sound bool
}

// DefaultPath is <user config dir>/livedesk/prefs.yml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "livedesk", fileName), nil
}

// Open loads the preference file at path. An empty path keeps the store in memory.
func Open(path string) (*Store, error) {
	s := &Store{path: path, sound: true}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	var v values
	if err = yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse prefs: %w", err)
	}
	if v.SoundEnabled != nil {
		s.sound = *v.SoundEnabled
	}
	return s, nil
}

func (s *Store) SoundEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sound
}

// SetSoundEnabled updates the flag and writes the file when the store has a path.
func (s *Store) SetSoundEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sound = enabled
	return s.saveLocked()
}

// ToggleSound flips the flag and returns the new value.
func (s *Store) ToggleSound() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sound = !s.sound
	return s.sound, s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	sound := s.sound
	data, err := yaml.Marshal(values{SoundEnabled: &sound})
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
