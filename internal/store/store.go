// Package store persists per-guild reading preferences — the chosen
// speaker and the replacement dictionary — as JSON files on disk.
//
// Settings are kept in memory and flushed with Save; the bot calls Save
// after every mutating command and once more at shutdown. Files that are
// missing or malformed load as empty settings so a corrupted file never
// prevents startup.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/yomu/internal/reader"
)

// Store holds per-guild preference maps backed by two JSON files.
// Thread-safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	speakerPath  string
	dictPath     string
	log          *slog.Logger
	speakers     map[string]int
	dictionaries map[string][]reader.RuleSpec
}

// Open loads both preference files from dir. Missing files are treated as
// empty; malformed files are logged and treated as empty.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	s := &Store{
		speakerPath:  filepath.Join(dir, "speakers.json"),
		dictPath:     filepath.Join(dir, "dictionaries.json"),
		log:          log,
		speakers:     make(map[string]int),
		dictionaries: make(map[string][]reader.RuleSpec),
	}
	loadJSON(s.speakerPath, &s.speakers, log)
	loadJSON(s.dictPath, &s.dictionaries, log)
	return s, nil
}

// loadJSON reads path into dst, leaving dst untouched when the file is
// missing and resetting it when the content does not parse.
func loadJSON[T any](path string, dst *T, log *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("preference file unreadable, starting empty", "path", path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Warn("preference file malformed, starting empty", "path", path, "error", err)
		var zero T
		*dst = zero
	}
}

// Speaker returns the stored speaker id for a guild and whether one is set.
func (s *Store) Speaker(guildID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.speakers[guildID]
	return id, ok
}

// SetSpeaker records the speaker id for a guild.
func (s *Store) SetSpeaker(guildID string, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speakers[guildID] = id
}

// Dictionary returns the stored rule specs for a guild (possibly nil).
func (s *Store) Dictionary(guildID string) []reader.RuleSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	specs := s.dictionaries[guildID]
	out := make([]reader.RuleSpec, len(specs))
	copy(out, specs)
	return out
}

// SetDictionary records the rule specs for a guild. An empty slice removes
// the guild's entry.
func (s *Store) SetDictionary(guildID string, specs []reader.RuleSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(specs) == 0 {
		delete(s.dictionaries, guildID)
		return
	}
	cp := make([]reader.RuleSpec, len(specs))
	copy(cp, specs)
	s.dictionaries[guildID] = cp
}

// Save writes both preference maps to disk atomically (write to a temp
// file in the same directory, then rename).
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.speakerPath, s.speakers); err != nil {
		return fmt.Errorf("store: save speakers: %w", err)
	}
	if err := writeJSON(s.dictPath, s.dictionaries); err != nil {
		return fmt.Errorf("store: save dictionaries: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
