// Package store owns the keyed map of day records and its durable JSON file.
// Loading is deliberately lenient (primary, then backup, then empty) so the
// application always starts; saving is strict and atomic so the canonical
// file is never observable half-written.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"worktime/internal/core"
)

// LoadStatus reports how the in-memory map was obtained. The lenient load
// path never returns an error, so the status is the only signal that data
// was recovered or lost.
type LoadStatus int

const (
	// StatusLoaded means the primary file parsed cleanly.
	StatusLoaded LoadStatus = iota
	// StatusRecoveredBackup means the primary was missing or unreadable and
	// the backup file was used instead.
	StatusRecoveredBackup
	// StatusEmpty means no data files exist yet.
	StatusEmpty
	// StatusEmptyAfterFailure means files exist but none could be parsed;
	// the store starts empty and the old files stay on disk untouched.
	StatusEmptyAfterFailure
)

func (s LoadStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusRecoveredBackup:
		return "recovered-from-backup"
	case StatusEmpty:
		return "empty"
	case StatusEmptyAfterFailure:
		return "empty-after-failure"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// Store holds the record map for one data file. It does not serialize
// concurrent calls; within a process the caller is responsible for that,
// across processes the advisory lock taken during Save is the only guard.
type Store struct {
	path   string
	data   map[string]core.DayRecord
	status LoadStatus
}

// Open reads the data file at path. Parse and read failures are absorbed
// into the returned status rather than surfaced as errors.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open store: empty path")
	}
	s := &Store{path: path}
	s.data, s.status = s.load()
	return s, nil
}

// Path returns the primary data file path.
func (s *Store) Path() string { return s.path }

// Status reports how the current map was loaded.
func (s *Store) Status() LoadStatus { return s.status }

// Get returns the record for a date key.
func (s *Store) Get(date string) (core.DayRecord, bool) {
	rec, ok := s.data[date]
	return rec, ok
}

// Put inserts or replaces the record for a date key. Callers persist
// explicitly via Save.
func (s *Store) Put(date string, rec core.DayRecord) {
	s.data[date] = rec
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.data) }

// Records returns a copy of the full map.
func (s *Store) Records() map[string]core.DayRecord {
	out := make(map[string]core.DayRecord, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Dates returns all record keys in ascending order.
func (s *Store) Dates() []string {
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) backupPath() string { return replaceExt(s.path, ".bak") }
func (s *Store) tempPath() string   { return replaceExt(s.path, ".tmp") }
func (s *Store) lockPath() string   { return replaceExt(s.path, ".lock") }

func (s *Store) load() (map[string]core.DayRecord, LoadStatus) {
	primaryExists := fileExists(s.path)
	if primaryExists {
		if data, err := parseFile(s.path); err == nil {
			return data, StatusLoaded
		} else {
			slog.Warn("Primary data file unreadable, trying backup",
				"path", s.path, "error", err)
		}
	}

	bak := s.backupPath()
	backupExists := fileExists(bak)
	if backupExists {
		if data, err := parseFile(bak); err == nil {
			slog.Warn("Recovered records from backup file", "path", bak)
			return data, StatusRecoveredBackup
		} else {
			slog.Warn("Backup data file unreadable", "path", bak, "error", err)
		}
	}

	if primaryExists || backupExists {
		slog.Error("No readable data file, starting with an empty record map",
			"path", s.path)
		return map[string]core.DayRecord{}, StatusEmptyAfterFailure
	}
	return map[string]core.DayRecord{}, StatusEmpty
}

// Save writes the full map durably: temporary file on the same volume,
// fsync, best-effort move of the current primary to the backup slot, then
// an atomic rename over the primary path. Any failure before that final
// rename aborts the save and leaves the existing primary untouched.
func (s *Store) Save() error {
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("save did not complete: marshal records: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save did not complete: create data directory: %w", err)
		}
	}

	// Advisory cross-process lock; not being able to take it only removes
	// mutual exclusion, it never blocks the save.
	lock := flock.New(s.lockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		slog.Warn("Proceeding without advisory lock", "path", s.lockPath(), "error", err)
	} else {
		defer func() {
			if err := lock.Unlock(); err != nil {
				slog.Warn("Failed to release advisory lock", "path", s.lockPath(), "error", err)
			}
		}()
	}

	tmp := s.tempPath()
	if err := writeDurable(tmp, payload); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save did not complete: %w", err)
	}

	// Best-effort rotation of the previous primary into the backup slot.
	if fileExists(s.path) {
		if err := os.Rename(s.path, s.backupPath()); err != nil {
			slog.Warn("Could not rotate previous data file to backup",
				"path", s.path, "error", err)
		}
	}

	// The only mutation of the canonical path: readers see either the old
	// complete file or the new complete file.
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save did not complete: replace primary: %w", err)
	}
	return nil
}

// writeDurable writes payload to path and fsyncs it before returning, so
// the subsequent rename can never expose unflushed content.
func writeDurable(path string, payload []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temporary file: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}
	return nil
}

func parseFile(path string) (map[string]core.DayRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var data map[string]core.DayRecord
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if data == nil {
		data = map[string]core.DayRecord{}
	}
	return data, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
