// Package checkpoint persists recovery progress as a plain JSON file so an
// interrupted run resumes where it stopped instead of redoing paid API work.
// The file is meant to be inspected and hand-edited when something goes wrong,
// which is why this stays on encoding/json rather than a database table.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Progress is the on-disk checkpoint. Stage booleans gate whole phases;
// username lists gate individual profiles inside a phase.
type Progress struct {
	StartedAt         time.Time `json:"started_at"`
	RunsFetched       bool      `json:"runs_fetched"`
	PostsFetched      bool      `json:"posts_fetched"`
	ProfilesFetched   bool      `json:"profiles_fetched"`
	FilteringDone     bool      `json:"filtering_done"`
	AnalyzedUsernames []string  `json:"analyzed_usernames"`
	InsertedUsernames []string  `json:"inserted_usernames"`
	Errors            []Failure `json:"errors"`
}

// Failure records one non-fatal error for the end-of-run report.
type Failure struct {
	Username string    `json:"username"`
	Stage    string    `json:"stage"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// File is a checkpoint bound to a path. Save rewrites the whole file; callers
// save after every unit of completed work.
type File struct {
	path     string
	Progress *Progress

	analyzed map[string]bool
	inserted map[string]bool
}

// Load reads the checkpoint at dir/name, or starts a fresh one if the file
// does not exist.
func Load(dir, name string) (*File, error) {
	path := filepath.Join(dir, name)
	f := &File{
		path:     path,
		Progress: &Progress{StartedAt: time.Now().UTC()},
		analyzed: make(map[string]bool),
		inserted: make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", path, err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing checkpoint %s: %w", path, err)
	}
	f.Progress = &p
	for _, u := range p.AnalyzedUsernames {
		f.analyzed[u] = true
	}
	for _, u := range p.InsertedUsernames {
		f.inserted[u] = true
	}
	logrus.Infof("Resuming from checkpoint: %d analyzed, %d inserted, %d errors",
		len(p.AnalyzedUsernames), len(p.InsertedUsernames), len(p.Errors))
	return f, nil
}

// Save writes the checkpoint atomically via a temp file and rename, so a crash
// mid-write never leaves a truncated checkpoint behind.
func (f *File) Save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(f.Progress, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("committing checkpoint: %w", err)
	}
	return nil
}

// Analyzed reports whether the username already passed text classification.
func (f *File) Analyzed(username string) bool { return f.analyzed[username] }

// Inserted reports whether the username was already written to the store.
func (f *File) Inserted(username string) bool { return f.inserted[username] }

// MarkAnalyzed records a completed classification.
func (f *File) MarkAnalyzed(username string) {
	if f.analyzed[username] {
		return
	}
	f.analyzed[username] = true
	f.Progress.AnalyzedUsernames = append(f.Progress.AnalyzedUsernames, username)
}

// MarkInserted records a completed store write.
func (f *File) MarkInserted(username string) {
	if f.inserted[username] {
		return
	}
	f.inserted[username] = true
	f.Progress.InsertedUsernames = append(f.Progress.InsertedUsernames, username)
}

// RecordError appends a non-fatal failure to the checkpoint's error log.
func (f *File) RecordError(username, stage string, err error) {
	f.Progress.Errors = append(f.Progress.Errors, Failure{
		Username: username,
		Stage:    stage,
		Message:  err.Error(),
		At:       time.Now().UTC(),
	})
}

// Remove deletes the checkpoint after a fully successful run.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}

// WriteSnapshot saves an arbitrary JSON-encodable value next to the checkpoint
// so intermediate stage output survives a restart.
func WriteSnapshot(dir, name string, v interface{}) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing snapshot %s: %w", name, err)
	}
	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot. It reports
// os.ErrNotExist via errors.Is when the snapshot is absent.
func ReadSnapshot(dir, name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", name, err)
	}
	return nil
}
