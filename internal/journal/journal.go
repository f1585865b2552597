package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind classifies a journal entry.
type Kind string

const (
	KindStage        Kind = "stage"
	KindProbe        Kind = "probe"
	KindDecision     Kind = "decision"
	KindRestart      Kind = "restart"
	KindProcessEvent Kind = "process_event"
)

// Entry is one appended record. Entries are timestamped and strictly ordered
// within a run; the file is the operator-facing account of what the
// orchestrator did and why.
type Entry struct {
	At      time.Time `json:"at"`
	Kind    Kind      `json:"kind"`
	Service string    `json:"service,omitempty"`
	OK      bool      `json:"ok"`
	Detail  string    `json:"detail,omitempty"`
}

// Journal appends JSONL entries to a durable file. An empty path disables
// persistence, which tests and dry runs use.
type Journal struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
	now    func() time.Time
}

// New returns a journal writing to path.
func New(path string, logger zerolog.Logger) *Journal {
	return &Journal{
		path:   path,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Append writes one entry, syncing the file before returning. A zero At is
// stamped with the current time.
func (j *Journal) Append(entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.At.IsZero() {
		entry.At = j.now()
	}
	if j.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(entry); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Tail returns up to n most recent entries in file order. Missing files yield
// an empty slice; corrupt lines are skipped with a warning.
func (j *Journal) Tail(n int) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.path == "" || n <= 0 {
		return nil
	}
	f, err := os.Open(j.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			j.logger.Warn().Str("path", j.path).Err(err).Msg("journal unreadable")
		}
		return nil
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			j.logger.Warn().Str("path", j.path).Err(err).Msg("skipping corrupt journal line")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		j.logger.Warn().Str("path", j.path).Err(err).Msg("journal read interrupted")
	}

	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}
