// Package audit appends one JSON line per social publish and converts the
// log to CSV.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Event is one publish attempt against a social platform.
type Event struct {
	Timestamp string `json:"ts"`
	Platform  string `json:"platform"`
	Account   string `json:"account"`
	Action    string `json:"action"`
	PostID    string `json:"post_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

var csvHeader = []string{"ts", "platform", "account", "action", "post_id", "status", "error"}

func (e Event) row() []string {
	return []string{e.Timestamp, e.Platform, e.Account, e.Action, e.PostID, e.Status, e.Error}
}

// Logger writes JSONL audit records. A nil Logger or one with an empty
// path drops every record.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewLogger(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

func (l *Logger) Enabled() bool {
	return l != nil && l.path != ""
}

// Publish records the outcome of one publish call. err decides the status.
func (l *Logger) Publish(platform, account, action, postID string, err error) error {
	ev := Event{
		Platform: platform,
		Account:  account,
		Action:   action,
		PostID:   postID,
		Status:   StatusOK,
	}
	if err != nil {
		ev.Status = StatusFailed
		ev.Error = err.Error()
	}
	return l.Write(ev)
}

func (l *Logger) Write(ev Event) error {
	if !l.Enabled() {
		return nil
	}
	if ev.Timestamp == "" {
		ev.Timestamp = l.now().UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit marshal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("audit mkdir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit open: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("audit write: %w", err)
	}
	return nil
}
