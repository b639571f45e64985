// Package transcript commits each turn to a durable, append-only
// session log. The log file is authoritative: a write failure is fatal
// to the turn. The secondary dialogue index is best-effort and never
// escalated.
package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"council/internal/action"
	"council/internal/flow"
	"council/internal/parse"
)

// Index receives a secondary copy of each advisor line for later
// search. Failures are logged and swallowed.
type Index interface {
	IndexDialogue(ctx context.Context, sessionID, speaker, content string) error
}

// Turn is everything recorded for one completed turn.
type Turn struct {
	SessionID string
	Flow      flow.Type
	Tier      int
	Speaker   string
	Query     string
	Reply     parse.Reply
	// Action is nil when no valid action was requested.
	Action *action.Outcome
}

// Writer appends turns to a per-session log file.
type Writer struct {
	logsDir string
	index   Index
	logger  *zap.Logger
}

// NewWriter constructs a Writer. index may be nil.
func NewWriter(logsDir string, index Index, logger *zap.Logger) *Writer {
	return &Writer{logsDir: logsDir, index: index, logger: logger}
}

// Commit appends the turn to the session log and, on success, to the
// dialogue index. A turn whose outcome cannot be durably recorded must
// not be treated as succeeded, so the primary write error propagates.
func (w *Writer) Commit(ctx context.Context, t Turn) error {
	if err := os.MkdirAll(w.logsDir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	path := filepath.Join(w.logsDir, fmt.Sprintf("session_%s.log", t.SessionID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatTurn(t)); err != nil {
		w.logger.Error("session log write failed", zap.Error(err))
		return fmt.Errorf("write session log: %w", err)
	}

	if w.index != nil {
		if err := w.index.IndexDialogue(ctx, t.SessionID, t.Speaker, t.Reply.Chat); err != nil {
			w.logger.Error("dialogue index insert failed, continuing", zap.Error(err))
		}
	}
	return nil
}

func formatTurn(t Turn) string {
	lines := []string{
		fmt.Sprintf("=== SESSION %s | TIER %d | %s ===",
			t.SessionID, t.Tier, strings.ToUpper(t.Flow.String())),
		"",
		"USER",
		t.Query,
		"",
	}
	if t.Reply.Thought != "" {
		lines = append(lines, fmt.Sprintf("[THOUGHT] %s", t.Reply.Thought), "")
	}
	if t.Reply.Action != "" && t.Action != nil {
		status := "REJECTED"
		if t.Action.Executed {
			status = "OK"
		}
		lines = append(lines, fmt.Sprintf("[ACTION] %s  [%s]", t.Reply.Action, status), "")
	}
	lines = append(lines,
		strings.ToUpper(t.Speaker),
		t.Reply.Chat,
		"",
		"=== TURN END ===",
		"",
	)
	return strings.Join(lines, "\n") + "\n"
}
