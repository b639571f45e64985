// Package prompt assembles the two-part prompt sent to the inference
// backend: a cache-stable prefix (the static rule block) and a variable
// suffix (fragments, world state, history, query).
//
// The prefix must stay byte-identical turn over turn to preserve the
// backend's KV cache. The rules file is watched; any change is logged
// as a cache-invalidating event, never silently absorbed.
package prompt

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"council/internal/fragment"
)

const (
	// tierPlaceholder in the rules file is replaced with the numeric
	// session tier at load.
	tierPlaceholder = "{tier}"

	// tagInstruction restricts model output to the recognized tags.
	tagInstruction = "IMPORTANT: Your entire response must use ONLY these tags:\n" +
		"[THOUGHT] your reasoning\n[CHAT] in-character response\n" +
		"Do NOT write anything outside these tags."

	tagReminder = "Respond now using [THOUGHT] and [CHAT] tags only."

	// actorDivider separates fragment blocks when more than one advisor
	// is active.
	actorDivider = "\n\n---\n\n"

	// NoDataPlaceholder substitutes for an empty world-state report.
	NoDataPlaceholder = "[No campaign data available. The archive is silent.]"

	// DefaultReportLineBudget bounds the verbatim world-state report.
	DefaultReportLineBudget = 40
)

// Reporter provides the plain-text world-state report for the current
// campaign date. The builder needs only the text and its line count.
type Reporter interface {
	Report(ctx context.Context, date string) (string, error)
}

// HistoryTurn is one prior exchange in the rolling session history.
type HistoryTurn struct {
	Role    string // "user" or "advisor"
	Speaker string
	Content string
}

// AssembledPrompt is the prefix/suffix pair handed to the inference
// client.
type AssembledPrompt struct {
	Prefix string
	Suffix string
}

// Builder holds the static rule block and assembles per-turn suffixes.
type Builder struct {
	rulesPath string
	reporter  Reporter
	logger    *zap.Logger

	mu        sync.RWMutex
	prefix    string
	rulesHash string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewBuilder loads the rules file, substitutes the tier placeholder,
// and starts watching the file for cache-invalidating edits.
func NewBuilder(rulesPath string, tier int, reporter Reporter, logger *zap.Logger) (*Builder, error) {
	raw, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	b := &Builder{
		rulesPath: rulesPath,
		reporter:  reporter,
		logger:    logger,
		done:      make(chan struct{}),
	}
	b.setPrefix(string(raw), tier)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// The builder still works without the watcher; edits just go
		// unreported until restart.
		logger.Warn("rules watcher unavailable", zap.Error(err))
		return b, nil
	}
	if err := watcher.Add(rulesPath); err != nil {
		logger.Warn("rules watcher failed to attach", zap.Error(err))
		watcher.Close()
		return b, nil
	}
	b.watcher = watcher
	go b.watch(tier)

	return b, nil
}

func (b *Builder) setPrefix(raw string, tier int) {
	content := strings.TrimSpace(strings.ReplaceAll(raw, tierPlaceholder, strconv.Itoa(tier)))
	sum := md5.Sum([]byte(content))

	b.mu.Lock()
	b.prefix = content
	b.rulesHash = hex.EncodeToString(sum[:])
	b.mu.Unlock()
}

func (b *Builder) watch(tier int) {
	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			raw, err := os.ReadFile(b.rulesPath)
			if err != nil {
				b.logger.Error("rules file unreadable after change", zap.Error(err))
				continue
			}
			b.mu.RLock()
			oldHash := b.rulesHash
			b.mu.RUnlock()

			b.setPrefix(string(raw), tier)

			b.mu.RLock()
			newHash := b.rulesHash
			b.mu.RUnlock()
			if newHash != oldHash {
				b.logger.Warn("rules file changed, inference cache invalidated",
					zap.String("path", b.rulesPath))
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.logger.Error("rules watcher error", zap.Error(err))
		}
	}
}

// Close stops the rules watcher.
func (b *Builder) Close() error {
	close(b.done)
	if b.watcher != nil {
		return b.watcher.Close()
	}
	return nil
}

// Prefix returns the cache-stable rule block.
func (b *Builder) Prefix() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.prefix
}

// Build assembles the per-turn prompt. Suffix order is fixed: tag
// instruction, advisor fragments, optional world state, optional
// history, the query last.
func (b *Builder) Build(
	ctx context.Context,
	fetches []fragment.FetchResult,
	query string,
	history []HistoryTurn,
	date string,
) (AssembledPrompt, error) {
	parts := []string{tagInstruction}

	actorBlocks := make([]string, 0, len(fetches))
	archivalActive := false
	lineBudget := DefaultReportLineBudget
	for _, f := range fetches {
		actorBlocks = append(actorBlocks, f.Assembled())
		if f.Spec.Archival() {
			archivalActive = true
			if f.Spec.ReportLineBudget > 0 {
				lineBudget = f.Spec.ReportLineBudget
			}
		}
	}
	if section := strings.Join(actorBlocks, actorDivider); section != "" {
		parts = append(parts, "## ADVISOR CONTEXT\n\n"+section)
	}

	if archivalActive {
		section, err := b.worldStateSection(ctx, date, lineBudget)
		if err != nil {
			return AssembledPrompt{}, err
		}
		parts = append(parts, "## CAMPAIGN STATE\n\n"+section)
	}

	if section := formatHistory(history); section != "" {
		parts = append(parts, "## RECENT HISTORY\n\n"+section)
	}

	parts = append(parts, "## QUERY\n\n"+query, tagReminder)

	return AssembledPrompt{
		Prefix: b.Prefix(),
		Suffix: strings.Join(parts, "\n\n"),
	}, nil
}

// worldStateSection returns the report verbatim when under budget, the
// no-data placeholder when empty, and an overload stage-direction
// instruction when over budget. Long reports both blow the token budget
// and read poorly as dialogue.
func (b *Builder) worldStateSection(ctx context.Context, date string, lineBudget int) (string, error) {
	report, err := b.reporter.Report(ctx, date)
	if err != nil {
		return "", fmt.Errorf("world-state report: %w", err)
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return NoDataPlaceholder, nil
	}

	lineCount := strings.Count(report, "\n") + 1
	if lineCount <= lineBudget {
		return report, nil
	}

	b.logger.Info("world-state report over line budget",
		zap.Int("lines", lineCount), zap.Int("budget", lineBudget))
	examples := strings.Join([]string{
		"[The archive floods the room with figures. The advisors have stopped pretending to follow.]",
		"[The report continues. It has been continuing for some time.]",
		"[A seventh appendix arrives. The council's attention has quietly left the building.]",
	}, "\n")
	return fmt.Sprintf(
		"[ARCHIVE REPORT EXCEEDS LINE BUDGET (%d lines > %d)]\n"+
			"Generate a single in-character stage direction conveying information overload.\n"+
			"Tone reference (do not reproduce these exactly):\n%s",
		lineCount, lineBudget, examples), nil
}

func formatHistory(history []HistoryTurn) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, len(history))
	for i, turn := range history {
		prefix := "USER"
		if turn.Role == "advisor" {
			prefix = strings.ToUpper(turn.Speaker)
		}
		lines[i] = fmt.Sprintf("%s: %s", prefix, turn.Content)
	}
	return strings.Join(lines, "\n\n")
}
