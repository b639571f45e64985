package worldstate

import (
	"context"
	"fmt"
	"strings"
)

// Fetch executes a read-type action against the campaign store. The
// body names a dataset; the payload carries summary figures the
// presenter can surface.
func (s *Store) Fetch(ctx context.Context, body string) (map[string]any, error) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty fetch body")
	}
	dataset := strings.ToLower(fields[0])

	switch dataset {
	case "nations":
		return s.countPayload(ctx, "nations", "gs_nations")
	case "resources", "factions":
		return s.countPayload(ctx, "factions", "gs_faction_resources")
	case "intel", "councilors":
		return s.countPayload(ctx, "councilors", "gs_councilors")
	default:
		return nil, fmt.Errorf("unknown dataset %q", dataset)
	}
}

func (s *Store) countPayload(ctx context.Context, name, table string) (map[string]any, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	return map[string]any{"dataset": name, "rows": count}, nil
}

// Update executes a write-type action by recording it as a campaign
// directive. The decision ledger has already ruled on it.
func (s *Store) Update(ctx context.Context, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("empty directive body")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO directives (body) VALUES (?)`, body)
	if err != nil {
		return fmt.Errorf("record directive: %w", err)
	}
	return nil
}

// IndexDialogue appends one advisor line to the dialogue index. Used
// by the transcript layer as its secondary, non-authoritative index.
func (s *Store) IndexDialogue(ctx context.Context, sessionID, speaker, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dialogue (session_id, speaker, content) VALUES (?, ?, ?)`,
		sessionID, speaker, content)
	if err != nil {
		return fmt.Errorf("index dialogue: %w", err)
	}
	return nil
}
