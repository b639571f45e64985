package worldstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Snapshot is the campaign state extract consumed by ingest. It is the
// flattened form of an external application's save-state blob.
type Snapshot struct {
	Date       string             `json:"date"`
	Faction    string             `json:"faction"`
	Nations    []Nation           `json:"nations"`
	Resources  []FactionResources `json:"faction_resources"`
	Councilors []Councilor        `json:"councilors"`
}

// Nation is one nation row.
type Nation struct {
	Key         int     `json:"nation_key"`
	Name        string  `json:"name"`
	GDPT        float64 `json:"gdp_t"`
	GDPDeltaPct float64 `json:"gdp_delta_pct"`
	Unrest      float64 `json:"unrest"`
	UnrestDelta float64 `json:"unrest_delta"`
	Democracy   float64 `json:"democracy"`
	Nukes       int     `json:"nukes"`
}

// FactionResources is one faction's resource pool.
type FactionResources struct {
	Key       int     `json:"faction_key"`
	Name      string  `json:"faction_name"`
	IsPlayer  bool    `json:"is_player"`
	Money     int     `json:"money"`
	Influence int     `json:"influence"`
	Ops       int     `json:"ops"`
	Boost     float64 `json:"boost"`
}

// Councilor is one agent, friendly or enemy.
type Councilor struct {
	Key        int     `json:"councilor_key"`
	Name       string  `json:"name"`
	Type       string  `json:"councilor_type"`
	Faction    string  `json:"faction_name"`
	IsPlayer   bool    `json:"is_player"`
	IntelLevel float64 `json:"intel_level"`
	Suspicion  float64 `json:"suspicion"`
	Location   string  `json:"location"`
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Date == "" {
		return nil, fmt.Errorf("snapshot missing date")
	}
	return &snap, nil
}

// Ingest replaces the game-state tables with the snapshot contents.
// The clear and the reload commit as one transaction, so a failed
// ingest leaves the prior state intact rather than a half-cleared
// store.
func (s *Store) Ingest(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"gs_nations", "gs_faction_resources", "gs_councilors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := ingestNations(ctx, tx, snap.Nations); err != nil {
		return err
	}
	if err := ingestResources(ctx, tx, snap.Resources); err != nil {
		return err
	}
	if err := ingestCouncilors(ctx, tx, snap.Councilors); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, snap.Date, snap.Faction); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest: %w", err)
	}

	s.logger.Info("snapshot ingested",
		zap.String("date", snap.Date),
		zap.Int("nations", len(snap.Nations)),
		zap.Int("factions", len(snap.Resources)),
		zap.Int("councilors", len(snap.Councilors)))
	return nil
}

func setMeta(ctx context.Context, tx *sql.Tx, date, faction string) error {
	for key, value := range map[string]string{
		"iso_date":     date,
		"faction_slug": faction,
	} {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		if err != nil {
			return fmt.Errorf("write meta %s: %w", key, err)
		}
	}
	return nil
}

func ingestNations(ctx context.Context, tx *sql.Tx, nations []Nation) error {
	for _, n := range nations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gs_nations
			(nation_key, name, gdp_t, gdp_delta_pct, unrest, unrest_delta, democracy, nukes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			n.Key, n.Name, n.GDPT, n.GDPDeltaPct, n.Unrest, n.UnrestDelta, n.Democracy, n.Nukes)
		if err != nil {
			return fmt.Errorf("insert nation %q: %w", n.Name, err)
		}
	}
	return nil
}

func ingestResources(ctx context.Context, tx *sql.Tx, resources []FactionResources) error {
	for _, r := range resources {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gs_faction_resources
			(faction_key, faction_name, is_player, money, influence, ops, boost)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.Key, r.Name, boolToInt(r.IsPlayer), r.Money, r.Influence, r.Ops, r.Boost)
		if err != nil {
			return fmt.Errorf("insert faction %q: %w", r.Name, err)
		}
	}
	return nil
}

func ingestCouncilors(ctx context.Context, tx *sql.Tx, councilors []Councilor) error {
	for _, c := range councilors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gs_councilors
			(councilor_key, name, councilor_type, faction_name, is_player, intel_level, suspicion, location)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Key, c.Name, c.Type, c.Faction, boolToInt(c.IsPlayer), c.IntelLevel, c.Suspicion, c.Location)
		if err != nil {
			return fmt.Errorf("insert councilor %q: %w", c.Name, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
