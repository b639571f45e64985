package worldstate

import (
	"context"
	"fmt"
	"strings"
)

// Report builds the sectioned plain-text world-state report the
// archival advisor speaks from. An empty campaign database produces an
// empty report; the prompt layer substitutes its own placeholder.
func (s *Store) Report(ctx context.Context, date string) (string, error) {
	var sections []string

	header, err := s.sectionHeader(ctx, date)
	if err != nil {
		return "", err
	}
	if header != "" {
		sections = append(sections, header)
	}

	for _, build := range []func(context.Context) (string, error){
		s.sectionNations,
		s.sectionResources,
		s.sectionIntel,
	} {
		sec, err := build(ctx)
		if err != nil {
			return "", err
		}
		if sec != "" {
			sections = append(sections, sec)
		}
	}

	return strings.Join(sections, "\n\n"), nil
}

func (s *Store) sectionHeader(ctx context.Context, date string) (string, error) {
	var faction string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'faction_slug'`).Scan(&faction)
	if err != nil {
		return "", nil // no metadata yet, nothing to report
	}
	return fmt.Sprintf("## Campaign\nDate: %s  |  Faction: %s", date, faction), nil
}

func (s *Store) sectionNations(ctx context.Context) (string, error) {
	// Major nations only (>100B GDP).
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, gdp_t, gdp_delta_pct, unrest, unrest_delta, democracy, nukes
		FROM gs_nations
		WHERE gdp_t > 0.1
		ORDER BY gdp_t DESC
		LIMIT 30`)
	if err != nil {
		return "", fmt.Errorf("query nations: %w", err)
	}
	defer rows.Close()

	lines := []string{"## Nations", "Nation,GDP,dGDP,Unrest,dUnrest,Demo,Nukes"}
	count := 0
	for rows.Next() {
		var name string
		var gdp, gdpDelta, unrest, unrestDelta, democracy float64
		var nukes int
		if err := rows.Scan(&name, &gdp, &gdpDelta, &unrest, &unrestDelta, &democracy, &nukes); err != nil {
			return "", fmt.Errorf("scan nation: %w", err)
		}
		lines = append(lines, fmt.Sprintf("%s,%.2fT,%+.1f%%,%.2f,%+.2f,%.1f,%d",
			name, gdp, gdpDelta, unrest, unrestDelta, democracy, nukes))
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate nations: %w", err)
	}
	if count == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Store) sectionResources(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT faction_name, is_player, money, influence, ops, boost
		FROM gs_faction_resources
		ORDER BY is_player DESC, faction_name`)
	if err != nil {
		return "", fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	lines := []string{"## Faction Resources", "Faction,Money,Influence,Ops,Boost"}
	count := 0
	for rows.Next() {
		var name string
		var isPlayer, money, influence, ops int
		var boost float64
		if err := rows.Scan(&name, &isPlayer, &money, &influence, &ops, &boost); err != nil {
			return "", fmt.Errorf("scan resources: %w", err)
		}
		label := name
		if isPlayer == 1 {
			label = name + " (player)"
		}
		lines = append(lines, fmt.Sprintf("%s,%d,%d,%d,%.1f", label, money, influence, ops, boost))
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate resources: %w", err)
	}
	if count == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Store) sectionIntel(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, councilor_type, faction_name, intel_level, suspicion, location
		FROM gs_councilors
		WHERE is_player = 0 AND intel_level > 0
		ORDER BY intel_level DESC
		LIMIT 20`)
	if err != nil {
		return "", fmt.Errorf("query councilors: %w", err)
	}
	defer rows.Close()

	lines := []string{"## Known Enemy Councilors", "Name,Type,Faction,Intel,Suspicion,Location"}
	count := 0
	for rows.Next() {
		var name, ctype, faction, location string
		var intel, suspicion float64
		if err := rows.Scan(&name, &ctype, &faction, &intel, &suspicion, &location); err != nil {
			return "", fmt.Errorf("scan councilor: %w", err)
		}
		lines = append(lines, fmt.Sprintf("%s,%s,%s,%.1f,%.1f,%s",
			name, ctype, faction, intel, suspicion, location))
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate councilors: %w", err)
	}
	if count == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n"), nil
}
