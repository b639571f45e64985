package worldstate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		Date:    "2029-03-14",
		Faction: "resistance",
		Nations: []Nation{
			{Key: 1, Name: "United States", GDPT: 22.4, GDPDeltaPct: 1.2, Unrest: 3.1, Democracy: 7.8, Nukes: 5428},
			{Key: 2, Name: "Vatican City", GDPT: 0.001},
		},
		Resources: []FactionResources{
			{Key: 10, Name: "The Resistance", IsPlayer: true, Money: 420, Influence: 35, Ops: 12, Boost: 8.5},
			{Key: 11, Name: "The Servants", Money: 900, Influence: 60, Ops: 40, Boost: 2.0},
		},
		Councilors: []Councilor{
			{Key: 100, Name: "Elena Volkova", Type: "Spy", Faction: "The Servants", IntelLevel: 0.8, Suspicion: 0.3, Location: "Moscow"},
			{Key: 101, Name: "Our Agent", Type: "Operative", Faction: "The Resistance", IsPlayer: true, IntelLevel: 1.0},
			{Key: 102, Name: "Unknown Agent", Type: "Fixer", Faction: "The Servants", IntelLevel: 0},
		},
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "campaign", "campaign.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIngestAndReport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Ingest(ctx, testSnapshot()))

	report, err := s.Report(ctx, "2029-03-14")
	require.NoError(t, err)

	assert.Contains(t, report, "Date: 2029-03-14  |  Faction: resistance")
	assert.Contains(t, report, "## Nations")
	assert.Contains(t, report, "United States,22.40T")
	assert.NotContains(t, report, "Vatican City", "minor nations stay out of the report")
	assert.Contains(t, report, "The Resistance (player),420,35,12,8.5")
	assert.Contains(t, report, "## Known Enemy Councilors")
	assert.Contains(t, report, "Elena Volkova,Spy,The Servants,0.8,0.3,Moscow")
	assert.NotContains(t, report, "Our Agent", "friendly councilors are not intel")
	assert.NotContains(t, report, "Unknown Agent", "zero intel means unseen")
}

func TestIngestReplacesPriorState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Ingest(ctx, testSnapshot()))

	updated := testSnapshot()
	updated.Date = "2029-04-01"
	updated.Nations = []Nation{{Key: 3, Name: "China", GDPT: 18.0}}
	require.NoError(t, s.Ingest(ctx, updated))

	report, err := s.Report(ctx, "2029-04-01")
	require.NoError(t, err)
	assert.Contains(t, report, "China")
	assert.NotContains(t, report, "United States")
}

func TestIngestFailureKeepsPriorState(t *testing.T) {
	// A snapshot that fails mid-load must roll back whole, not leave
	// the store cleared with only some sections reloaded.
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Ingest(ctx, testSnapshot()))

	bad := testSnapshot()
	bad.Date = "2029-05-01"
	bad.Nations = append(bad.Nations, Nation{Key: 1, Name: "Duplicate Key"})
	require.Error(t, s.Ingest(ctx, bad))

	report, err := s.Report(ctx, "2029-03-14")
	require.NoError(t, err)
	assert.Contains(t, report, "United States", "prior nations survive a failed ingest")
	assert.Contains(t, report, "Date: 2029-03-14  |  Faction: resistance")
	assert.NotContains(t, report, "2029-05-01")
}

func TestReportOnEmptyStore(t *testing.T) {
	s := openTestStore(t)
	report, err := s.Report(context.Background(), "2029-01-01")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(report))
}

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	data, err := json.Marshal(testSnapshot())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	snap, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "2029-03-14", snap.Date)
	assert.Len(t, snap.Nations, 2)
}

func TestLoadSnapshotMissingDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"faction":"resistance"}`), 0o644))

	_, err := LoadSnapshot(path)
	require.Error(t, err)
}

func TestFetchDatasets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Ingest(ctx, testSnapshot()))

	payload, err := s.Fetch(ctx, "nations")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"dataset": "nations", "rows": 2}, payload)

	payload, err = s.Fetch(ctx, "councilors with extra words")
	require.NoError(t, err)
	assert.Equal(t, "councilors", payload["dataset"])
}

func TestFetchUnknownDataset(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Fetch(context.Background(), "weather")
	require.Error(t, err)
}

func TestFetchEmptyBody(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Fetch(context.Background(), "   ")
	require.Error(t, err)
}

func TestUpdateRecordsDirective(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, "directive: fund the boost program"))

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM directives WHERE body = ?`,
		"directive: fund the boost program").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpdateEmptyBody(t *testing.T) {
	s := openTestStore(t)
	require.Error(t, s.Update(context.Background(), "  "))
}

func TestIndexDialogue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.IndexDialogue(ctx, "sess-1", "MAYA", "We burn now."))
	require.NoError(t, s.IndexDialogue(ctx, "sess-1", "VIKTOR", "We wait."))

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dialogue WHERE session_id = 'sess-1'`).Scan(&count))
	assert.Equal(t, 2, count)
}
