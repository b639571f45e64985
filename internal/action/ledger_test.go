package action

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLedgerClaimAndGet(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "campaign.db"))
	ledger, err := NewSQLiteLedger(db)
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := ledger.Get(ctx, "update fund boost")
	require.NoError(t, err)
	assert.False(t, found)

	won, err := ledger.Claim(ctx, "update fund boost", RulingAllowed)
	require.NoError(t, err)
	assert.True(t, won)

	ruling, found, err := ledger.Get(ctx, "update fund boost")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, RulingAllowed, ruling)
}

func TestLedgerClaimFirstWriteWins(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "campaign.db"))
	ledger, err := NewSQLiteLedger(db)
	require.NoError(t, err)
	ctx := context.Background()

	won, err := ledger.Claim(ctx, "k", RulingDenied)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = ledger.Claim(ctx, "k", RulingAllowed)
	require.NoError(t, err)
	assert.False(t, won, "second claim must not overwrite")

	ruling, _, err := ledger.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, RulingDenied, ruling, "first writer's ruling survives")
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.db")
	ctx := context.Background()

	db := openTestDB(t, path)
	ledger, err := NewSQLiteLedger(db)
	require.NoError(t, err)
	_, err = ledger.Claim(ctx, "update recruit agent", RulingAllowed)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2 := openTestDB(t, path)
	ledger2, err := NewSQLiteLedger(db2)
	require.NoError(t, err)

	ruling, found, err := ledger2.Get(ctx, "update recruit agent")
	require.NoError(t, err)
	assert.True(t, found, "rulings persist across process restarts")
	assert.Equal(t, RulingAllowed, ruling)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "update fund boost", NormalizeKey("  UPDATE Fund Boost  "))
	assert.Equal(t, NormalizeKey("UPDATE X"), NormalizeKey("update x"))
}
