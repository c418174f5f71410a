package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"restituiri/internal/config"
	"restituiri/internal/storage"
)

var fixturePage = filepath.Join("..", "extract", "testdata", "dosar.html")

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedFixture parses the two-address fixture page into db as 1.html.
func seedFixture(t *testing.T, db *storage.DB) {
	t.Helper()
	dir := t.TempDir()
	blob, err := os.ReadFile(fixturePage)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.html"), blob, 0o644))

	res, err := NewParseService(db, config.Config{}, nil).ParseDir(dir, 1)
	require.NoError(t, err)
	require.Equal(t, 2, res.Rows)
}
