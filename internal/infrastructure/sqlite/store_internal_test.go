package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNFor(t *testing.T) {
	assert.Equal(t, "meals.db?_foreign_keys=on&_busy_timeout=5000", dsnFor("meals.db"))
	assert.Equal(t, "file:meals.db?cache=shared&_foreign_keys=on&_busy_timeout=5000", dsnFor("file:meals.db?cache=shared"))
}

func TestNew_PathWithQueryKeepsOptions(t *testing.T) {
	s, err := New("file:" + t.TempDir() + "/meals.db?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var busy, fk int
	require.NoError(t, s.db.QueryRow(`PRAGMA busy_timeout`).Scan(&busy))
	require.NoError(t, s.db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 5000, busy)
	assert.Equal(t, 1, fk)
}
