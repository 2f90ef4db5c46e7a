package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, dbPath, db.Path())

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestWithTx(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.WithTx(func(tx *Tx) error {
		_, err := tx.Exec("INSERT INTO plans (name, created_at, updated_at) VALUES ('kept', 0, 0)")
		return err
	}))

	testErr := errors.New("boom")
	err := db.WithTx(func(tx *Tx) error {
		if _, err := tx.Exec("INSERT INTO plans (name, created_at, updated_at) VALUES ('dropped', 0, 0)"); err != nil {
			return err
		}
		return testErr
	})
	assert.ErrorIs(t, err, testErr)

	var names []string
	rows, err := db.Query("SELECT name FROM plans ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	assert.Equal(t, []string{"kept"}, names)
}

func TestClose(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var result int
	assert.Error(t, db.QueryRow("SELECT 1").Scan(&result), "query should fail after close")
}
