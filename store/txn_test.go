package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "txn.uimf")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db, path
}

// sideReader opens an independent connection, which only sees committed data.
func sideReader(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))

	return n
}

func TestTxnCoordinator_NonForcedFlushWithinIntervalDoesNotCommit(t *testing.T) {
	db, path := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)

	c := NewTxnCoordinator(db, time.Hour, nil)
	require.NoError(t, c.Begin())

	_, err = c.Conn().Exec(`INSERT INTO t (x) VALUES (1)`)
	require.NoError(t, err)
	require.NoError(t, c.Flush(false))
	_, err = c.Conn().Exec(`INSERT INTO t (x) VALUES (2)`)
	require.NoError(t, err)
	require.NoError(t, c.Flush(false))

	// Two writes within the interval: still uncommitted.
	require.Equal(t, 0, countRows(t, sideReader(t, path), "t"))

	require.NoError(t, c.Close())
	require.Equal(t, 2, countRows(t, sideReader(t, path), "t"))
}

func TestTxnCoordinator_ForcedFlushCommitsAndReopens(t *testing.T) {
	db, path := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)

	c := NewTxnCoordinator(db, time.Hour, nil)
	c.settleDelay = time.Millisecond
	require.NoError(t, c.Begin())

	_, err = c.Conn().Exec(`INSERT INTO t (x) VALUES (1)`)
	require.NoError(t, err)
	require.NoError(t, c.Flush(true))

	require.Equal(t, 1, countRows(t, sideReader(t, path), "t"))

	// The window reopened: further writes batch again.
	_, err = c.Conn().Exec(`INSERT INTO t (x) VALUES (2)`)
	require.NoError(t, err)
	require.Equal(t, 1, countRows(t, sideReader(t, path), "t"))
	require.NoError(t, c.Close())
	require.Equal(t, 2, countRows(t, sideReader(t, path), "t"))
}

func TestTxnCoordinator_ElapsedIntervalTriggersCommit(t *testing.T) {
	db, path := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)

	c := NewTxnCoordinator(db, time.Nanosecond, nil)
	c.settleDelay = time.Millisecond
	require.NoError(t, c.Begin())

	_, err = c.Conn().Exec(`INSERT INTO t (x) VALUES (1)`)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	require.NoError(t, c.Flush(false))

	require.Equal(t, 1, countRows(t, sideReader(t, path), "t"))
	require.NoError(t, c.Close())
}

func TestTxnCoordinator_PauseResume(t *testing.T) {
	db, path := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)

	c := NewTxnCoordinator(db, time.Hour, nil)
	require.NoError(t, c.Begin())

	_, err = c.Conn().Exec(`INSERT INTO t (x) VALUES (1)`)
	require.NoError(t, err)
	require.NoError(t, c.Pause())
	require.Equal(t, 1, countRows(t, sideReader(t, path), "t"))

	// Between Pause and Resume, Conn falls back to the bare handle.
	_, err = c.Conn().Exec(`INSERT INTO t (x) VALUES (2)`)
	require.NoError(t, err)
	require.Equal(t, 2, countRows(t, sideReader(t, path), "t"))

	require.NoError(t, c.Resume())
	require.NoError(t, c.Close())
}
