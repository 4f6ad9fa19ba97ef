package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/imskit/imstore/errs"
)

// DefaultFlushInterval is how long the transaction coordinator lets writes
// accumulate before a non-forced flush commits them. Five seconds bounds
// data-loss exposure on a crash while amortizing commit cost across the
// thousands of scan inserts a bulk load performs in that window.
const DefaultFlushInterval = 5 * time.Second

// defaultSettleDelay is how long Flush waits after a commit before opening
// the next transaction, giving the storage layer a moment to settle.
const defaultSettleDelay = 50 * time.Millisecond

// TxnCoordinator owns the writer session's single open transaction and
// batches commits on a time-based policy.
//
// Exactly one transaction is open at all times between Begin and Close,
// except during the commit/reopen boundary inside Flush and between Pause
// and Resume. Not safe for concurrent use; the writer session is
// single-threaded by design.
type TxnCoordinator struct {
	db            *sql.DB
	tx            *sql.Tx
	flushInterval time.Duration
	settleDelay   time.Duration
	lastFlush     time.Time
	logger        *slog.Logger
}

// NewTxnCoordinator creates a coordinator over an open database handle.
// Begin must be called before the first write.
func NewTxnCoordinator(db *sql.DB, flushInterval time.Duration, logger *slog.Logger) *TxnCoordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &TxnCoordinator{
		db:            db,
		flushInterval: flushInterval,
		settleDelay:   defaultSettleDelay,
		logger:        logger,
	}
}

// Begin opens the session transaction. No-op if one is already open.
func (c *TxnCoordinator) Begin() error {
	if c.tx != nil {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return wrapStorageErr("begin transaction", err)
	}

	c.tx = tx
	c.lastFlush = time.Now()

	return nil
}

// Conn returns the connection writes must run against: the open transaction,
// or the bare handle between Pause and Resume.
func (c *TxnCoordinator) Conn() dbConn {
	if c.tx != nil {
		return c.tx
	}

	return c.db
}

// Flush applies the commit-batching policy.
//
// If force is true, or the time since the last flush has reached the flush
// interval, the current transaction commits, the coordinator waits briefly
// for the storage layer to settle, and a new transaction opens. Otherwise
// Flush is a no-op. Every mutating store operation calls Flush(false) so
// long-running bulk loads batch themselves; callers force a flush to
// guarantee durability at a checkpoint, such as after a migration or before
// handing the container to a reader.
func (c *TxnCoordinator) Flush(force bool) error {
	if c.tx == nil {
		return c.Begin()
	}
	if !force && time.Since(c.lastFlush) < c.flushInterval {
		return nil
	}

	if err := c.commit(); err != nil {
		return err
	}

	time.Sleep(c.settleDelay)

	tx, err := c.db.Begin()
	if err != nil {
		return wrapStorageErr("reopen transaction", err)
	}

	c.tx = tx
	c.lastFlush = time.Now()

	return nil
}

// Pause commits the open transaction and leaves the coordinator without one,
// for operations that cannot run inside a transaction (ATTACH DATABASE).
// Resume reopens it.
func (c *TxnCoordinator) Pause() error {
	if c.tx == nil {
		return nil
	}

	return c.commit()
}

// Resume reopens the session transaction after a Pause.
func (c *TxnCoordinator) Resume() error {
	return c.Begin()
}

// Close commits the session transaction permanently. The coordinator must
// not be used afterwards.
func (c *TxnCoordinator) Close() error {
	if c.tx == nil {
		return nil
	}

	return c.commit()
}

func (c *TxnCoordinator) commit() error {
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		if errs.IsTransientStorage(err) {
			// Logged distinctly but re-raised as-is: retry policy belongs to
			// the caller.
			c.logger.Error("transient storage failure during commit", "error", err)

			return fmt.Errorf("commit: %w: %v", errs.ErrTransientStorage, err)
		}

		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
