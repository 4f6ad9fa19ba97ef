package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/imskit/imstore/errs"
)

// FileVersion is the schema version written to Version_Info by this package.
const FileVersion = "3.0"

// dbConn is the subset of database/sql shared by *sql.DB and *sql.Tx. Store
// components run against the transaction coordinator's current transaction
// through this interface.
type dbConn interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

var modernDDL = []string{
	`CREATE TABLE IF NOT EXISTS GlobalParams (
		ParamID INTEGER PRIMARY KEY,
		ParamName TEXT NOT NULL,
		ParamValue TEXT,
		ParamDataType TEXT NOT NULL,
		ParamDescription TEXT)`,
	`CREATE TABLE IF NOT EXISTS FrameParamKeys (
		ParamID INTEGER PRIMARY KEY,
		ParamName TEXT NOT NULL,
		ParamDataType TEXT NOT NULL,
		ParamDescription TEXT)`,
	`CREATE TABLE IF NOT EXISTS FrameParams (
		FrameNum INTEGER NOT NULL,
		ParamID INTEGER NOT NULL,
		ParamValue TEXT,
		PRIMARY KEY (FrameNum, ParamID))`,
	`CREATE INDEX IF NOT EXISTS ix_FrameParams_ParamID ON FrameParams (ParamID, FrameNum)`,
	`CREATE TABLE IF NOT EXISTS FrameScans (
		FrameNum INTEGER NOT NULL,
		ScanNum INTEGER NOT NULL,
		NonZeroCount INTEGER NOT NULL,
		BPI INTEGER NOT NULL,
		BPI_MZ REAL NOT NULL,
		TIC INTEGER NOT NULL,
		Intensities BLOB,
		PRIMARY KEY (FrameNum, ScanNum))`,
	`CREATE TABLE IF NOT EXISTS Version_Info (
		Version_ID INTEGER PRIMARY KEY AUTOINCREMENT,
		File_Version TEXT NOT NULL,
		Calling_Assembly_Name TEXT,
		Calling_Assembly_Version TEXT,
		Entered TEXT NOT NULL)`,
}

// legacyDDL creates the legacy tables with the column set of the original
// release. Columns that were added to the legacy schema later (Decoded,
// CalibrationDone, the funnel and quadrupole pressures, the voltages) are
// deliberately absent: the mirror adds them lazily the first time a value
// needs one, the same way old files grew them in the field.
var legacyDDL = []string{
	`CREATE TABLE IF NOT EXISTS Global_Parameters (
		DateStarted TEXT,
		NumFrames INTEGER,
		TimeOffset INTEGER,
		BinWidth REAL,
		Bins INTEGER,
		TOFCorrectionTime REAL,
		TOFIntensityType TEXT,
		DatasetType TEXT,
		Prescan_TOFPulses INTEGER,
		Prescan_Accumulations INTEGER,
		Prescan_TICThreshold INTEGER,
		Prescan_Continuous INTEGER,
		Prescan_Profile TEXT,
		Instrument_Name TEXT)`,
	`CREATE TABLE IF NOT EXISTS Frame_Parameters (
		FrameNum INTEGER PRIMARY KEY,
		StartTime REAL,
		Duration REAL,
		Accumulations INTEGER,
		FrameType INTEGER,
		Scans INTEGER,
		AverageTOFLength REAL,
		CalibrationSlope REAL,
		CalibrationIntercept REAL,
		a2 REAL, b2 REAL, c2 REAL, d2 REAL, e2 REAL, f2 REAL,
		Temperature REAL,
		PressureFront REAL,
		PressureBack REAL,
		FragmentationProfile TEXT)`,
}

// TableExists reports whether a table is present in the container.
func TableExists(conn dbConn, name string) (bool, error) {
	var n int
	err := conn.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}

	return n > 0, nil
}

// ColumnExists reports whether a table currently has a column. The legacy
// mirror uses it to decide when a column must be added lazily.
func ColumnExists(conn dbConn, table, column string) (bool, error) {
	rows, err := conn.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}

	return false, rows.Err()
}

// tableColumns returns the current column set of a table.
func tableColumns(conn dbConn, table string) (map[string]struct{}, error) {
	rows, err := conn.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = struct{}{}
	}

	return cols, rows.Err()
}

// CreateModernTables creates the entity-attribute-value schema and the scan
// and version tables. Idempotent.
func CreateModernTables(conn dbConn) error {
	for _, stmt := range modernDDL {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("create modern schema: %w", err)
		}
	}

	return nil
}

// CreateLegacyTables creates the fixed-column legacy schema with its original
// release column set. Idempotent.
func CreateLegacyTables(conn dbConn) error {
	for _, stmt := range legacyDDL {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("create legacy schema: %w", err)
		}
	}

	return nil
}

// wrapStorageErr adds operation context to a storage error and maps it onto
// the shared taxonomy: missing tables become ErrSchemaMissing, and
// corruption or lock signals become ErrTransientStorage so the caller can
// pick a retry policy. Transient errors are for the caller to handle; this
// layer never retries.
func wrapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%s: %w: %v", op, errs.ErrSchemaMissing, err)
	}
	if errs.IsTransientStorage(err) {
		return fmt.Errorf("%s: %w: %v", op, errs.ErrTransientStorage, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
