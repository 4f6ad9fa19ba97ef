package store

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/imskit/imstore/param"
)

// MirrorState describes which schema generations a container currently
// carries.
type MirrorState int

const (
	// NoLegacyTables: only the modern schema (or no schema at all) exists.
	NoLegacyTables MirrorState = iota
	// LegacyOnly: a first-generation container; modern tables are absent.
	LegacyOnly
	// BothPresentUnsynced: both generations exist but the legacy side has
	// not been backfilled from the modern side in this session.
	BothPresentUnsynced
	// BothPresentSynced: both generations exist and dual-writing keeps the
	// legacy side at least as fresh as the modern side.
	BothPresentSynced
)

func (s MirrorState) String() string {
	switch s {
	case NoLegacyTables:
		return "NoLegacyTables"
	case LegacyOnly:
		return "LegacyOnly"
	case BothPresentUnsynced:
		return "BothPresentUnsynced"
	case BothPresentSynced:
		return "BothPresentSynced"
	default:
		return "Unknown"
	}
}

// DetectMirrorState inspects the container and classifies its schema
// generations.
func DetectMirrorState(conn dbConn) (MirrorState, error) {
	legacy, err := TableExists(conn, "Global_Parameters")
	if err != nil {
		return NoLegacyTables, err
	}
	modern, err := TableExists(conn, "GlobalParams")
	if err != nil {
		return NoLegacyTables, err
	}

	switch {
	case legacy && !modern:
		return LegacyOnly, nil
	case legacy && modern:
		return BothPresentUnsynced, nil
	default:
		return NoLegacyTables, nil
	}
}

// LegacyMirror duplicates every modern parameter write into the
// first-generation fixed-column tables.
//
// The modern store delegates to the mirror through a single point; the
// mirror owns all legacy-schema knowledge: the key-to-column mapping, the
// lazy materialization of a frame's first legacy row, and the lazy addition
// of columns that postdate the legacy schema's original release.
//
// Keys without a legacy column mapping are skipped with a warning, not an
// error: an old reader could never have asked for them.
type LegacyMirror struct {
	coord   *TxnCoordinator
	catalog *param.Catalog
	logger  *slog.Logger
	enabled bool

	// Session-local state: which frames already have a legacy row, whether
	// the single legacy global row exists, and the legacy tables' current
	// column sets.
	framesMaterialized map[int]struct{}
	globalRowReady     bool
	frameColumns       map[string]struct{}
	globalColumns      map[string]struct{}
}

// NewLegacyMirror creates a mirror running against the coordinator's
// transaction. The mirror starts enabled.
func NewLegacyMirror(coord *TxnCoordinator, catalog *param.Catalog, logger *slog.Logger) *LegacyMirror {
	if logger == nil {
		logger = slog.Default()
	}

	return &LegacyMirror{
		coord:              coord,
		catalog:            catalog,
		logger:             logger,
		enabled:            true,
		framesMaterialized: make(map[int]struct{}),
	}
}

// setEnabled toggles dual-writing. Migration disables the mirror while
// backfilling the modern store from legacy rows to avoid a write-back loop.
func (m *LegacyMirror) setEnabled(enabled bool) {
	m.enabled = enabled
}

// Enabled reports whether dual-writing is active.
func (m *LegacyMirror) Enabled() bool {
	return m.enabled
}

// MirrorGlobal applies a modern global-parameter write to the legacy
// Global_Parameters row.
func (m *LegacyMirror) MirrorGlobal(key param.GlobalKey, value param.Value) error {
	if !m.enabled {
		return nil
	}

	column, ok := param.LegacyGlobalColumn(key)
	if !ok {
		m.logger.Warn("global param has no legacy column mapping, skipping mirror",
			"param", key.String())

		return nil
	}

	if err := m.ensureGlobalColumns(); err != nil {
		return err
	}
	if _, ok := m.globalColumns[column]; !ok {
		if err := m.addColumn("Global_Parameters", column, value.Type(), m.globalColumns); err != nil {
			return err
		}
	}
	if err := m.ensureGlobalRow(); err != nil {
		return err
	}

	conn := m.coord.Conn()
	op := fmt.Sprintf("mirror global param %s to legacy column %s", key, column)

	_, err := conn.Exec(fmt.Sprintf(`UPDATE Global_Parameters SET %s = ?`, column), legacyArg(value))
	if err != nil {
		return wrapStorageErr(op, err)
	}

	return nil
}

// MirrorFrame applies a modern frame-parameter write to the frame's legacy
// Frame_Parameters row, materializing the row with catalog defaults on the
// frame's first mirrored parameter.
func (m *LegacyMirror) MirrorFrame(frameNum int, key param.FrameKey, value param.Value) error {
	if !m.enabled {
		return nil
	}

	column, ok := param.LegacyFrameColumn(key)
	if !ok {
		m.logger.Warn("frame param has no legacy column mapping, skipping mirror",
			"frame", frameNum, "param", key.String())

		return nil
	}

	if err := m.ensureFrameColumns(); err != nil {
		return err
	}
	if _, ok := m.frameColumns[column]; !ok {
		if err := m.addColumn("Frame_Parameters", column, value.Type(), m.frameColumns); err != nil {
			return err
		}
	}
	if err := m.ensureFrameRow(frameNum); err != nil {
		return err
	}

	conn := m.coord.Conn()
	op := fmt.Sprintf("mirror frame %d param %s to legacy column %s", frameNum, key, column)

	_, err := conn.Exec(fmt.Sprintf(`UPDATE Frame_Parameters SET %s = ? WHERE FrameNum = ?`, column),
		legacyArg(value), frameNum)
	if err != nil {
		return wrapStorageErr(op, err)
	}

	return nil
}

// ensureGlobalRow inserts the single legacy global row on first mirror.
func (m *LegacyMirror) ensureGlobalRow() error {
	if m.globalRowReady {
		return nil
	}

	conn := m.coord.Conn()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM Global_Parameters`).Scan(&n); err != nil {
		return wrapStorageErr("materialize legacy global row", err)
	}
	if n == 0 {
		if _, err := conn.Exec(`INSERT INTO Global_Parameters (NumFrames) VALUES (0)`); err != nil {
			return wrapStorageErr("materialize legacy global row", err)
		}
	}

	m.globalRowReady = true

	return nil
}

// ensureFrameRow lazily materializes a frame's legacy row. The set of frame
// numbers already materialized is tracked per session so repeated mirrors of
// the same frame do not trip the primary key.
func (m *LegacyMirror) ensureFrameRow(frameNum int) error {
	if _, ok := m.framesMaterialized[frameNum]; ok {
		return nil
	}

	conn := m.coord.Conn()
	op := fmt.Sprintf("materialize legacy row for frame %d", frameNum)

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM Frame_Parameters WHERE FrameNum = ?`, frameNum).Scan(&n); err != nil {
		return wrapStorageErr(op, err)
	}
	if n == 0 {
		_, err := conn.Exec(
			`INSERT INTO Frame_Parameters (FrameNum, StartTime, Duration, Accumulations, FrameType, Scans)
			 VALUES (?, 0, 0, 0, ?, 0)`,
			frameNum, defaultFrameTypeArg(m.catalog))
		if err != nil {
			return wrapStorageErr(op, err)
		}
	}

	m.framesMaterialized[frameNum] = struct{}{}

	return nil
}

func (m *LegacyMirror) ensureGlobalColumns() error {
	if m.globalColumns != nil {
		return nil
	}

	cols, err := tableColumns(m.coord.Conn(), "Global_Parameters")
	if err != nil {
		return err
	}
	m.globalColumns = cols

	return nil
}

func (m *LegacyMirror) ensureFrameColumns() error {
	if m.frameColumns != nil {
		return nil
	}

	cols, err := tableColumns(m.coord.Conn(), "Frame_Parameters")
	if err != nil {
		return err
	}
	m.frameColumns = cols

	return nil
}

// addColumn grows a legacy table with a column that postdates its original
// release, instead of requiring an upfront schema version bump.
func (m *LegacyMirror) addColumn(table, column string, typ param.DataType, known map[string]struct{}) error {
	sqlType := "TEXT"
	switch typ {
	case param.TypeInt:
		sqlType = "INTEGER"
	case param.TypeDouble:
		sqlType = "REAL"
	}

	conn := m.coord.Conn()
	op := fmt.Sprintf("add legacy column %s.%s", table, column)

	_, err := conn.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, sqlType))
	if err != nil {
		return wrapStorageErr(op, err)
	}

	m.logger.Info("added legacy column", "table", table, "column", column, "type", sqlType)
	known[column] = struct{}{}

	return nil
}

// legacyArg converts a value to the driver argument for a legacy column.
// Numeric values bind natively so legacy numeric columns stay numeric; NaN
// doubles bind as the literal token "NaN" because the substrate has no NaN
// representation and a NULL would lose the "explicitly undefined" semantics.
func legacyArg(v param.Value) any {
	switch v.Type() {
	case param.TypeInt:
		n, _ := v.AsInt64()
		return n
	case param.TypeDouble:
		f, _ := v.AsFloat64()
		if math.IsNaN(f) {
			return "NaN"
		}

		return f
	default:
		return v.Format()
	}
}

func defaultFrameTypeArg(catalog *param.Catalog) any {
	def, err := catalog.FrameDef(param.FrameType)
	if err != nil {
		return 1
	}

	return legacyArg(def.Default)
}
