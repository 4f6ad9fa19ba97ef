package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/imskit/imstore/param"
)

// FrameRange bounds a bulk frame operation to an inclusive frame-number
// interval.
type FrameRange struct {
	First int
	Last  int
}

// ParamStore maintains the modern entity-attribute-value tables for global
// and per-frame parameters with update-then-insert semantics.
//
// At most one row exists per global key and per (frame, key) pair. That is
// enforced by attempting an UPDATE first and inserting only when no row
// matched; the substrate's upsert primitive is deliberately not used so the
// same logic runs on storage engines without one.
type ParamStore struct {
	coord   *TxnCoordinator
	catalog *param.Catalog
	mirror  *LegacyMirror // nil when mirroring is disabled
	logger  *slog.Logger

	// Session-local caches. globalCache mirrors the GlobalParams table;
	// knownFrameKeys tracks which keys are already persisted in
	// FrameParamKeys so validation skips the catalog round-trip.
	globalCache    map[param.GlobalKey]param.Value
	knownFrameKeys map[param.FrameKey]struct{}
}

// NewParamStore creates a parameter store running against the coordinator's
// transaction.
func NewParamStore(coord *TxnCoordinator, catalog *param.Catalog, logger *slog.Logger) *ParamStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &ParamStore{
		coord:          coord,
		catalog:        catalog,
		logger:         logger,
		globalCache:    make(map[param.GlobalKey]param.Value),
		knownFrameKeys: make(map[param.FrameKey]struct{}),
	}
}

// SetMirror attaches (or detaches, with nil) the legacy mirror. The store
// itself carries no "is mirroring enabled" branching beyond this single
// delegation point.
func (s *ParamStore) SetMirror(m *LegacyMirror) {
	s.mirror = m
}

// AddUpdateGlobalParam writes a global parameter, creating the row on first
// write and updating it in place thereafter.
//
// The value is coerced to the key's declared data type before writing; a
// value that cannot represent the declared type is rejected. The in-memory
// global cache updates synchronously, and when mirroring is enabled the
// legacy row is updated in the same logical operation.
//
// Returns ErrSchemaMissing if the GlobalParams table does not exist.
func (s *ParamStore) AddUpdateGlobalParam(key param.GlobalKey, value param.Value) error {
	if err := s.coord.Flush(false); err != nil {
		return err
	}

	def, err := s.catalog.GlobalDef(key)
	if err != nil {
		return err
	}

	coerced, err := value.Coerce(def.Type)
	if err != nil {
		return fmt.Errorf("global param %s: %w", def.Name, err)
	}

	conn := s.coord.Conn()
	op := fmt.Sprintf("add/update global param %s", def.Name)

	res, err := conn.Exec(`UPDATE GlobalParams SET ParamValue = ? WHERE ParamID = ?`,
		coerced.Format(), int(key))
	if err != nil {
		return wrapStorageErr(op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr(op, err)
	}
	if affected == 0 {
		_, err = conn.Exec(
			`INSERT INTO GlobalParams (ParamID, ParamName, ParamValue, ParamDataType, ParamDescription)
			 VALUES (?, ?, ?, ?, ?)`,
			int(key), def.Name, coerced.Format(), def.Type.String(), def.Description)
		if err != nil {
			return wrapStorageErr(op, err)
		}
	}

	s.globalCache[key] = coerced

	if s.mirror != nil {
		if err := s.mirror.MirrorGlobal(key, coerced); err != nil {
			return err
		}
	}

	return nil
}

// GlobalParam returns a global parameter from the session cache.
func (s *ParamStore) GlobalParam(key param.GlobalKey) (param.Value, bool) {
	v, ok := s.globalCache[key]
	return v, ok
}

// AddUpdateFrameParam writes a per-frame parameter with the same
// update-then-insert semantics as global parameters, scoped to
// (frameNum, key).
//
// The key is validated first: a key not yet present in the FrameParamKeys
// catalog table is registered there before the value row references it.
// Returns ErrSchemaMissing if the FrameParams table does not exist.
func (s *ParamStore) AddUpdateFrameParam(frameNum int, key param.FrameKey, value param.Value) error {
	if err := s.coord.Flush(false); err != nil {
		return err
	}

	def, err := s.validateKey(key)
	if err != nil {
		return err
	}

	coerced, err := value.Coerce(def.Type)
	if err != nil {
		return fmt.Errorf("frame %d param %s: %w", frameNum, def.Name, err)
	}

	conn := s.coord.Conn()
	op := fmt.Sprintf("add/update frame %d param %s", frameNum, def.Name)

	res, err := conn.Exec(`UPDATE FrameParams SET ParamValue = ? WHERE FrameNum = ? AND ParamID = ?`,
		coerced.Format(), frameNum, int(key))
	if err != nil {
		return wrapStorageErr(op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr(op, err)
	}
	if affected == 0 {
		_, err = conn.Exec(`INSERT INTO FrameParams (FrameNum, ParamID, ParamValue) VALUES (?, ?, ?)`,
			frameNum, int(key), coerced.Format())
		if err != nil {
			return wrapStorageErr(op, err)
		}
	}

	if s.mirror != nil {
		if err := s.mirror.MirrorFrame(frameNum, key, coerced); err != nil {
			return err
		}
	}

	return nil
}

// AssureAllFramesHaveParam bulk-fills a default value for every frame missing
// the key, optionally bounded to an inclusive frame-number range. It is used
// after operations that introduce a key retroactively, such as recalibration.
//
// Returns the number of rows added.
func (s *ParamStore) AssureAllFramesHaveParam(key param.FrameKey, value param.Value, rng *FrameRange) (int, error) {
	if err := s.coord.Flush(false); err != nil {
		return 0, err
	}

	def, err := s.validateKey(key)
	if err != nil {
		return 0, err
	}

	coerced, err := value.Coerce(def.Type)
	if err != nil {
		return 0, fmt.Errorf("assure param %s: %w", def.Name, err)
	}

	conn := s.coord.Conn()
	op := fmt.Sprintf("assure all frames have param %s", def.Name)

	// The mirror needs the frame list, so find the complement before the
	// set-based insert.
	query := `SELECT DISTINCT FrameNum FROM FrameParams
	          WHERE FrameNum NOT IN (SELECT FrameNum FROM FrameParams WHERE ParamID = ?)`
	args := []any{int(key)}
	if rng != nil {
		query += ` AND FrameNum BETWEEN ? AND ?`
		args = append(args, rng.First, rng.Last)
	}
	query += ` ORDER BY FrameNum`

	rows, err := conn.Query(query, args...)
	if err != nil {
		return 0, wrapStorageErr(op, err)
	}

	var missing []int
	for rows.Next() {
		var frameNum int
		if err := rows.Scan(&frameNum); err != nil {
			rows.Close()
			return 0, wrapStorageErr(op, err)
		}
		missing = append(missing, frameNum)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, wrapStorageErr(op, err)
	}
	rows.Close()

	for _, frameNum := range missing {
		_, err = conn.Exec(`INSERT INTO FrameParams (FrameNum, ParamID, ParamValue) VALUES (?, ?, ?)`,
			frameNum, int(key), coerced.Format())
		if err != nil {
			return 0, wrapStorageErr(op, err)
		}

		if s.mirror != nil {
			if err := s.mirror.MirrorFrame(frameNum, key, coerced); err != nil {
				return 0, err
			}
		}
	}

	return len(missing), nil
}

// ValidateKeys is the batch form of key validation. The catalog table is
// touched only when at least one key is unknown to the session cache,
// avoiding a round-trip per value on bulk loads.
func (s *ParamStore) ValidateKeys(keys []param.FrameKey) error {
	allKnown := true
	for _, key := range keys {
		if _, ok := s.knownFrameKeys[key]; !ok {
			allKnown = false
			break
		}
	}
	if allKnown {
		return nil
	}

	for _, key := range keys {
		if _, err := s.validateKey(key); err != nil {
			return err
		}
	}

	return nil
}

// validateKey guarantees the key exists in the FrameParamKeys catalog table
// before any value row references it. Registration happens here, on what
// looks like a read path, because the invariant is "validated before write,
// never after".
func (s *ParamStore) validateKey(key param.FrameKey) (param.FrameKeyDef, error) {
	def, err := s.catalog.FrameDef(key)
	if err != nil {
		return param.FrameKeyDef{}, err
	}

	if _, ok := s.knownFrameKeys[key]; ok {
		return def, nil
	}

	conn := s.coord.Conn()
	op := fmt.Sprintf("register frame param key %s", def.Name)

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM FrameParamKeys WHERE ParamID = ?`, int(key)).Scan(&n); err != nil {
		return param.FrameKeyDef{}, wrapStorageErr(op, err)
	}
	if n == 0 {
		_, err = conn.Exec(
			`INSERT INTO FrameParamKeys (ParamID, ParamName, ParamDataType, ParamDescription) VALUES (?, ?, ?, ?)`,
			int(key), def.Name, def.Type.String(), def.Description)
		if err != nil {
			return param.FrameKeyDef{}, wrapStorageErr(op, err)
		}
	}

	s.knownFrameKeys[key] = struct{}{}

	return def, nil
}

// loadCaches primes the session caches from a container that already has
// modern tables: the global cache from GlobalParams, the known-key set from
// FrameParamKeys. Keys persisted by newer code back-register into the
// in-memory catalog so their values remain readable and mirrorable.
func (s *ParamStore) loadCaches() error {
	conn := s.coord.Conn()

	rows, err := conn.Query(`SELECT ParamID, ParamName, ParamValue, ParamDataType, ParamDescription FROM GlobalParams`)
	if err != nil {
		return wrapStorageErr("load global params", err)
	}
	for rows.Next() {
		var (
			id          int
			name, typ   string
			value, desc sql.NullString
		)
		if err := rows.Scan(&id, &name, &value, &typ, &desc); err != nil {
			rows.Close()
			return wrapStorageErr("load global params", err)
		}

		dataType := param.ParseDataType(typ)
		s.catalog.RegisterGlobal(param.GlobalKeyDef{
			Key: param.GlobalKey(id), Name: name, Type: dataType, Description: desc.String,
		})

		v, err := param.Parse(dataType, value.String)
		if err != nil {
			s.logger.Warn("unparseable global param value", "param", name, "value", value.String)
			continue
		}
		s.globalCache[param.GlobalKey(id)] = v
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return wrapStorageErr("load global params", err)
	}
	rows.Close()

	rows, err = conn.Query(`SELECT ParamID, ParamName, ParamDataType, ParamDescription FROM FrameParamKeys`)
	if err != nil {
		return wrapStorageErr("load frame param keys", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        int
			name, typ string
			desc      sql.NullString
		)
		if err := rows.Scan(&id, &name, &typ, &desc); err != nil {
			return wrapStorageErr("load frame param keys", err)
		}

		s.catalog.RegisterFrame(param.FrameKeyDef{
			Key: param.FrameKey(id), Name: name, Type: param.ParseDataType(typ), Description: desc.String,
		})
		s.knownFrameKeys[param.FrameKey(id)] = struct{}{}
	}

	return rows.Err()
}
