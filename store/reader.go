package store

import (
	"database/sql"
	"fmt"

	"github.com/imskit/imstore/compress"
	"github.com/imskit/imstore/param"
	"github.com/imskit/imstore/rlze"
)

// ScanRecord is one row of FrameScans.
type ScanRecord struct {
	FrameNum     int
	ScanNum      int
	NonZeroCount int
	BPI          int64
	BPIMz        float64
	TIC          int64
	Intensities  []byte // compressed, packed, run-length zero-encoded
}

// Reader is the read-side equivalent of the parameter stores: just enough of
// the query path to serve the legacy migrations, the bin-centric index
// builder, and verification. It runs against whatever connection it is given,
// so a writer session can read through its own open transaction.
type Reader struct {
	conn    func() dbConn
	catalog *param.Catalog
}

// NewReader creates a reader over a connection source.
func NewReader(conn func() dbConn, catalog *param.Catalog) *Reader {
	return &Reader{conn: conn, catalog: catalog}
}

// OpenReader opens a standalone read-only view of a container.
func OpenReader(path string) (*Reader, *sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, nil, fmt.Errorf("open container %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	return NewReader(func() dbConn { return db }, param.NewCatalog()), db, nil
}

// GlobalParams returns every modern global parameter as typed values.
func (r *Reader) GlobalParams() (map[param.GlobalKey]param.Value, error) {
	rows, err := r.conn().Query(`SELECT ParamID, ParamValue, ParamDataType FROM GlobalParams`)
	if err != nil {
		return nil, wrapStorageErr("read global params", err)
	}
	defer rows.Close()

	values := make(map[param.GlobalKey]param.Value)
	for rows.Next() {
		var (
			id    int
			value sql.NullString
			typ   string
		)
		if err := rows.Scan(&id, &value, &typ); err != nil {
			return nil, wrapStorageErr("read global params", err)
		}

		v, err := param.Parse(param.ParseDataType(typ), value.String)
		if err != nil {
			return nil, fmt.Errorf("global param %d: %w", id, err)
		}
		values[param.GlobalKey(id)] = v
	}

	return values, rows.Err()
}

// FrameParams returns every modern parameter of one frame as typed values.
func (r *Reader) FrameParams(frameNum int) (map[param.FrameKey]param.Value, error) {
	rows, err := r.conn().Query(
		`SELECT fp.ParamID, fp.ParamValue, k.ParamDataType
		 FROM FrameParams fp JOIN FrameParamKeys k ON k.ParamID = fp.ParamID
		 WHERE fp.FrameNum = ?`, frameNum)
	if err != nil {
		return nil, wrapStorageErr(fmt.Sprintf("read frame %d params", frameNum), err)
	}
	defer rows.Close()

	values := make(map[param.FrameKey]param.Value)
	for rows.Next() {
		var (
			id    int
			value sql.NullString
			typ   string
		)
		if err := rows.Scan(&id, &value, &typ); err != nil {
			return nil, wrapStorageErr(fmt.Sprintf("read frame %d params", frameNum), err)
		}

		v, err := param.Parse(param.ParseDataType(typ), value.String)
		if err != nil {
			return nil, fmt.Errorf("frame %d param %d: %w", frameNum, id, err)
		}
		values[param.FrameKey(id)] = v
	}

	return values, rows.Err()
}

// MasterFrameList returns every frame number present in the modern store, in
// ascending order. A frame exists exactly when it has at least one parameter
// entry; there is no separate frame row.
func (r *Reader) MasterFrameList() ([]int, error) {
	rows, err := r.conn().Query(`SELECT DISTINCT FrameNum FROM FrameParams ORDER BY FrameNum`)
	if err != nil {
		return nil, wrapStorageErr("read master frame list", err)
	}
	defer rows.Close()

	var frames []int
	for rows.Next() {
		var frameNum int
		if err := rows.Scan(&frameNum); err != nil {
			return nil, wrapStorageErr("read master frame list", err)
		}
		frames = append(frames, frameNum)
	}

	return frames, rows.Err()
}

// Scan returns one FrameScans row.
func (r *Reader) Scan(frameNum, scanNum int) (ScanRecord, error) {
	rec := ScanRecord{FrameNum: frameNum, ScanNum: scanNum}
	err := r.conn().QueryRow(
		`SELECT NonZeroCount, BPI, BPI_MZ, TIC, Intensities FROM FrameScans
		 WHERE FrameNum = ? AND ScanNum = ?`, frameNum, scanNum).
		Scan(&rec.NonZeroCount, &rec.BPI, &rec.BPIMz, &rec.TIC, &rec.Intensities)
	if err != nil {
		return ScanRecord{}, wrapStorageErr(fmt.Sprintf("read scan (frame %d, scan %d)", frameNum, scanNum), err)
	}

	return rec, nil
}

// DecodeIntensities reconstructs a scan's full intensity array from its
// stored blob: decompress, unpack, then replay the run-length zero-encoding
// against the container's bin count.
func (r *Reader) DecodeIntensities(rec ScanRecord, codec compress.Codec, binCount int) ([]int32, error) {
	packed, err := codec.Decompress(rec.Intensities)
	if err != nil {
		return nil, fmt.Errorf("decompress scan (frame %d, scan %d): %w", rec.FrameNum, rec.ScanNum, err)
	}

	encoded, err := rlze.UnpackInt32(packed)
	if err != nil {
		return nil, fmt.Errorf("unpack scan (frame %d, scan %d): %w", rec.FrameNum, rec.ScanNum, err)
	}

	return rlze.Decode(encoded, binCount)
}

// legacyGlobalValues reads the legacy Global_Parameters row back into typed
// modern values, one per mapped key present as a column.
func (r *Reader) legacyGlobalValues() (map[param.GlobalKey]param.Value, error) {
	cols, err := tableColumns(r.conn(), "Global_Parameters")
	if err != nil {
		return nil, err
	}

	values := make(map[param.GlobalKey]param.Value)
	for _, key := range param.MappedGlobalKeys() {
		column, _ := param.LegacyGlobalColumn(key)
		if _, ok := cols[column]; !ok {
			continue
		}

		def, err := r.catalog.GlobalDef(key)
		if err != nil {
			return nil, err
		}

		var raw sql.NullString
		err = r.conn().QueryRow(fmt.Sprintf(`SELECT %s FROM Global_Parameters`, column)).Scan(&raw)
		if err == sql.ErrNoRows {
			break // no legacy global row at all
		}
		if err != nil {
			return nil, wrapStorageErr("read legacy global params", err)
		}
		if !raw.Valid || raw.String == "" {
			continue
		}

		v, err := param.Parse(def.Type, raw.String)
		if err != nil {
			return nil, fmt.Errorf("legacy global column %s: %w", column, err)
		}
		values[key] = v
	}

	return values, nil
}

// legacyFrameNums lists every frame in the legacy Frame_Parameters table.
func (r *Reader) legacyFrameNums() ([]int, error) {
	rows, err := r.conn().Query(`SELECT FrameNum FROM Frame_Parameters ORDER BY FrameNum`)
	if err != nil {
		return nil, wrapStorageErr("read legacy frame list", err)
	}
	defer rows.Close()

	var frames []int
	for rows.Next() {
		var frameNum int
		if err := rows.Scan(&frameNum); err != nil {
			return nil, wrapStorageErr("read legacy frame list", err)
		}
		frames = append(frames, frameNum)
	}

	return frames, rows.Err()
}

// legacyFrameValues reads one legacy frame row back into typed modern values.
func (r *Reader) legacyFrameValues(frameNum int) (map[param.FrameKey]param.Value, error) {
	cols, err := tableColumns(r.conn(), "Frame_Parameters")
	if err != nil {
		return nil, err
	}

	values := make(map[param.FrameKey]param.Value)
	for _, key := range param.MappedFrameKeys() {
		column, _ := param.LegacyFrameColumn(key)
		if _, ok := cols[column]; !ok {
			continue
		}

		def, err := r.catalog.FrameDef(key)
		if err != nil {
			return nil, err
		}

		var raw sql.NullString
		err = r.conn().QueryRow(
			fmt.Sprintf(`SELECT %s FROM Frame_Parameters WHERE FrameNum = ?`, column), frameNum).Scan(&raw)
		if err != nil {
			return nil, wrapStorageErr(fmt.Sprintf("read legacy frame %d params", frameNum), err)
		}
		if !raw.Valid || raw.String == "" {
			continue
		}

		v, err := param.Parse(def.Type, raw.String)
		if err != nil {
			return nil, fmt.Errorf("legacy frame %d column %s: %w", frameNum, column, err)
		}
		values[key] = v
	}

	return values, nil
}
