package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/imskit/imstore/compress"
	"github.com/imskit/imstore/errs"
	"github.com/imskit/imstore/internal/options"
	"github.com/imskit/imstore/internal/pool"
	"github.com/imskit/imstore/param"
	"github.com/imskit/imstore/rlze"
)

// VersionInfo identifies the software writing a container. The core never
// inspects its own runtime environment; the caller supplies this explicitly.
type VersionInfo struct {
	Name    string
	Version string
}

// Writer is a single-writer session over one container.
//
// All session-mutable state lives here and in the components it owns: the
// transaction window, the parameter caches, the mirror's materialized-frame
// set, and the per-frame calibration cache. Nothing is shared across
// sessions. Construction is Open, teardown is Close; a Writer is not safe
// for concurrent use.
type Writer struct {
	db     *sql.DB
	coord  *TxnCoordinator
	params *ParamStore
	mirror *LegacyMirror
	reader *Reader
	logger *slog.Logger

	catalog *param.Catalog
	codec   compress.Codec
	scheme  compress.Scheme

	flushInterval time.Duration
	mirroring     bool
	version       VersionInfo

	// calCache holds derived per-frame calibration views, recomputed when a
	// calibration key of that frame is updated.
	calCache map[int]*frameCalibration
}

// WriterOption configures a Writer during Open.
type WriterOption = options.Option[*Writer]

// WithFlushInterval overrides the commit-batching interval.
func WithFlushInterval(d time.Duration) WriterOption {
	return options.New(func(w *Writer) error {
		if d <= 0 {
			return fmt.Errorf("%w: flush interval must be positive", errs.ErrInvalidArgument)
		}
		w.flushInterval = d

		return nil
	})
}

// WithLegacyMirroring enables dual-writing into the legacy fixed-column
// tables. When enabled on a container that has no legacy tables yet, they
// are created and backfilled on Open.
func WithLegacyMirroring(enabled bool) WriterOption {
	return options.NoError(func(w *Writer) {
		w.mirroring = enabled
	})
}

// WithCompression selects the byte compressor applied to packed intensity
// blobs after run-length encoding. The default is S2.
func WithCompression(scheme compress.Scheme) WriterOption {
	return options.New(func(w *Writer) error {
		codec, err := compress.GetCodec(scheme)
		if err != nil {
			return err
		}
		w.scheme = scheme
		w.codec = codec

		return nil
	})
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) WriterOption {
	return options.NoError(func(w *Writer) {
		w.logger = logger
	})
}

// WithVersionInfo records who is writing the container in Version_Info.
func WithVersionInfo(info VersionInfo) WriterOption {
	return options.NoError(func(w *Writer) {
		w.version = info
	})
}

// Open starts a writer session on the container at path, creating the file
// if absent (but not the schema; see CreateTables).
//
// If the container carries only the legacy schema, the modern tables are
// created and backfilled from the legacy rows before Open returns, durably.
// If mirroring is requested and the legacy tables are absent, they are
// created and backfilled from the modern store symmetrically.
func Open(path string, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		catalog:       param.NewCatalog(),
		scheme:        compress.SchemeS2,
		codec:         compress.NewS2Codec(),
		flushInterval: DefaultFlushInterval,
		logger:        slog.Default(),
		calCache:      make(map[int]*frameCalibration),
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	w.db = db

	w.coord = NewTxnCoordinator(db, w.flushInterval, w.logger)
	w.params = NewParamStore(w.coord, w.catalog, w.logger)
	w.reader = NewReader(w.coord.Conn, w.catalog)
	w.mirror = NewLegacyMirror(w.coord, w.catalog, w.logger)

	if err := w.open(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

func (w *Writer) open() error {
	state, err := DetectMirrorState(w.db)
	if err != nil {
		return err
	}

	if err := w.coord.Begin(); err != nil {
		return err
	}

	switch state {
	case LegacyOnly:
		// One-time migration: first-generation container opened by modern
		// code. The modern tables must exist and be populated before any
		// write lands.
		if err := CreateModernTables(w.coord.Conn()); err != nil {
			return err
		}
		if err := migrateLegacyToModern(w.params, w.reader, w.mirror, w.logger); err != nil {
			return err
		}
		if err := w.coord.Flush(true); err != nil {
			return err
		}
		w.params.SetMirror(w.activeMirror())

	case BothPresentUnsynced, NoLegacyTables:
		modern, err := TableExists(w.coord.Conn(), "GlobalParams")
		if err != nil {
			return err
		}
		if modern {
			if err := w.params.loadCaches(); err != nil {
				return err
			}
		}

		if w.mirroring && modern && state == NoLegacyTables {
			if err := CreateLegacyTables(w.coord.Conn()); err != nil {
				return err
			}
			if err := migrateModernToLegacy(w.reader, w.mirror, w.logger); err != nil {
				return err
			}
			if err := w.coord.Flush(true); err != nil {
				return err
			}
		}
		w.params.SetMirror(w.activeMirror())
	}

	return w.recordVersionInfo()
}

// activeMirror returns the mirror when dual-writing is requested, nil
// otherwise, so the parameter store carries no mirroring conditionals.
func (w *Writer) activeMirror() *LegacyMirror {
	if w.mirroring {
		return w.mirror
	}

	return nil
}

// CreateTables creates the schema for a fresh container: the modern tables,
// plus the legacy tables when mirroring is enabled.
func (w *Writer) CreateTables() error {
	if err := CreateModernTables(w.coord.Conn()); err != nil {
		return err
	}
	if w.mirroring {
		if err := CreateLegacyTables(w.coord.Conn()); err != nil {
			return err
		}
	}
	w.params.SetMirror(w.activeMirror())

	return w.recordVersionInfo()
}

// recordVersionInfo appends a Version_Info row for this session. Skipped
// silently when the table does not exist yet (fresh container before
// CreateTables) or no version info was supplied.
func (w *Writer) recordVersionInfo() error {
	if w.version == (VersionInfo{}) {
		return nil
	}

	ok, err := TableExists(w.coord.Conn(), "Version_Info")
	if err != nil || !ok {
		return err
	}

	_, err = w.coord.Conn().Exec(
		`INSERT INTO Version_Info (File_Version, Calling_Assembly_Name, Calling_Assembly_Version, Entered)
		 VALUES (?, ?, ?, ?)`,
		FileVersion, w.version.Name, w.version.Version, time.Now().UTC().Format(time.RFC3339))

	return wrapStorageErr("record version info", err)
}

// Params exposes the parameter store for metadata writes.
func (w *Writer) Params() *ParamStore {
	return w.params
}

// Reader exposes the session's read-side view, running through the open
// transaction so the session sees its own uncommitted writes.
func (w *Writer) Reader() *Reader {
	return w.reader
}

// Flush forces or offers a commit per the batching policy. Force a flush
// before handing the container to a reader.
func (w *Writer) Flush(force bool) error {
	return w.coord.Flush(force)
}

// AddUpdateGlobalParam writes a global parameter through the session.
func (w *Writer) AddUpdateGlobalParam(key param.GlobalKey, value param.Value) error {
	return w.params.AddUpdateGlobalParam(key, value)
}

// AddUpdateFrameParam writes a frame parameter through the session,
// invalidating any cached calibration view derived from it.
func (w *Writer) AddUpdateFrameParam(frameNum int, key param.FrameKey, value param.Value) error {
	if err := w.params.AddUpdateFrameParam(frameNum, key, value); err != nil {
		return err
	}

	if isCalibrationKey(key) {
		delete(w.calCache, frameNum)
	}

	return nil
}

// InsertScan encodes and stores one scan's intensity spectrum.
//
// The intensity array is indexed by bin, at most Bins+1 entries long (the +1
// tolerates a historical off-by-one in upstream producers). Inserting into a
// ppm-bin-based container through this entry point is rejected; that binning
// mode has its own bin-mapping path.
//
// Returns the scan's non-zero count. An all-zero scan stores nothing and
// returns zero.
func (w *Writer) InsertScan(frameNum, scanNum int, intensities []int32, binWidth float64) (int, error) {
	bins, err := w.binCount()
	if err != nil {
		return 0, err
	}
	if len(intensities) > bins+1 {
		return 0, fmt.Errorf("%w: scan (frame %d, scan %d) has %d bins, container allows %d",
			errs.ErrValueOutOfRange, frameNum, scanNum, len(intensities), bins+1)
	}
	if err := w.rejectPpmBinBased(frameNum, scanNum); err != nil {
		return 0, err
	}

	encoded, stats := rlze.Encode(intensities)

	return w.writeScan(frameNum, scanNum, encoded, stats, binWidth)
}

// InsertScanSparse stores a scan supplied as non-zero (bin, intensity) pairs,
// skipping the zero-run scan over the dense array.
//
// Zero intensities must not appear in the map: their presence breaks the
// implicit-position decoding, so they are rejected with ErrInvalidArgument
// before anything is written.
func (w *Writer) InsertScanSparse(frameNum, scanNum int, binToIntensity map[int]int32, binWidth float64) (int, error) {
	bins, err := w.binCount()
	if err != nil {
		return 0, err
	}
	if err := w.rejectPpmBinBased(frameNum, scanNum); err != nil {
		return 0, err
	}

	encoded, stats, err := rlze.EncodeSparse(binToIntensity, bins+1)
	if err != nil {
		return 0, fmt.Errorf("scan (frame %d, scan %d): %w", frameNum, scanNum, err)
	}

	return w.writeScan(frameNum, scanNum, encoded, stats, binWidth)
}

func (w *Writer) writeScan(frameNum, scanNum int, encoded []int32, stats rlze.Stats, binWidth float64) (int, error) {
	if stats.NonZeroCount == 0 {
		return 0, nil
	}

	// The pack buffer is pooled; the driver copies the blob during Exec, so
	// releasing on return is safe even for the pass-through codec.
	packed, release := pool.GetByteSlice(len(encoded) * 4)
	defer release()

	blob, err := w.codec.Compress(rlze.AppendInt32(packed, encoded))
	if err != nil {
		return 0, fmt.Errorf("compress scan (frame %d, scan %d): %w", frameNum, scanNum, err)
	}

	cal, err := w.frameCal(frameNum)
	if err != nil {
		return 0, err
	}
	bpiMz := cal.binToMz(stats.BPIBin, binWidth)

	op := fmt.Sprintf("insert scan (frame %d, scan %d)", frameNum, scanNum)
	_, err = w.coord.Conn().Exec(
		`INSERT INTO FrameScans (FrameNum, ScanNum, NonZeroCount, BPI, BPI_MZ, TIC, Intensities)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		frameNum, scanNum, stats.NonZeroCount, stats.BPI, bpiMz, stats.TIC, blob)
	if err != nil {
		return 0, wrapStorageErr(op, err)
	}

	if err := w.coord.Flush(false); err != nil {
		return 0, err
	}

	return stats.NonZeroCount, nil
}

// DeleteFrameScans removes every scan of a frame and zeroes its scan count.
// The frame's parameter entries survive; only the spectra go.
func (w *Writer) DeleteFrameScans(frameNum int) error {
	if err := w.coord.Flush(false); err != nil {
		return err
	}

	_, err := w.coord.Conn().Exec(`DELETE FROM FrameScans WHERE FrameNum = ?`, frameNum)
	if err != nil {
		return wrapStorageErr(fmt.Sprintf("delete scans of frame %d", frameNum), err)
	}

	return w.AddUpdateFrameParam(frameNum, param.FrameScans, param.Int64(0))
}

// RefreshNumFrames recomputes the NumFrames global from the frames actually
// present. NumFrames tracks the distinct frame count eventually, not on
// every write; call this at checkpoints.
func (w *Writer) RefreshNumFrames() (int, error) {
	var n int
	err := w.coord.Conn().QueryRow(`SELECT COUNT(DISTINCT FrameNum) FROM FrameParams`).Scan(&n)
	if err != nil {
		return 0, wrapStorageErr("refresh NumFrames", err)
	}

	if err := w.params.AddUpdateGlobalParam(param.GlobalNumFrames, param.Int64(int64(n))); err != nil {
		return 0, err
	}

	return n, nil
}

// Close commits the session permanently and releases the container.
func (w *Writer) Close() error {
	commitErr := w.coord.Close()
	closeErr := w.db.Close()
	if commitErr != nil {
		return commitErr
	}

	return closeErr
}

func (w *Writer) binCount() (int, error) {
	v, ok := w.params.GlobalParam(param.GlobalBins)
	if !ok {
		return 0, fmt.Errorf("%w: Bins global parameter is not set", errs.ErrInvalidOperation)
	}

	bins, err := v.AsInt64()
	if err != nil {
		return 0, err
	}

	return int(bins), nil
}

func (w *Writer) rejectPpmBinBased(frameNum, scanNum int) error {
	v, ok := w.params.GlobalParam(param.GlobalInstrumentClass)
	if !ok {
		return nil
	}

	class, err := v.AsInt64()
	if err != nil {
		return err
	}
	if class == 1 {
		return fmt.Errorf("%w: scan (frame %d, scan %d): container is ppm-bin-based, use the ppm bin-mapping entry point",
			errs.ErrInvalidOperation, frameNum, scanNum)
	}

	return nil
}
