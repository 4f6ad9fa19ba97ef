package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imskit/imstore/internal/pool"
	"github.com/imskit/imstore/rlze"
)

// BuildBinCentricIndex pivots the scan-centric FrameScans table into a
// bin-centric Bin_Intensities table for fast cross-frame queries at a fixed
// m/z bin.
//
// The pivot is staged in a scratch database under workingDir (the container's
// directory when empty) so the main container does not bloat with unsorted
// intermediate pages, then copied in bin order and indexed. Idempotent: if
// the index table already exists the build is skipped. Safe to re-run after
// a failure; the scratch file is recreated.
func (w *Writer) BuildBinCentricIndex(workingDir string) (err error) {
	exists, err := TableExists(w.coord.Conn(), "Bin_Intensities")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	bins, err := w.binCount()
	if err != nil {
		return err
	}

	// ATTACH cannot run inside a transaction, so commit and pause the
	// batching window for the duration of the build.
	if err := w.coord.Pause(); err != nil {
		return err
	}
	defer func() {
		if rerr := w.coord.Resume(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if workingDir == "" {
		workingDir = "."
	}
	staging := filepath.Join(workingDir, "bin_centric_staging.db")
	os.Remove(staging)
	defer os.Remove(staging)

	if _, err = w.db.Exec(`ATTACH DATABASE ? AS staging`, staging); err != nil {
		return wrapStorageErr("attach bin-centric staging database", err)
	}
	defer w.db.Exec(`DETACH DATABASE staging`)

	_, err = w.db.Exec(`CREATE TABLE staging.Bin_Intensities (
		MzBin INTEGER NOT NULL, FrameNum INTEGER NOT NULL, ScanNum INTEGER NOT NULL, Intensity INTEGER NOT NULL)`)
	if err != nil {
		return wrapStorageErr("create bin-centric staging table", err)
	}

	if err = w.stageBinIntensities(bins); err != nil {
		return err
	}

	_, err = w.db.Exec(`CREATE TABLE Bin_Intensities (
		MzBin INTEGER NOT NULL, FrameNum INTEGER NOT NULL, ScanNum INTEGER NOT NULL, Intensity INTEGER NOT NULL)`)
	if err != nil {
		return wrapStorageErr("create bin-centric table", err)
	}
	_, err = w.db.Exec(`INSERT INTO Bin_Intensities SELECT * FROM staging.Bin_Intensities ORDER BY MzBin, FrameNum, ScanNum`)
	if err != nil {
		return wrapStorageErr("copy bin-centric rows", err)
	}
	_, err = w.db.Exec(`CREATE INDEX ix_Bin_Intensities ON Bin_Intensities (MzBin, FrameNum, ScanNum)`)
	if err != nil {
		return wrapStorageErr("index bin-centric table", err)
	}

	w.logger.Info("built bin-centric index")

	return nil
}

// stageBinIntensities decodes every stored scan and writes one staging row
// per non-zero bin. Scans decode into a pooled scratch array so the pass
// stays allocation-free after warmup.
func (w *Writer) stageBinIntensities(bins int) error {
	rows, err := w.db.Query(`SELECT FrameNum, ScanNum FROM FrameScans ORDER BY FrameNum, ScanNum`)
	if err != nil {
		return wrapStorageErr("list scans for bin-centric build", err)
	}

	type scanKey struct{ frame, scan int }
	var keys []scanKey
	for rows.Next() {
		var k scanKey
		if err := rows.Scan(&k.frame, &k.scan); err != nil {
			rows.Close()
			return wrapStorageErr("list scans for bin-centric build", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return wrapStorageErr("list scans for bin-centric build", err)
	}
	rows.Close()

	intensities, release := pool.GetInt32Slice(bins + 1)
	defer release()

	for _, k := range keys {
		var blob []byte
		err := w.db.QueryRow(`SELECT Intensities FROM FrameScans WHERE FrameNum = ? AND ScanNum = ?`,
			k.frame, k.scan).Scan(&blob)
		if err != nil {
			return wrapStorageErr(fmt.Sprintf("read scan (frame %d, scan %d)", k.frame, k.scan), err)
		}

		packed, err := w.codec.Decompress(blob)
		if err != nil {
			return fmt.Errorf("decompress scan (frame %d, scan %d): %w", k.frame, k.scan, err)
		}
		encoded, err := rlze.UnpackInt32(packed)
		if err != nil {
			return fmt.Errorf("unpack scan (frame %d, scan %d): %w", k.frame, k.scan, err)
		}
		if err := rlze.DecodeInto(intensities, encoded); err != nil {
			return fmt.Errorf("decode scan (frame %d, scan %d): %w", k.frame, k.scan, err)
		}

		for bin, intensity := range intensities {
			if intensity == 0 {
				continue
			}

			_, err = w.db.Exec(`INSERT INTO staging.Bin_Intensities (MzBin, FrameNum, ScanNum, Intensity) VALUES (?, ?, ?, ?)`,
				bin, k.frame, k.scan, intensity)
			if err != nil {
				return wrapStorageErr("stage bin-centric row", err)
			}
		}
	}

	return nil
}

// DropBinCentricIndex removes the bin-centric table. Safe to call when it
// was never built.
func (w *Writer) DropBinCentricIndex() error {
	_, err := w.coord.Conn().Exec(`DROP TABLE IF EXISTS Bin_Intensities`)
	if err != nil {
		return wrapStorageErr("drop bin-centric table", err)
	}

	return nil
}
