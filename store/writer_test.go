package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imskit/imstore/compress"
	"github.com/imskit/imstore/errs"
	"github.com/imskit/imstore/param"
)

const testBins = 4000

func newScanWriter(t *testing.T, opts ...WriterOption) *Writer {
	t.Helper()

	w := newTestWriter(t, opts...)
	require.NoError(t, w.AddUpdateGlobalParam(param.GlobalBins, param.Int64(testBins)))

	return w
}

func TestWriter_InsertScanRoundtrip(t *testing.T) {
	w := newScanWriter(t)

	intensities := make([]int32, testBins)
	intensities[100] = 5
	intensities[101] = 3
	intensities[3999] = 7

	nonZero, err := w.InsertScan(1, 0, intensities, 0.25)
	require.NoError(t, err)
	require.Equal(t, 3, nonZero)

	rec, err := w.Reader().Scan(1, 0)
	require.NoError(t, err)
	require.Equal(t, 3, rec.NonZeroCount)
	require.Equal(t, int64(15), rec.TIC)
	require.Equal(t, int64(7), rec.BPI)

	decoded, err := w.Reader().DecodeIntensities(rec, w.codec, testBins+1)
	require.NoError(t, err)
	require.Len(t, decoded, testBins+1)
	for bin, want := range intensities {
		require.Equal(t, want, decoded[bin], "bin %d", bin)
	}
	require.Zero(t, decoded[testBins])
}

func TestWriter_InsertScanBinBound(t *testing.T) {
	w := newScanWriter(t)

	// One past the container's bin count is tolerated.
	tolerated := make([]int32, testBins+1)
	tolerated[testBins] = 2
	nonZero, err := w.InsertScan(1, 0, tolerated, 0.25)
	require.NoError(t, err)
	require.Equal(t, 1, nonZero)

	// Two past is not, and nothing is written.
	over := make([]int32, testBins+2)
	over[0] = 1
	_, err = w.InsertScan(1, 1, over, 0.25)
	require.ErrorIs(t, err, errs.ErrValueOutOfRange)

	var n int
	require.NoError(t, w.coord.Conn().QueryRow(
		`SELECT COUNT(*) FROM FrameScans WHERE FrameNum = 1 AND ScanNum = 1`).Scan(&n))
	require.Zero(t, n)
}

func TestWriter_InsertScanBinsUnset(t *testing.T) {
	w := newTestWriter(t)

	_, err := w.InsertScan(1, 0, []int32{1, 2, 3}, 0.25)
	require.ErrorIs(t, err, errs.ErrInvalidOperation)
}

func TestWriter_InsertScanPpmBinBasedRejected(t *testing.T) {
	w := newScanWriter(t)
	require.NoError(t, w.AddUpdateGlobalParam(param.GlobalInstrumentClass, param.Int64(1)))

	intensities := make([]int32, testBins)
	intensities[10] = 1

	_, err := w.InsertScan(1, 0, intensities, 0.25)
	require.ErrorIs(t, err, errs.ErrInvalidOperation)

	_, err = w.InsertScanSparse(1, 0, map[int]int32{10: 1}, 0.25)
	require.ErrorIs(t, err, errs.ErrInvalidOperation)
}

func TestWriter_InsertScanAllZeroStoresNothing(t *testing.T) {
	w := newScanWriter(t)

	nonZero, err := w.InsertScan(1, 0, make([]int32, testBins), 0.25)
	require.NoError(t, err)
	require.Zero(t, nonZero)

	var n int
	require.NoError(t, w.coord.Conn().QueryRow(`SELECT COUNT(*) FROM FrameScans`).Scan(&n))
	require.Zero(t, n)
}

func TestWriter_InsertScanSparseMatchesDense(t *testing.T) {
	w := newScanWriter(t)

	dense := make([]int32, testBins)
	dense[7] = 11
	dense[2048] = 4

	_, err := w.InsertScan(1, 0, dense, 0.25)
	require.NoError(t, err)
	nonZero, err := w.InsertScanSparse(1, 1, map[int]int32{7: 11, 2048: 4}, 0.25)
	require.NoError(t, err)
	require.Equal(t, 2, nonZero)

	fromDense, err := w.Reader().Scan(1, 0)
	require.NoError(t, err)
	fromSparse, err := w.Reader().Scan(1, 1)
	require.NoError(t, err)
	require.Equal(t, fromDense.Intensities, fromSparse.Intensities)
	require.Equal(t, fromDense.TIC, fromSparse.TIC)
	require.Equal(t, fromDense.BPI, fromSparse.BPI)
}

func TestWriter_InsertScanSparseRejectsZeroIntensity(t *testing.T) {
	w := newScanWriter(t)

	_, err := w.InsertScanSparse(1, 0, map[int]int32{7: 11, 9: 0}, 0.25)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	var n int
	require.NoError(t, w.coord.Conn().QueryRow(`SELECT COUNT(*) FROM FrameScans`).Scan(&n))
	require.Zero(t, n)
}

func TestWriter_InsertScanSparseRejectsOutOfRangeBin(t *testing.T) {
	w := newScanWriter(t)

	_, err := w.InsertScanSparse(1, 0, map[int]int32{testBins + 5: 1}, 0.25)
	require.ErrorIs(t, err, errs.ErrValueOutOfRange)
}

func TestWriter_CompressionSchemes(t *testing.T) {
	for _, scheme := range []compress.Scheme{
		compress.SchemeNone, compress.SchemeZstd, compress.SchemeS2, compress.SchemeLZ4,
	} {
		t.Run(scheme.String(), func(t *testing.T) {
			w := newScanWriter(t, WithCompression(scheme))

			intensities := make([]int32, testBins)
			intensities[500] = 9
			intensities[501] = 2

			_, err := w.InsertScan(1, 0, intensities, 0.25)
			require.NoError(t, err)

			rec, err := w.Reader().Scan(1, 0)
			require.NoError(t, err)
			decoded, err := w.Reader().DecodeIntensities(rec, w.codec, testBins+1)
			require.NoError(t, err)
			require.Equal(t, int32(9), decoded[500])
			require.Equal(t, int32(2), decoded[501])
		})
	}
}

func TestWriter_BPIMzUsesFrameCalibration(t *testing.T) {
	w := newScanWriter(t)
	require.NoError(t, w.AddUpdateFrameParam(1, param.FrameCalibrationSlope, param.Float64(0.3)))
	require.NoError(t, w.AddUpdateFrameParam(1, param.FrameCalibrationIntercept, param.Float64(0.01)))

	intensities := make([]int32, testBins)
	intensities[2000] = 6

	_, err := w.InsertScan(1, 0, intensities, 0.25)
	require.NoError(t, err)

	rec, err := w.Reader().Scan(1, 0)
	require.NoError(t, err)

	// t = 2000 * 0.25 / 1000 = 0.5; mz = (0.3 * (0.5 - 0.01))^2
	want := (0.3 * (0.5 - 0.01)) * (0.3 * (0.5 - 0.01))
	require.InDelta(t, want, rec.BPIMz, 1e-12)
}

func TestWriter_CalibrationCacheInvalidation(t *testing.T) {
	w := newScanWriter(t)
	require.NoError(t, w.AddUpdateFrameParam(1, param.FrameCalibrationSlope, param.Float64(0.3)))

	intensities := make([]int32, testBins)
	intensities[2000] = 6
	_, err := w.InsertScan(1, 0, intensities, 0.25)
	require.NoError(t, err)

	// Changing a calibration key must drop the cached view before the next
	// scan of that frame.
	require.NoError(t, w.AddUpdateFrameParam(1, param.FrameCalibrationSlope, param.Float64(0.6)))
	_, err = w.InsertScan(1, 1, intensities, 0.25)
	require.NoError(t, err)

	first, err := w.Reader().Scan(1, 0)
	require.NoError(t, err)
	second, err := w.Reader().Scan(1, 1)
	require.NoError(t, err)
	require.InDelta(t, 4*first.BPIMz, second.BPIMz, 1e-9)
}

func TestWriter_DeleteFrameScans(t *testing.T) {
	w := newScanWriter(t)

	intensities := make([]int32, testBins)
	intensities[10] = 1
	for scanNum := 0; scanNum < 3; scanNum++ {
		_, err := w.InsertScan(1, scanNum, intensities, 0.25)
		require.NoError(t, err)
	}
	_, err := w.InsertScan(2, 0, intensities, 0.25)
	require.NoError(t, err)

	require.NoError(t, w.DeleteFrameScans(1))

	var n int
	require.NoError(t, w.coord.Conn().QueryRow(
		`SELECT COUNT(*) FROM FrameScans WHERE FrameNum = 1`).Scan(&n))
	require.Zero(t, n)
	require.NoError(t, w.coord.Conn().QueryRow(
		`SELECT COUNT(*) FROM FrameScans WHERE FrameNum = 2`).Scan(&n))
	require.Equal(t, 1, n)

	values, err := w.Reader().FrameParams(1)
	require.NoError(t, err)
	scans, err := values[param.FrameScans].AsInt64()
	require.NoError(t, err)
	require.Zero(t, scans)
}

func TestWriter_CloseCommitsDurably(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.uimf")

	w := newTestWriterAt(t, path)
	require.NoError(t, w.CreateTables())
	require.NoError(t, w.AddUpdateGlobalParam(param.GlobalBins, param.Int64(testBins)))

	intensities := make([]int32, testBins)
	intensities[42] = 3
	_, err := w.InsertScan(1, 0, intensities, 0.25)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, db, err := OpenReader(path)
	require.NoError(t, err)
	defer db.Close()

	globals, err := r.GlobalParams()
	require.NoError(t, err)
	bins, err := globals[param.GlobalBins].AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(testBins), bins)

	rec, err := r.Scan(1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, rec.NonZeroCount)
}

func TestWriter_VersionInfoRecorded(t *testing.T) {
	w := newTestWriter(t, WithVersionInfo(VersionInfo{Name: "acq-agent", Version: "2.1.0"}))

	var fileVersion, name, version string
	require.NoError(t, w.coord.Conn().QueryRow(
		`SELECT File_Version, Calling_Assembly_Name, Calling_Assembly_Version FROM Version_Info`).
		Scan(&fileVersion, &name, &version))
	require.Equal(t, FileVersion, fileVersion)
	require.Equal(t, "acq-agent", name)
	require.Equal(t, "2.1.0", version)
}

func TestWriter_FlushIntervalValidation(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.uimf"), WithFlushInterval(0))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}
