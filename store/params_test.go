package store

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imskit/imstore/errs"
	"github.com/imskit/imstore/param"
)

func newTestWriterAt(t *testing.T, path string, opts ...WriterOption) *Writer {
	t.Helper()

	w, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	return w
}

func newTestWriter(t *testing.T, opts ...WriterOption) *Writer {
	t.Helper()

	w := newTestWriterAt(t, filepath.Join(t.TempDir(), "test.uimf"), opts...)
	require.NoError(t, w.CreateTables())

	return w
}

func TestParamStore_UpdateThenInsertIdempotence(t *testing.T) {
	w := newTestWriter(t)

	require.NoError(t, w.AddUpdateFrameParam(3, param.FrameAccumulations, param.Int64(18)))
	require.NoError(t, w.AddUpdateFrameParam(3, param.FrameAccumulations, param.Int64(24)))

	var n int
	require.NoError(t, w.coord.Conn().QueryRow(
		`SELECT COUNT(*) FROM FrameParams WHERE FrameNum = 3 AND ParamID = ?`,
		int(param.FrameAccumulations)).Scan(&n))
	require.Equal(t, 1, n)

	values, err := w.Reader().FrameParams(3)
	require.NoError(t, err)
	got, err := values[param.FrameAccumulations].AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(24), got)
}

func TestParamStore_GlobalUpdateThenInsert(t *testing.T) {
	w := newTestWriter(t)

	require.NoError(t, w.AddUpdateGlobalParam(param.GlobalBins, param.Int64(148000)))
	require.NoError(t, w.AddUpdateGlobalParam(param.GlobalBins, param.Int64(98000)))

	var n int
	require.NoError(t, w.coord.Conn().QueryRow(
		`SELECT COUNT(*) FROM GlobalParams WHERE ParamID = ?`, int(param.GlobalBins)).Scan(&n))
	require.Equal(t, 1, n)

	v, ok := w.Params().GlobalParam(param.GlobalBins)
	require.True(t, ok)
	got, err := v.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(98000), got)
}

func TestParamStore_SchemaMissing(t *testing.T) {
	// No CreateTables: the container has no schema at all.
	w := newTestWriterAt(t, filepath.Join(t.TempDir(), "empty.uimf"))

	err := w.AddUpdateGlobalParam(param.GlobalBins, param.Int64(100))
	require.ErrorIs(t, err, errs.ErrSchemaMissing)

	err = w.AddUpdateFrameParam(1, param.FrameAccumulations, param.Int64(1))
	require.ErrorIs(t, err, errs.ErrSchemaMissing)
}

func TestParamStore_UnknownKey(t *testing.T) {
	w := newTestWriter(t)

	err := w.AddUpdateGlobalParam(param.GlobalKey(4242), param.Int64(1))
	require.ErrorIs(t, err, errs.ErrUnknownKey)
}

func TestParamStore_TypeCoercion(t *testing.T) {
	w := newTestWriter(t)

	// String input convertible to the declared int type is accepted.
	require.NoError(t, w.AddUpdateGlobalParam(param.GlobalBins, param.String("4000")))
	v, _ := w.Params().GlobalParam(param.GlobalBins)
	require.Equal(t, param.TypeInt, v.Type())

	// Inconvertible input is rejected before any write.
	err := w.AddUpdateGlobalParam(param.GlobalTimeOffset, param.String("ten thousand"))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestParamStore_NaNPreservation(t *testing.T) {
	w := newTestWriter(t)

	require.NoError(t, w.AddUpdateFrameParam(1, param.FramePressureBack, param.Float64(math.NaN())))

	var raw string
	require.NoError(t, w.coord.Conn().QueryRow(
		`SELECT ParamValue FROM FrameParams WHERE FrameNum = 1 AND ParamID = ?`,
		int(param.FramePressureBack)).Scan(&raw))
	require.Equal(t, "NaN", raw)

	values, err := w.Reader().FrameParams(1)
	require.NoError(t, err)
	f, err := values[param.FramePressureBack].AsFloat64()
	require.NoError(t, err)
	require.True(t, math.IsNaN(f))
}

func TestParamStore_KeyAutoRegistration(t *testing.T) {
	w := newTestWriter(t)

	require.NoError(t, w.AddUpdateFrameParam(1, param.FrameESIVoltage, param.Float64(2200)))

	// The key row must exist in the catalog table before the value row
	// references it.
	var name string
	require.NoError(t, w.coord.Conn().QueryRow(
		`SELECT ParamName FROM FrameParamKeys WHERE ParamID = ?`, int(param.FrameESIVoltage)).Scan(&name))
	require.Equal(t, "ESIVoltage", name)
}

func TestParamStore_ValidateKeysBatch(t *testing.T) {
	w := newTestWriter(t)

	keys := []param.FrameKey{param.FrameStartTime, param.FrameDuration, param.FrameType}
	require.NoError(t, w.Params().ValidateKeys(keys))

	var n int
	require.NoError(t, w.coord.Conn().QueryRow(`SELECT COUNT(*) FROM FrameParamKeys`).Scan(&n))
	require.Equal(t, len(keys), n)

	// Second call is served from the session cache.
	require.NoError(t, w.Params().ValidateKeys(keys))
}

func TestParamStore_AssureAllFramesHaveParam(t *testing.T) {
	w := newTestWriter(t)

	for frameNum := 1; frameNum <= 4; frameNum++ {
		require.NoError(t, w.AddUpdateFrameParam(frameNum, param.FrameType, param.Int64(1)))
	}
	// Frame 2 already has the key being assured.
	require.NoError(t, w.AddUpdateFrameParam(2, param.FrameCalibrationDone, param.Int64(1)))

	added, err := w.Params().AssureAllFramesHaveParam(param.FrameCalibrationDone, param.Int64(0), nil)
	require.NoError(t, err)
	require.Equal(t, 3, added)

	values, err := w.Reader().FrameParams(2)
	require.NoError(t, err)
	got, err := values[param.FrameCalibrationDone].AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(1), got, "existing value must not be overwritten")

	// Re-running adds nothing.
	added, err = w.Params().AssureAllFramesHaveParam(param.FrameCalibrationDone, param.Int64(0), nil)
	require.NoError(t, err)
	require.Zero(t, added)
}

func TestParamStore_AssureAllFramesHaveParamRange(t *testing.T) {
	w := newTestWriter(t)

	for frameNum := 1; frameNum <= 5; frameNum++ {
		require.NoError(t, w.AddUpdateFrameParam(frameNum, param.FrameType, param.Int64(1)))
	}

	added, err := w.Params().AssureAllFramesHaveParam(
		param.FrameDecoded, param.Int64(0), &FrameRange{First: 2, Last: 4})
	require.NoError(t, err)
	require.Equal(t, 3, added)

	values, err := w.Reader().FrameParams(1)
	require.NoError(t, err)
	_, ok := values[param.FrameDecoded]
	require.False(t, ok, "frame outside the range must be untouched")
}

func TestParamStore_RefreshNumFrames(t *testing.T) {
	w := newTestWriter(t)

	for _, frameNum := range []int{1, 2, 7} {
		require.NoError(t, w.AddUpdateFrameParam(frameNum, param.FrameType, param.Int64(1)))
	}

	n, err := w.RefreshNumFrames()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	v, ok := w.Params().GlobalParam(param.GlobalNumFrames)
	require.True(t, ok)
	got, err := v.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(3), got)
}
