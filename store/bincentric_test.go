package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildBinCentricIndex(t *testing.T) {
	w := newScanWriter(t)

	intensities := make([]int32, testBins)
	intensities[10] = 4
	intensities[2000] = 9
	for frameNum := 1; frameNum <= 2; frameNum++ {
		for scanNum := 0; scanNum < 2; scanNum++ {
			_, err := w.InsertScan(frameNum, scanNum, intensities, 0.25)
			require.NoError(t, err)
		}
	}

	require.NoError(t, w.BuildBinCentricIndex(t.TempDir()))

	ok, err := TableExists(w.coord.Conn(), "Bin_Intensities")
	require.NoError(t, err)
	require.True(t, ok)

	// Every (frame, scan) contributes one row per non-zero bin.
	var n int
	require.NoError(t, w.coord.Conn().QueryRow(`SELECT COUNT(*) FROM Bin_Intensities`).Scan(&n))
	require.Equal(t, 8, n)

	rows, err := w.coord.Conn().Query(
		`SELECT FrameNum, ScanNum, Intensity FROM Bin_Intensities WHERE MzBin = 2000 ORDER BY FrameNum, ScanNum`)
	require.NoError(t, err)
	defer rows.Close()

	var got [][3]int
	for rows.Next() {
		var frameNum, scanNum, intensity int
		require.NoError(t, rows.Scan(&frameNum, &scanNum, &intensity))
		got = append(got, [3]int{frameNum, scanNum, intensity})
	}
	require.NoError(t, rows.Err())
	require.Equal(t, [][3]int{{1, 0, 9}, {1, 1, 9}, {2, 0, 9}, {2, 1, 9}}, got)

	// The writer session keeps working after the build.
	_, err = w.InsertScan(3, 0, intensities, 0.25)
	require.NoError(t, err)
}

func TestBuildBinCentricIndexIdempotent(t *testing.T) {
	w := newScanWriter(t)

	intensities := make([]int32, testBins)
	intensities[5] = 1
	_, err := w.InsertScan(1, 0, intensities, 0.25)
	require.NoError(t, err)

	workingDir := t.TempDir()
	require.NoError(t, w.BuildBinCentricIndex(workingDir))
	require.NoError(t, w.BuildBinCentricIndex(workingDir))

	var n int
	require.NoError(t, w.coord.Conn().QueryRow(`SELECT COUNT(*) FROM Bin_Intensities`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestDropBinCentricIndex(t *testing.T) {
	w := newScanWriter(t)

	// Dropping before any build is a no-op.
	require.NoError(t, w.DropBinCentricIndex())

	intensities := make([]int32, testBins)
	intensities[5] = 1
	_, err := w.InsertScan(1, 0, intensities, 0.25)
	require.NoError(t, err)

	require.NoError(t, w.BuildBinCentricIndex(t.TempDir()))
	require.NoError(t, w.DropBinCentricIndex())

	ok, err := TableExists(w.coord.Conn(), "Bin_Intensities")
	require.NoError(t, err)
	require.False(t, ok)

	// A fresh build after a drop repopulates.
	require.NoError(t, w.BuildBinCentricIndex(t.TempDir()))
	ok, err = TableExists(w.coord.Conn(), "Bin_Intensities")
	require.NoError(t, err)
	require.True(t, ok)
}
