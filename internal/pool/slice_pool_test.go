package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInt32Slice(t *testing.T) {
	t.Run("returns zero-filled slice of requested length", func(t *testing.T) {
		slice, cleanup := GetInt32Slice(128)
		defer cleanup()

		require.Len(t, slice, 128)
		for _, v := range slice {
			require.Zero(t, v)
		}
	})

	t.Run("zeroes a reused slice", func(t *testing.T) {
		slice1, cleanup1 := GetInt32Slice(64)
		for i := range slice1 {
			slice1[i] = int32(i + 1)
		}
		cleanup1()

		slice2, cleanup2 := GetInt32Slice(64)
		defer cleanup2()
		for _, v := range slice2 {
			require.Zero(t, v, "stale intensities must not leak between scans")
		}
	})

	t.Run("reuses the underlying array when capacity suffices", func(t *testing.T) {
		slice1, cleanup1 := GetInt32Slice(32)
		ptr1 := &slice1[0]
		cleanup1()

		slice2, cleanup2 := GetInt32Slice(16)
		defer cleanup2()
		require.Equal(t, ptr1, &slice2[0])
	})

	t.Run("grows when capacity is insufficient", func(t *testing.T) {
		_, cleanup1 := GetInt32Slice(8)
		cleanup1()

		slice2, cleanup2 := GetInt32Slice(4096)
		defer cleanup2()
		require.Len(t, slice2, 4096)
	})
}

func TestGetByteSlice(t *testing.T) {
	t.Run("returns empty slice with requested capacity", func(t *testing.T) {
		slice, cleanup := GetByteSlice(256)
		defer cleanup()

		require.Empty(t, slice)
		require.GreaterOrEqual(t, cap(slice), 256)
	})

	t.Run("append stays within the pooled array", func(t *testing.T) {
		slice, cleanup := GetByteSlice(16)
		defer cleanup()

		before := cap(slice)
		slice = append(slice, make([]byte, 16)...)
		require.Equal(t, before, cap(slice))
	})
}
