// Package pool provides pooled scratch slices for the decode-heavy paths.
//
// Reconstructing a scan allocates a full bin-count intensity array (hundreds
// of kilobytes at realistic bin counts), and the bin-centric index builder
// does that once per scan across the whole container. Pooling those scratch
// arrays keeps the builder allocation-free after warmup.
package pool

import "sync"

var (
	int32SlicePool = sync.Pool{
		New: func() any { return &[]int32{} },
	}
	byteSlicePool = sync.Pool{
		New: func() any { return &[]byte{} },
	}
)

// GetInt32Slice retrieves an int32 slice of the requested length from the
// pool, zero-filled.
//
// The caller must call the returned cleanup function (typically with defer)
// to return the slice to the pool, and must not retain the slice afterwards.
//
// Parameters:
//   - size: desired slice length
//
// Returns:
//   - []int32: zero-filled slice of length size
//   - func(): cleanup function returning the slice to the pool
func GetInt32Slice(size int) ([]int32, func()) {
	ptr, _ := int32SlicePool.Get().(*[]int32)
	slice := *ptr

	if cap(slice) < size {
		slice = make([]int32, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		for i := range slice {
			slice[i] = 0
		}
		*ptr = slice
	}

	return slice, func() { int32SlicePool.Put(ptr) }
}

// GetByteSlice retrieves a byte slice with zero length and at least the
// requested capacity from the pool, for append-style encoding scratch.
//
// Parameters:
//   - capacity: minimum capacity of the returned slice
//
// Returns:
//   - []byte: empty slice with capacity >= capacity
//   - func(): cleanup function returning the slice to the pool
func GetByteSlice(capacity int) ([]byte, func()) {
	ptr, _ := byteSlicePool.Get().(*[]byte)
	slice := (*ptr)[:0]

	if cap(slice) < capacity {
		slice = make([]byte, 0, capacity)
		*ptr = slice
	}

	return slice, func() { byteSlicePool.Put(ptr) }
}
