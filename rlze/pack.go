package rlze

import (
	"encoding/binary"
	"fmt"

	"github.com/imskit/imstore/errs"
)

// PackInt32 serializes an encoded sequence to the persisted little-endian
// byte form, four bytes per entry. The byte order is fixed by the container
// format and does not follow the host.
func PackInt32(encoded []int32) []byte {
	return AppendInt32(make([]byte, 0, len(encoded)*4), encoded)
}

// AppendInt32 appends the persisted byte form of encoded to dst and returns
// the extended slice, for callers that pack into a reused buffer.
func AppendInt32(dst []byte, encoded []int32) []byte {
	for _, entry := range encoded {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(entry))
	}

	return dst
}

// UnpackInt32 is the inverse of PackInt32.
//
// Returns ErrInvalidArgument when the byte length is not a multiple of four,
// which indicates a truncated or corrupted blob.
func UnpackInt32(packed []byte) ([]int32, error) {
	if len(packed)%4 != 0 {
		return nil, fmt.Errorf("%w: encoded blob length %d is not a multiple of 4", errs.ErrInvalidArgument, len(packed))
	}

	encoded := make([]int32, len(packed)/4)
	for i := range encoded {
		encoded[i] = int32(binary.LittleEndian.Uint32(packed[i*4:]))
	}

	return encoded, nil
}

// DecodeInto reconstructs an intensity array into a caller-supplied buffer of
// length binCount, zeroing it first. It exists for decode-heavy batch paths
// (such as the bin-centric index builder) that reuse pooled buffers instead
// of allocating per scan; the semantics are identical to Decode.
func DecodeInto(dst []int32, encoded []int32) error {
	for i := range dst {
		dst[i] = 0
	}

	binCount := len(dst)
	cursor := 0

	for i, entry := range encoded {
		if entry < 0 {
			cursor += int(-int64(entry))
			if cursor > binCount {
				return fmt.Errorf("%w: zero run at entry %d advances cursor to %d past bin count %d",
					errs.ErrValueOutOfRange, i, cursor, binCount)
			}

			continue
		}

		if cursor >= binCount {
			return fmt.Errorf("%w: intensity at entry %d lands on bin %d past bin count %d",
				errs.ErrValueOutOfRange, i, cursor, binCount)
		}

		dst[cursor] = entry
		cursor++
	}

	return nil
}
