package rlze

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/imskit/imstore/errs"
)

// IntensityWidth constrains the element width of an encoded sequence. The
// wide width (int32) never overflows for realistic bin counts; the narrow
// width (int16) commonly exercises run splitting. The algorithm is identical,
// parameterized only by the representable range.
type IntensityWidth interface {
	~int16 | ~int32
}

// Stats carries the summary statistics computed during the encode pass.
// They are produced in the same left-to-right scan as the encoding itself,
// never in a second pass over the input.
type Stats struct {
	// NonZeroCount is the number of non-zero intensities in the scan.
	NonZeroCount int

	// TIC is the total ion current: the sum of all intensities, widened to
	// int64 so dense scans cannot overflow the element width.
	TIC int64

	// BPI is the base-peak intensity, the largest single intensity.
	BPI int64

	// BPIBin is the bin index at which the base peak occurs. The caller needs
	// it to compute the base peak's m/z via the frame's calibration function.
	BPIBin int
}

// Encode compresses an intensity array into a run-length zero-encoded
// sequence.
//
// The input is indexed by bin number and must contain only non-negative
// intensities. The output is a shorter sequence of signed integers: a
// negative entry -n means "advance n bins of implicit zeros"; a non-negative
// entry is an intensity at the next bin.
//
// A zero run longer than the element width's negative range is split into
// greedy maximum-magnitude chunks. No zero-valued filler entry is ever
// emitted between chunks: the prior generation emitted one when a run hit
// exactly the minimum representable value, which shifted every subsequent bin
// by one on decode. A zero run that extends to the end of the input is not
// emitted at all; Decode pre-sizes its output and leaves the tail zero.
//
// Parameters:
//   - intensities: intensity per bin, mostly zero
//
// Returns:
//   - []T: the encoded sequence
//   - Stats: summary statistics from the same pass
func Encode[T IntensityWidth](intensities []T) ([]T, Stats) {
	var stats Stats

	// Sparse inputs dominate, so start small and let append grow the buffer.
	encoded := make([]T, 0, 64)

	maxRun := maxRunMagnitude[T]()
	zeroRun := int64(0)

	for bin, intensity := range intensities {
		if intensity == 0 {
			zeroRun++
			continue
		}

		if zeroRun > 0 {
			encoded = appendZeroRun(encoded, zeroRun, maxRun)
			zeroRun = 0
		}

		encoded = append(encoded, intensity)

		stats.NonZeroCount++
		stats.TIC += int64(intensity)
		if int64(intensity) > stats.BPI {
			stats.BPI = int64(intensity)
			stats.BPIBin = bin
		}
	}

	// Trailing zero run dropped on purpose.
	return encoded, stats
}

// appendZeroRun emits a zero run as one or more negative entries. Runs larger
// than maxRun split into maximum-magnitude chunks first, then one final chunk
// for the remainder. A run of exactly k*maxRun produces exactly k chunks and
// nothing else.
func appendZeroRun[T IntensityWidth](encoded []T, run, maxRun int64) []T {
	for run > maxRun {
		encoded = append(encoded, T(-maxRun))
		run -= maxRun
	}
	if run > 0 {
		encoded = append(encoded, T(-run))
	}

	return encoded
}

// maxRunMagnitude returns the largest zero-run magnitude a single encoded
// entry of type T can carry, i.e. |minimum representable value|.
func maxRunMagnitude[T IntensityWidth]() int64 {
	bits := unsafe.Sizeof(T(0)) * 8
	return int64(1) << (bits - 1)
}

// Decode is the exact inverse of Encode.
//
// It pre-sizes the output to binCount and walks the encoded sequence with an
// implicit bin cursor: a negative entry advances the cursor by its magnitude,
// a non-negative entry is written at the cursor which then advances by one.
//
// Parameters:
//   - encoded: the run-length zero-encoded sequence
//   - binCount: the full bin count of the scan, which the encoding does not
//     carry itself because trailing zero runs are dropped
//
// Returns:
//   - []T: the reconstructed intensity array, length binCount
//   - error: ErrValueOutOfRange if the cursor would pass binCount, rather
//     than writing out of bounds
func Decode[T IntensityWidth](encoded []T, binCount int) ([]T, error) {
	if binCount < 0 {
		return nil, fmt.Errorf("%w: negative bin count %d", errs.ErrInvalidArgument, binCount)
	}

	intensities := make([]T, binCount)
	cursor := 0

	for i, entry := range encoded {
		if entry < 0 {
			cursor += int(-int64(entry))
			if cursor > binCount {
				return nil, fmt.Errorf("%w: zero run at entry %d advances cursor to %d past bin count %d",
					errs.ErrValueOutOfRange, i, cursor, binCount)
			}

			continue
		}

		if cursor >= binCount {
			return nil, fmt.Errorf("%w: intensity at entry %d lands on bin %d past bin count %d",
				errs.ErrValueOutOfRange, i, cursor, binCount)
		}

		intensities[cursor] = entry
		cursor++
	}

	return intensities, nil
}

// EncodeSparse encodes a sparse (bin, intensity) map directly, skipping the
// zero-run scan over bins that are known absent.
//
// Every supplied intensity must be strictly positive: an explicit zero entry
// would decode as "intensity 0 at this bin" and shift the implicit position
// of every later bin, so it is rejected up front with ErrInvalidArgument.
//
// Parameters:
//   - entries: bin number to intensity, zero-intensity bins omitted
//   - binCount: the full bin count of the scan
//
// Returns:
//   - []T: the encoded sequence, identical to Encode of the dense equivalent
//   - Stats: summary statistics
//   - error: ErrInvalidArgument on a zero or negative intensity,
//     ErrValueOutOfRange on a bin outside [0, binCount)
func EncodeSparse[T IntensityWidth](entries map[int]T, binCount int) ([]T, Stats, error) {
	var stats Stats

	bins := make([]int, 0, len(entries))
	for bin, intensity := range entries {
		if intensity <= 0 {
			return nil, Stats{}, fmt.Errorf("%w: bin %d has non-positive intensity %d in sparse map",
				errs.ErrInvalidArgument, bin, int64(intensity))
		}
		if bin < 0 || bin >= binCount {
			return nil, Stats{}, fmt.Errorf("%w: bin %d outside [0, %d)",
				errs.ErrValueOutOfRange, bin, binCount)
		}

		bins = append(bins, bin)
	}
	sort.Ints(bins)

	encoded := make([]T, 0, len(bins)*2)
	maxRun := maxRunMagnitude[T]()
	cursor := 0

	for _, bin := range bins {
		if gap := int64(bin - cursor); gap > 0 {
			encoded = appendZeroRun(encoded, gap, maxRun)
		}

		intensity := entries[bin]
		encoded = append(encoded, intensity)
		cursor = bin + 1

		stats.NonZeroCount++
		stats.TIC += int64(intensity)
		if int64(intensity) > stats.BPI {
			stats.BPI = int64(intensity)
			stats.BPIBin = bin
		}
	}

	return encoded, stats, nil
}
