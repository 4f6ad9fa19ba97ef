// Package imstore is an embedded storage engine for ion-mobility-
// spectrometry instrument output: a self-contained relational container
// holding per-acquisition metadata (global parameters), per-frame metadata
// (frame parameters), and per-scan compressed intensity spectra.
//
// # Core Features
//
//   - Typed, versioned parameter catalog over a closed key enumeration
//   - Entity-attribute-value storage for global and per-frame metadata
//   - Legacy fixed-column mirroring with one-time two-way migration, for
//     interoperability across both schema generations
//   - Lossless run-length zero-encoding (rlze) of sparse intensity spectra,
//     with correct narrow-width overflow splitting
//   - Optional byte compression of encoded spectra (None, Zstd, S2, LZ4)
//   - Time-based commit batching bounding data-loss exposure to seconds
//
// # Basic Usage
//
// Writing a container:
//
//	w, _ := imstore.OpenWriter("run42.db",
//	    imstore.WithLegacyMirroring(true),
//	    imstore.WithVersionInfo(store.VersionInfo{Name: "acq-agent", Version: "2.1.0"}),
//	)
//	defer w.Close()
//
//	_ = w.CreateTables()
//	_ = w.AddUpdateGlobalParam(param.GlobalBins, param.Int64(148000))
//	_ = w.AddUpdateFrameParam(1, param.FrameCalibrationSlope, param.Float64(0.3476))
//
//	intensities := make([]int32, 148000)
//	intensities[49693] = 8
//	nonZero, _ := w.InsertScan(1, 0, intensities, 0.25)
//	_ = nonZero
//
// # Package Structure
//
// This package provides thin wrappers over the store package. The param,
// rlze and compress packages are usable on their own for key/value handling,
// spectrum encoding, and blob compression respectively.
package imstore

import (
	"github.com/imskit/imstore/compress"
	"github.com/imskit/imstore/store"
)

// OpenWriter starts a single-writer session on the container at path.
func OpenWriter(path string, opts ...store.WriterOption) (*store.Writer, error) {
	return store.Open(path, opts...)
}

// WithLegacyMirroring enables dual-writing into the legacy fixed-column
// tables.
func WithLegacyMirroring(enabled bool) store.WriterOption {
	return store.WithLegacyMirroring(enabled)
}

// WithVersionInfo records the writing software's identity in the container.
func WithVersionInfo(info store.VersionInfo) store.WriterOption {
	return store.WithVersionInfo(info)
}

// WithCompression selects the byte compressor for intensity blobs.
func WithCompression(scheme compress.Scheme) store.WriterOption {
	return store.WithCompression(scheme)
}
