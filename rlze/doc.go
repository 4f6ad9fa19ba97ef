// Package rlze implements the run-length zero-encoding codec that compresses
// sparse intensity spectra into compact signed-integer sequences.
//
// An intensity array is indexed by bin number and is mostly zero. Encoding
// scans it once, left to right: consecutive zeros collapse into a single
// negative entry whose magnitude is the run length, and each non-zero
// intensity is emitted as a non-negative entry at the next implicit bin
// position. Decoding replays the sequence against a cursor over a
// zero-initialized array of the caller-specified bin count.
//
// Runs too long for the element width split into greedy maximum-magnitude
// chunks. The splitter never emits a zero-valued filler entry: a zero entry
// is indistinguishable from "intensity 0 at the next bin" and would shift
// every subsequent bin index by one on decode.
//
// Encoding is pure and stateless. Summary statistics (non-zero count, total
// ion current, base-peak intensity and its bin) fall out of the same pass.
//
// The encoded sequence persists as little-endian int32 bytes (PackInt32); a
// general-purpose byte compressor from the compress package is typically
// applied on top before storage.
package rlze
