// Package store implements the write path of the ion-mobility container: the
// relational schema, the entity-attribute-value parameter stores for global
// and per-frame metadata, the legacy fixed-column mirror with its two-way
// one-time migration, the commit-batching transaction coordinator, and the
// scan writer that ties them to the rlze codec.
//
// # Schema generations
//
// The modern schema stores parameters as rows (GlobalParams, FrameParamKeys,
// FrameParams) and spectra in FrameScans. The legacy schema flattens the same
// metadata into one fixed column per historically-known key
// (Global_Parameters, Frame_Parameters). A container may carry either or
// both; when both are present and mirroring is enabled, every modern write is
// dual-written into the legacy representation in the same logical operation.
//
// # Concurrency
//
// A Writer is a single-writer session: all operations run synchronously on
// the calling goroutine and exactly one transaction is open at a time.
// Concurrent writer sessions against the same container are not supported;
// SQLite's own locking serializes them at the cost of lock-wait stalls.
// Readers against a container with an uncommitted writer transaction may see
// partial data; force a flush before handing a container to a reader.
package store
