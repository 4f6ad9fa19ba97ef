// Package param defines the closed parameter key space of the container, the
// tagged value type used by both the global and the per-frame entity-
// attribute-value stores, and the catalog of key definitions shared by the
// two schema generations.
//
// # Key space
//
// Global keys describe the whole acquisition (instrument identity, bin count,
// calibration constants); frame keys describe one acquisition cycle. Both key
// spaces are closed enumerations whose numeric values are part of the
// persisted format. New keys require a catalog entry, never an ad hoc string.
//
// # Values
//
// Value is a tagged union over {int, double, string, datetime} with total
// conversions between representations. Values persist as text; NaN doubles
// persist as the literal token "NaN" so an explicitly-undefined numeric
// result is distinguishable from an absent value.
//
// # Legacy mapping
//
// The first schema generation stored parameters in fixed columns. The
// mappings in this package translate modern keys to those column names for
// the mirror in the store package; keys that postdate the legacy schema have
// no mapping and are skipped by the mirror.
package param
