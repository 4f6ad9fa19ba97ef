// Package compress provides the general-purpose byte compressors applied to
// run-length zero-encoded spectra before they are stored.
//
// Compression here is the second of two stages: the rlze package removes the
// structural redundancy of sparse spectra, and a codec from this package then
// shrinks the packed bytes further. The two stages are independent; any codec
// can be swapped in without touching the encoding semantics.
//
// Intensity blobs are small (a few hundred bytes to tens of kilobytes after
// run-length encoding) and are written far more often than they are read
// back, so the default favors fast compression over maximum ratio.
package compress

import (
	"fmt"
)

// Scheme identifies a byte-compression algorithm. The value written to a
// container is a container-level choice recorded by its writer; it is not
// stored inside each blob.
type Scheme uint8

const (
	SchemeNone Scheme = 0x1 // SchemeNone stores packed bytes as-is.
	SchemeZstd Scheme = 0x2 // SchemeZstd favors compression ratio.
	SchemeS2   Scheme = 0x3 // SchemeS2 balances ratio and speed.
	SchemeLZ4  Scheme = 0x4 // SchemeLZ4 favors decompression speed.
)

func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "None"
	case SchemeZstd:
		return "Zstd"
	case SchemeS2:
		return "S2"
	case SchemeLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseScheme parses the persisted scheme token back into a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "None":
		return SchemeNone, nil
	case "Zstd":
		return SchemeZstd, nil
	case "S2":
		return SchemeS2, nil
	case "LZ4":
		return SchemeLZ4, nil
	default:
		return 0, fmt.Errorf("unsupported compression scheme: %q", s)
	}
}

// Compressor compresses a packed intensity blob.
type Compressor interface {
	// Compress compresses the input and returns a newly allocated result.
	// The input slice is not modified; internal buffers may be reused.
	Compress(data []byte) ([]byte, error)
}

// Decompressor is the inverse of Compressor. The input must have been
// produced by the matching algorithm; corrupted or mismatched data returns
// an error.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. All built-in codecs are stateless values
// and safe for concurrent use.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[Scheme]Codec{
	SchemeNone: NewNoOpCodec(),
	SchemeZstd: NewZstdCodec(),
	SchemeS2:   NewS2Codec(),
	SchemeLZ4:  NewLZ4Codec(),
}

// GetCodec retrieves the built-in Codec for a scheme.
func GetCodec(scheme Scheme) (Codec, error) {
	if codec, ok := builtinCodecs[scheme]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression scheme: %s", scheme)
}
