package compress

// ZstdCodec compresses blobs with Zstandard. It trades some write-path speed
// for the best ratio of the built-in codecs, which suits archival containers
// that are written once and shipped.
//
// Two implementations exist behind the zstdcgo build tag: the default pure-Go
// one (klauspost/compress/zstd) keeps the module cgo-free, and the cgo one
// (valyala/gozstd) links the reference C library for throughput-critical
// acquisition hosts. Blobs produced by either decompress with the other.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstandard codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}
