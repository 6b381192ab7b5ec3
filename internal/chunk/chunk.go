// Package chunk plans how large transfers are split into multipart parts.
//
// The plan balances three store-imposed constraints: parts must be at least
// MinPartSize, a session may hold at most MaxParts parts, and single-request
// copies are capped at MaxSingleCopySize.
package chunk

// Store-imposed multipart limits.
const (
	// MinPartSize is the smallest part the store accepts (except the last
	// part of a session).
	MinPartSize = 5 * 1024 * 1024

	// MaxParts is the maximum number of parts in one multipart session.
	MaxParts = 10000

	// DefaultChunkSize is used when the object is small enough that the
	// part-count limit does not force a larger chunk.
	DefaultChunkSize = 100 * 1024 * 1024

	// MaxSingleCopySize is the largest object a single CopyObject request
	// can handle. Anything bigger goes through byte-range part copies.
	MaxSingleCopySize = 4 * 1024 * 1024 * 1024
)

// Size returns the chunk size to use for an object of objectSize bytes.
//
// A caller override of at least MinPartSize is honored verbatim, even when
// it would produce more than MaxParts parts. Otherwise the chunk is the
// largest of: the size that fits the object into MaxParts parts,
// DefaultChunkSize, and MinPartSize.
func Size(objectSize, override int64) int64 {
	if override >= MinPartSize {
		return override
	}

	size := (objectSize + MaxParts - 1) / MaxParts
	if size < DefaultChunkSize {
		size = DefaultChunkSize
	}
	if size < MinPartSize {
		size = MinPartSize
	}
	return size
}

// Range is a half-open byte range [Start, End] (inclusive end, as the
// store's Range headers express it) for one part.
type Range struct {
	// Number is the 1-based part number
	Number int32

	// Start is the first byte offset of the part
	Start int64

	// End is the last byte offset of the part, inclusive
	End int64
}

// Len returns the number of bytes the range covers.
func (r Range) Len() int64 {
	return r.End - r.Start + 1
}

// Ranges partitions [0, size) into contiguous part ranges of chunkSize
// bytes each, the last one short. A non-positive size yields no ranges.
func Ranges(size, chunkSize int64) []Range {
	if size <= 0 || chunkSize <= 0 {
		return nil
	}

	n := (size + chunkSize - 1) / chunkSize
	ranges := make([]Range, 0, n)
	for i := int64(0); i < n; i++ {
		start := i * chunkSize
		end := start + chunkSize - 1
		if end >= size {
			end = size - 1
		}
		ranges = append(ranges, Range{
			Number: int32(i + 1),
			Start:  start,
			End:    end,
		})
	}
	return ranges
}
