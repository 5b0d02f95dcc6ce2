// Package persistence implements the flat binary snapshot format for the
// full-precision view of a store.
//
// Layout (little-endian, fixed):
//
//	offset 0  : uint64  vector count (N)
//	offset 8  : uint64  dimension (D)
//	offset 16 : N x D x float32 coordinates, insertion order
//
// There is no magic number, version tag or checksum. Only dense vectors
// round-trip through this format; reduced views and the IVF index are
// rebuilt by the caller.
package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// HeaderSize is the fixed size of the snapshot header in bytes.
const HeaderSize = 16

// Sanity limits so a corrupt header cannot trigger absurd allocations.
const (
	maxVectorCount = 100_000_000
	maxDimension   = 1_000_000
)

var (
	// ErrNoVectors is returned when writing an empty dataset.
	ErrNoVectors = errors.New("persistence: no vectors to write")

	// ErrCorruptHeader is returned when a header declares implausible sizes.
	ErrCorruptHeader = errors.New("persistence: corrupt header")
)

// Header is the 16-byte header at the start of every snapshot.
type Header struct {
	Count     uint64
	Dimension uint64
}

// Options contains configuration options for snapshot files.
type Options struct {
	// Compression wraps the snapshot in a zstd stream. Compressed
	// snapshots are not byte-compatible with the flat layout and must be
	// loaded with the same option.
	Compression bool

	// CompressionLevel selects the zstd encoder level. Ignored unless
	// Compression is set.
	CompressionLevel zstd.EncoderLevel
}

// DefaultOptions contains the default configuration options for snapshots.
var DefaultOptions = Options{
	Compression:      false,
	CompressionLevel: zstd.SpeedDefault,
}

// WithCompression enables zstd compression at the given encoder level.
func WithCompression(level zstd.EncoderLevel) func(o *Options) {
	return func(o *Options) {
		o.Compression = true
		o.CompressionLevel = level
	}
}

// Write serializes vectors to w in the flat snapshot layout.
// All vectors must share one dimension.
func Write(w io.Writer, vectors [][]float32) error {
	if len(vectors) == 0 {
		return ErrNoVectors
	}

	dim := len(vectors[0])
	header := Header{
		Count:     uint64(len(vectors)),
		Dimension: uint64(dim),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("persistence: write header: %w", err)
	}

	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("persistence: vector %d has dimension %d, want %d", i, len(vec), dim)
		}
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("persistence: write vector %d: %w", i, err)
		}
	}

	return nil
}

// Read deserializes vectors from r. It fails with an I/O error if r holds
// fewer bytes than the header declares.
func Read(r io.Reader) ([][]float32, error) {
	var header Header
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("persistence: short header: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("persistence: read header: %w", err)
	}

	if header.Count > maxVectorCount || header.Dimension > maxDimension || header.Dimension == 0 {
		return nil, fmt.Errorf("%w: count=%d dimension=%d", ErrCorruptHeader, header.Count, header.Dimension)
	}

	vectors := make([][]float32, 0, header.Count)
	for i := uint64(0); i < header.Count; i++ {
		vec := make([]float32, header.Dimension)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("persistence: truncated at vector %d: %w", i, io.ErrUnexpectedEOF)
			}
			return nil, fmt.Errorf("persistence: read vector %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}

	return vectors, nil
}

// SaveToFile writes vectors to path, replacing any existing file.
// All buffered output is flushed and synced before returning. A failed
// save may leave a truncated file; callers needing atomicity should write
// to a temporary path and rename.
func SaveToFile(path string, vectors [][]float32, optFns ...func(o *Options)) error {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewWriterSize(f, 256*1024)

	var w io.Writer = buf
	var enc *zstd.Encoder
	if opts.Compression {
		enc, err = zstd.NewWriter(buf, zstd.WithEncoderLevel(opts.CompressionLevel))
		if err != nil {
			return err
		}
		w = enc
	}

	if err := Write(w, vectors); err != nil {
		return err
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return err
		}
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}

	return f.Close()
}

// LoadFromFile reads vectors from path.
func LoadFromFile(path string, optFns ...func(o *Options)) ([][]float32, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 256*1024)
	if opts.Compression {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}

	return Read(r)
}
