// Package pack concatenates build artifacts into a single packed image.
package pack

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// DefaultFileName is the packed image name used at every level.
const DefaultFileName = "packed.bin"

// Segment records where one artifact landed in a packed image.
type Segment struct {
	Path   string
	Offset int64
	Size   int64
}

// Pack removes out if it exists and writes the bytes of every path to it in
// order. No header or padding is added.
func Pack(paths []string, out string) ([]Segment, error) {
	if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale image %s: %w", out, err)
	}
	dst, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("failed to create packed image: %w", err)
	}

	segments := make([]Segment, 0, len(paths))
	var offset int64
	for _, p := range paths {
		n, err := appendFile(dst, p)
		if err != nil {
			dst.Close()
			return nil, err
		}
		segments = append(segments, Segment{Path: p, Offset: offset, Size: n})
		offset += n
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("failed to close packed image %s: %w", out, err)
	}
	return segments, nil
}

func appendFile(dst io.Writer, path string) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()
	n, err := io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("failed to append artifact %s: %w", path, err)
	}
	return n, nil
}

// Size is the total length of the packed image described by segments.
func Size(segments []Segment) int64 {
	if len(segments) == 0 {
		return 0
	}
	last := segments[len(segments)-1]
	return last.Offset + last.Size
}

// Split cuts blob back into consecutive pieces of the given sizes.
func Split(blob []byte, sizes []int64) ([][]byte, error) {
	var total int64
	for _, s := range sizes {
		if s < 0 {
			return nil, fmt.Errorf("negative segment size %d", s)
		}
		total += s
	}
	if total != int64(len(blob)) {
		return nil, fmt.Errorf("segment sizes add up to %d bytes, image has %d", total, len(blob))
	}
	parts := make([][]byte, 0, len(sizes))
	var off int64
	for _, s := range sizes {
		parts = append(parts, blob[off:off+s])
		off += s
	}
	return parts, nil
}
