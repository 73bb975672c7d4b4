// Package corpus splits training text into per-worker partitions. Every reader
// loops over its partition forever; callers decide when to stop.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Reader yields tokenised lines from one partition.
type Reader interface {
	// Next returns the next line's tokens, wrapping to the start of the
	// partition at its end. An empty partition returns empty lines.
	Next() ([]string, error)
	Close() error
}

var ErrNoPartitions = errors.New("corpus: partition count must be positive")

// Tokenize splits a line on whitespace.
func Tokenize(line string) []string {
	return strings.Fields(line)
}

// PartitionLines distributes lines round-robin over n in-memory readers.
func PartitionLines(lines []string, n int) ([]Reader, error) {
	if n <= 0 {
		return nil, ErrNoPartitions
	}
	parts := make([][][]string, n)
	for i, line := range lines {
		parts[i%n] = append(parts[i%n], Tokenize(line))
	}
	readers := make([]Reader, n)
	for i := range parts {
		readers[i] = &memReader{lines: parts[i]}
	}
	return readers, nil
}

type memReader struct {
	lines [][]string
	pos   int
}

func (r *memReader) Next() ([]string, error) {
	if len(r.lines) == 0 {
		return nil, nil
	}
	line := r.lines[r.pos]
	r.pos = (r.pos + 1) % len(r.lines)
	return line, nil
}

func (r *memReader) Close() error { return nil }

// PartitionFile splits the file at path into n byte ranges aligned to line
// starts. Each reader holds its own file handle.
func PartitionFile(path string, n int) ([]Reader, error) {
	if n <= 0 {
		return nil, ErrNoPartitions
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	size := st.Size()

	bounds := make([]int64, n+1)
	bounds[n] = size
	for i := 1; i < n; i++ {
		off, err := lineStart(f, size*int64(i)/int64(n))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("corpus: align partition %d: %w", i, err)
		}
		bounds[i] = max(off, bounds[i-1])
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	readers := make([]Reader, 0, n)
	closeAll := func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}
	for i := range n {
		r, err := openRange(path, bounds[i], bounds[i+1])
		if err != nil {
			closeAll()
			return nil, err
		}
		readers = append(readers, r)
	}
	return readers, nil
}

// lineStart returns the first line start at or after off.
func lineStart(f *os.File, off int64) (int64, error) {
	if off == 0 {
		return 0, nil
	}
	if _, err := f.Seek(off-1, io.SeekStart); err != nil {
		return 0, err
	}
	br := bufio.NewReader(f)
	skipped, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	return off - 1 + int64(len(skipped)), nil
}

// fileReader reads the lines in [start, end) of a file.
type fileReader struct {
	f          *os.File
	br         *bufio.Reader
	start, end int64
	pos        int64
}

func openRange(path string, start, end int64) (*fileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &fileReader{f: f, br: bufio.NewReaderSize(f, 256*1024), start: start, end: end}
	if err := r.rewind(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

func (r *fileReader) rewind() error {
	if _, err := r.f.Seek(r.start, io.SeekStart); err != nil {
		return err
	}
	r.br.Reset(r.f)
	r.pos = r.start
	return nil
}

func (r *fileReader) Next() ([]string, error) {
	if r.start >= r.end {
		return nil, nil
	}
	if r.pos >= r.end {
		if err := r.rewind(); err != nil {
			return nil, fmt.Errorf("corpus: rewind: %w", err)
		}
	}
	line, err := r.br.ReadString('\n')
	r.pos += int64(len(line))
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("corpus: read: %w", err)
		}
		if line == "" {
			// The file shrank under us; the next call rewinds.
			r.pos = r.end
			return nil, nil
		}
	}
	return Tokenize(line), nil
}

func (r *fileReader) Close() error {
	return r.f.Close()
}

// CloseAll closes every reader and returns the first error.
func CloseAll(readers []Reader) error {
	var first error
	for _, r := range readers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
