// Package ingest provides chunked CSV ingestion into an in-memory dataset.
package ingest

import (
	"bytes"
	"io"
	"os"
)

// Source abstracts an uploaded file: a byte stream with a name (for
// extension checks) and a known size (for the ceiling check before any
// read happens).
type Source interface {
	io.Reader

	// Name returns the file name including extension
	Name() string

	// Size returns the total byte size of the source
	Size() int64
}

// FileSource is a Source backed by a file on disk.
type FileSource struct {
	f    *os.File
	name string
	size int64
}

// OpenFile opens path as an ingestion source.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FileSource{f: f, name: info.Name(), size: info.Size()}, nil
}

func (s *FileSource) Read(p []byte) (int, error) { return s.f.Read(p) }

func (s *FileSource) Name() string { return s.name }

func (s *FileSource) Size() int64 { return s.size }

// Close closes the underlying file.
func (s *FileSource) Close() error { return s.f.Close() }

// BytesSource is an in-memory Source, used by the self-test harness and
// tests.
type BytesSource struct {
	r    *bytes.Reader
	name string
	size int64
}

// NewBytesSource creates a Source over an in-memory byte slice.
func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{
		r:    bytes.NewReader(data),
		name: name,
		size: int64(len(data)),
	}
}

func (s *BytesSource) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *BytesSource) Name() string { return s.name }

func (s *BytesSource) Size() int64 { return s.size }
