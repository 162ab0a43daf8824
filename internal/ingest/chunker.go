package ingest

import "io"

// chunkReader bounds every Read at the current chunk boundary so the
// stream is consumed in fixed-size chunks, and counts the chunks it has
// touched. Chunking is purely a streaming mechanism: downstream parsing
// sees one continuous byte stream.
type chunkReader struct {
	r         io.Reader
	chunkSize int64
	bytesRead int64
}

func newChunkReader(r io.Reader, chunkSize int) *chunkReader {
	return &chunkReader{r: r, chunkSize: int64(chunkSize)}
}

func (c *chunkReader) Read(p []byte) (int, error) {
	// Cap the read at the end of the current chunk.
	remaining := c.chunkSize - c.bytesRead%c.chunkSize
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := c.r.Read(p)
	c.bytesRead += int64(n)
	return n, err
}

// BytesRead returns the total bytes consumed so far.
func (c *chunkReader) BytesRead() int64 {
	return c.bytesRead
}

// Chunks returns the number of fixed-size chunks touched so far.
func (c *chunkReader) Chunks() int64 {
	if c.bytesRead == 0 {
		return 0
	}
	return (c.bytesRead + c.chunkSize - 1) / c.chunkSize
}
