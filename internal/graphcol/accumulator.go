package graphcol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bowerhall/graphcol/internal/storage"
	"github.com/bowerhall/graphcol/internal/triple"
)

// DefaultChunkSize is the number of triples per chunk unless configured.
const DefaultChunkSize = 250_000

// ContentType is sent with every chunk upload.
const ContentType = "application/octet-stream"

// Uploader stores a named blob. storage.Sink satisfies it.
type Uploader interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}

// Stats are the running totals of a dataset. Only chunks the uploader
// accepted are counted.
type Stats struct {
	TotalTriples   int64 `json:"totalTriples"`
	TotalChunks    int   `json:"totalChunks"`
	TotalSizeBytes int64 `json:"totalSizeBytes"`
}

// Add returns the element-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		TotalTriples:   s.TotalTriples + o.TotalTriples,
		TotalChunks:    s.TotalChunks + o.TotalChunks,
		TotalSizeBytes: s.TotalSizeBytes + o.TotalSizeBytes,
	}
}

// ChunkResult describes one attempted chunk upload.
type ChunkResult struct {
	Dataset  string
	Index    int
	Path     string
	Triples  int
	Bytes    int
	Checksum string
	Duration time.Duration
	Err      error
}

// AccumulatorConfig configures an Accumulator.
type AccumulatorConfig struct {
	Dataset   string
	Namespace string
	ChunkSize int

	// OnChunk, if set, is called after every upload attempt.
	OnChunk func(ChunkResult)
}

// Accumulator buffers triples for one dataset run and writes them out as
// chunks. It is not safe for concurrent use; each run owns its own instance.
type Accumulator struct {
	cfg      AccumulatorConfig
	uploader Uploader

	buf      []triple.Triple
	seq      int
	stats    Stats
	failures []ChunkResult
}

func NewAccumulator(cfg AccumulatorConfig, uploader Uploader) *Accumulator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	return &Accumulator{
		cfg:      cfg,
		uploader: uploader,
	}
}

// Add appends t and flushes once the buffer holds ChunkSize triples.
func (a *Accumulator) Add(ctx context.Context, t triple.Triple) error {
	a.buf = append(a.buf, t)

	if len(a.buf) >= a.cfg.ChunkSize {
		return a.Flush(ctx)
	}

	return nil
}

// Flush writes the buffered triples as the next chunk. An empty buffer is a
// no-op.
//
// On an encoding failure the buffer is kept and an *EncodingError returned.
// On an upload failure the buffered triples are dropped, the chunk index is
// not consumed and an *UploadError is returned; the next chunk is written
// under the same index so uploaded chunks stay contiguous.
func (a *Accumulator) Flush(ctx context.Context) error {
	if len(a.buf) == 0 {
		return nil
	}

	data, err := Encode(a.buf, a.cfg.Namespace)
	if err != nil {
		return err
	}

	res := ChunkResult{
		Dataset:  a.cfg.Dataset,
		Index:    a.seq,
		Path:     ChunkPath(a.cfg.Dataset, a.seq),
		Triples:  len(a.buf),
		Bytes:    len(data),
		Checksum: Checksum(data),
	}

	start := time.Now()
	res.Err = a.uploader.Put(storage.WithChecksum(ctx, res.Checksum), res.Path, data, ContentType)
	res.Duration = time.Since(start)

	clear(a.buf)
	a.buf = a.buf[:0]

	if a.cfg.OnChunk != nil {
		a.cfg.OnChunk(res)
	}

	if res.Err != nil {
		a.failures = append(a.failures, res)
		return &UploadError{Path: res.Path, Triples: res.Triples, Err: res.Err}
	}

	a.seq++
	a.stats.TotalChunks++
	a.stats.TotalTriples += int64(res.Triples)
	a.stats.TotalSizeBytes += int64(res.Bytes)

	return nil
}

// Finish flushes any trailing partial chunk and returns the final totals.
// The totals are returned even when the last flush fails.
func (a *Accumulator) Finish(ctx context.Context) (Stats, error) {
	err := a.Flush(ctx)
	return a.stats, err
}

// Stats returns the totals so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Drop removes the buffered triple at index, typically the Index of an
// *EncodingError, so the next Add or Flush can retry the rest of the chunk.
func (a *Accumulator) Drop(index int) (triple.Triple, error) {
	if index < 0 || index >= len(a.buf) {
		return triple.Triple{}, fmt.Errorf("drop %d: %d triples buffered", index, len(a.buf))
	}

	t := a.buf[index]
	a.buf = append(a.buf[:index], a.buf[index+1:]...)
	return t, nil
}

// Pending returns the number of buffered triples.
func (a *Accumulator) Pending() int {
	return len(a.buf)
}

// Failures returns the chunks whose upload failed.
func (a *Accumulator) Failures() []ChunkResult {
	return a.failures
}

// IsUploadError reports whether err came from the uploader rather than from
// encoding.
func IsUploadError(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue)
}
