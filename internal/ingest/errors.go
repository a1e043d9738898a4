package ingest

import (
	"errors"
	"fmt"
)

// SourceError means the edge or label stream failed before it was
// exhausted. The dataset is aborted and no manifest is written.
type SourceError struct {
	Dataset string
	Stream  string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s stream: %v", e.Dataset, e.Stream, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ErrChunkLost aborts a dataset under the atomic commit policy.
var ErrChunkLost = errors.New("chunk upload failed, dataset not committed")
