package graphcol

import "fmt"

// EncodingError reports a triple that could not be serialized. The chunk it
// belongs to was not uploaded and the buffer still holds it.
type EncodingError struct {
	Index int
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode triple %d: %v", e.Index, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// UploadError reports a chunk or manifest the sink failed to store.
type UploadError struct {
	Path    string
	Triples int
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
