package graphcol

import "fmt"

// ChunkExt is the file extension of chunk files.
const ChunkExt = ".graphcol"

// ChunkPath returns the object path of chunk index within dataset.
func ChunkPath(dataset string, index int) string {
	return fmt.Sprintf("datasets/%s/chunks/chunk_%06d%s", dataset, index, ChunkExt)
}

// ManifestPath returns the object path of the dataset manifest.
func ManifestPath(dataset string) string {
	return fmt.Sprintf("datasets/%s/index.json", dataset)
}
