package document

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// DefaultMaxPayloadSize bounds a single auto-batched submission (100 MiB).
const DefaultMaxPayloadSize = 100 << 20

// Document is an opaque user record. The façade never inspects its fields.
type Document map[string]any

// Page is one window of documents from an index.
type Page struct {
	Results []Document `json:"results"`
	Offset  int64      `json:"offset"`
	Limit   int64      `json:"limit"`
	Total   int64      `json:"total"`
}

// ListQuery selects a window of documents.
type ListQuery struct {
	Offset int64
	Limit  int64
	Fields []string
}

// ChunkBySize splits docs into consecutive chunks of at most size documents.
// Order is preserved and the chunk count is ceil(len(docs)/size).
func ChunkBySize(docs []Document, size int) ([][]Document, error) {
	if size <= 0 {
		return nil, domain.BadRequest("batch size must be positive, got %d", size)
	}
	chunks := make([][]Document, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		chunks = append(chunks, docs[start:end])
	}
	return chunks, nil
}

// ChunkByPayload groups docs greedily so that the serialized JSON array of
// every chunk stays within maxBytes. A document that alone exceeds the bound
// is placed in a chunk of its own.
func ChunkByPayload(docs []Document, maxBytes int) ([][]Document, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadSize
	}

	var (
		chunks  [][]Document
		current []Document
		size    int
	)
	for i, doc := range docs {
		raw, err := sonic.Marshal(doc)
		if err != nil {
			return nil, domain.BadRequest("document %d is not serializable: %v", i, err)
		}
		// "[" + "]" for the array, one comma per extra element.
		added := len(raw)
		if len(current) > 0 {
			added++
		}
		if len(current) > 0 && size+added > maxBytes {
			chunks = append(chunks, current)
			current, size = nil, 2
			added = len(raw)
		}
		if len(current) == 0 {
			size = 2
		}
		current = append(current, doc)
		size += added
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks, nil
}

// PayloadSize is the serialized size of docs as one JSON array.
func PayloadSize(docs []Document) (int, error) {
	raw, err := sonic.Marshal(docs)
	if err != nil {
		return 0, fmt.Errorf("marshal documents: %w", err)
	}
	return len(raw), nil
}
