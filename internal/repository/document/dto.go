package document

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// docRecord is the JSON shape stored at the document key.
type docRecord struct {
	SourceURI  string `json:"source_uri"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  int64  `json:"created_at"` // unix seconds UTC
}

func buildDocRecord(doc *domdoc.Document, chunkCount int) docRecord {
	return docRecord{
		SourceURI:  doc.SourceURI(),
		Title:      doc.Title(),
		ChunkCount: chunkCount,
		CreatedAt:  doc.CreatedAt().Unix(),
	}
}

func (rec docRecord) toDomain(id string) domdoc.Document {
	return domdoc.Reconstruct(id, rec.SourceURI, rec.Title, rec.ChunkCount, time.Unix(rec.CreatedAt, 0).UTC())
}

// buildChunkFields converts a chunk into a flat map[string]string for HSET.
// The source URI rides along on every chunk so search hits carry provenance
// without a second lookup.
func buildChunkFields(c *chunk.Chunk, sourceURI string) map[string]string {
	return map[string]string{
		"content":     c.Content(),
		"document_id": c.DocumentID(),
		"ordinal":     strconv.Itoa(c.Ordinal()),
		"token_count": strconv.Itoa(c.TokenCount()),
		"source_uri":  sourceURI,
		"vector":      vectorToBytes(c.Embedding()),
	}
}

// parseChunkFields converts a flat hash map back into a domain Chunk.
func parseChunkFields(m map[string]string) chunk.Chunk {
	ordinal, _ := strconv.Atoi(m["ordinal"])
	tokenCount, _ := strconv.Atoi(m["token_count"])
	return chunk.Reconstruct(m["document_id"], m["content"], ordinal, tokenCount, bytesToVector(m["vector"]))
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
