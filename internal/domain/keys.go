package domain

import (
	"crypto/sha1" //nolint:gosec // key derivation, not security
	"encoding/hex"
	"fmt"
)

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "ragdex:"

// ChunkIndexName is the FT index covering all chunk hashes.
const ChunkIndexName = KeyPrefix + "chunks:idx"

// ChunkKeyPrefix is the key prefix the chunk FT index is declared over.
const ChunkKeyPrefix = KeyPrefix + "chunk:"

// DocIndexName is the FT index covering document JSON records.
const DocIndexName = KeyPrefix + "docs:idx"

// DocKeyPrefix is the key prefix the document FT index is declared over.
const DocKeyPrefix = KeyPrefix + "doc:"

// SourceKeyPrefix namespaces the source-URI to document-id mapping.
const SourceKeyPrefix = KeyPrefix + "src:"

// DocKey returns the storage key for a document record.
func DocKey(docID string) string {
	return DocKeyPrefix + docID
}

// ChunkKey returns the storage key for a chunk hash. The key suffix doubles
// as the chunk identifier.
func ChunkKey(docID string, ordinal int) string {
	return fmt.Sprintf("%s%s:%d", ChunkKeyPrefix, docID, ordinal)
}

// SourceKey returns the storage key mapping a source URI to its document id.
// URIs can exceed key-length comfort, so the key carries a digest instead.
func SourceKey(sourceURI string) string {
	sum := sha1.Sum([]byte(sourceURI)) //nolint:gosec // key derivation, not security
	return SourceKeyPrefix + hex.EncodeToString(sum[:])
}
