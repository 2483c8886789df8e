package result

// Provenance records which underlying search surfaced a result.
type Provenance string

// Provenance constants.
const (
	// FromVector means only the vector index surfaced the chunk.
	FromVector Provenance = "vector"
	// FromLexical means only the lexical index surfaced the chunk.
	FromLexical Provenance = "lexical"
	// FromBoth means both indexes surfaced the chunk.
	FromBoth Provenance = "both"
)

// Candidate is a single hit from one index, before fusion. Rank is the
// 1-based position within the source list.
type Candidate struct {
	chunkID    string
	documentID string
	content    string
	source     string
	rawScore   float64
	rank       int
}

// NewCandidate creates a search candidate.
func NewCandidate(chunkID, documentID, content, source string, rawScore float64, rank int) Candidate {
	return Candidate{
		chunkID: chunkID, documentID: documentID, content: content,
		source: source, rawScore: rawScore, rank: rank,
	}
}

// ChunkID returns the chunk identifier.
func (c *Candidate) ChunkID() string { return c.chunkID }

// DocumentID returns the owning document identifier.
func (c *Candidate) DocumentID() string { return c.documentID }

// Content returns the chunk content.
func (c *Candidate) Content() string { return c.content }

// Source returns the source URI of the owning document.
func (c *Candidate) Source() string { return c.source }

// RawScore returns the index-native score (similarity or BM25 relevance).
func (c *Candidate) RawScore() float64 { return c.rawScore }

// Rank returns the 1-based position in the source list.
func (c *Candidate) Rank() int { return c.rank }

// WithRank returns a copy with the rank set.
func (c *Candidate) WithRank(rank int) Candidate {
	cp := *c
	cp.rank = rank
	return cp
}

// FusedResult is a final ranked hit, produced per query, never persisted.
type FusedResult struct {
	chunkID    string
	documentID string
	content    string
	source     string
	score      float64
	provenance Provenance
}

// NewFused creates a fused result.
func NewFused(chunkID, documentID, content, source string, score float64, provenance Provenance) FusedResult {
	return FusedResult{
		chunkID: chunkID, documentID: documentID, content: content,
		source: source, score: score, provenance: provenance,
	}
}

// ChunkID returns the chunk identifier.
func (r *FusedResult) ChunkID() string { return r.chunkID }

// DocumentID returns the owning document identifier.
func (r *FusedResult) DocumentID() string { return r.documentID }

// Content returns the chunk content.
func (r *FusedResult) Content() string { return r.content }

// Source returns the source URI of the owning document.
func (r *FusedResult) Source() string { return r.source }

// Score returns the fused (or reranked) relevance score.
func (r *FusedResult) Score() float64 { return r.score }

// Provenance returns which search surfaced the chunk.
func (r *FusedResult) Provenance() Provenance { return r.provenance }

// WithScore returns a copy with the score replaced (reranking).
func (r *FusedResult) WithScore(score float64) FusedResult {
	cp := *r
	cp.score = score
	return cp
}
