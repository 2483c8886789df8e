package query

import (
	"sort"

	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// Weights are the per-branch multipliers applied to RRF contributions.
type Weights struct {
	Vector  float64
	Lexical float64
}

// DefaultWeights weighs both branches equally.
func DefaultWeights() Weights {
	return Weights{Vector: 1.0, Lexical: 1.0}
}

// fuseRRF merges KNN and BM25 candidates via weighted Reciprocal Rank Fusion.
// score(c) = sum of weight_i/(k + rank_i(c)) for each list where c appears,
// with 1-based ranks. Equal scores order by ascending chunk id, so the same
// inputs always produce the same ranking.
func fuseRRF(knn, lexical []result.Candidate, w Weights) []result.FusedResult {
	type scored struct {
		cand  *result.Candidate
		score float64
		prov  result.Provenance
	}

	merged := make(map[string]*scored, len(knn)+len(lexical))

	for i := range knn {
		c := &knn[i]
		merged[c.ChunkID()] = &scored{
			cand:  c,
			score: w.Vector / float64(rrfK+c.Rank()),
			prov:  result.FromVector,
		}
	}

	for i := range lexical {
		c := &lexical[i]
		s := w.Lexical / float64(rrfK+c.Rank())
		if existing, ok := merged[c.ChunkID()]; ok {
			existing.score += s
			existing.prov = result.FromBoth
		} else {
			merged[c.ChunkID()] = &scored{cand: c, score: s, prov: result.FromLexical}
		}
	}

	fused := make([]result.FusedResult, 0, len(merged))
	for _, s := range merged {
		fused = append(fused, result.NewFused(
			s.cand.ChunkID(), s.cand.DocumentID(), s.cand.Content(),
			s.cand.Source(), s.score, s.prov,
		))
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score() != fused[j].Score() {
			return fused[i].Score() > fused[j].Score()
		}
		return fused[i].ChunkID() < fused[j].ChunkID()
	})

	return fused
}

// applyDiversityCap keeps at most capPerDoc results per document, preserving
// rank order. capPerDoc <= 0 means no cap.
func applyDiversityCap(results []result.FusedResult, capPerDoc int) []result.FusedResult {
	if capPerDoc <= 0 {
		return results
	}

	counts := make(map[string]int, len(results))
	kept := make([]result.FusedResult, 0, len(results))
	for _, r := range results {
		if counts[r.DocumentID()] >= capPerDoc {
			continue
		}
		counts[r.DocumentID()]++
		kept = append(kept, r)
	}
	return kept
}
