package retrieve

import (
	"math"
	"sort"

	"hilicita-backend/internal/chunk"
)

// sectionHintBoost multiplies the query score of chunks whose heading tag
// matches one of the block's hints.
const sectionHintBoost = 1.15

// Options controls retrieval sizing.
type Options struct {
	TopK       int
	TopNForMMR int
	Lambda     float64
}

// DefaultOptions matches the TOP_K_RETRIEVAL / TOP_N_FOR_MMR / MMR_LAMBDA defaults.
func DefaultOptions() Options {
	return Options{TopK: 12, TopNForMMR: 40, Lambda: 0.7}
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type scoredChunk struct {
	chunk chunk.Chunk
	score float64
}

// RetrieveForBlock scores chunks against the embedded block query, boosts
// section-hint matches, and returns a diversified top-K via MMR, in selection
// order. With zero vectors everywhere the input order is preserved.
func RetrieveForBlock(chunks []chunk.Chunk, queryVec []float32, hints []string, opts Options) []chunk.Chunk {
	if opts.TopK <= 0 || opts.TopNForMMR <= 0 {
		opts = DefaultOptions()
	}
	if len(chunks) == 0 {
		return nil
	}

	if isZero(queryVec) || allVectorsZero(chunks) {
		k := opts.TopK
		if k > len(chunks) {
			k = len(chunks)
		}
		return append([]chunk.Chunk(nil), chunks[:k]...)
	}

	hintSet := make(map[string]struct{}, len(hints))
	for _, h := range hints {
		hintSet[h] = struct{}{}
	}

	scored := make([]scoredChunk, 0, len(chunks))
	for _, c := range chunks {
		s := CosineSimilarity(queryVec, c.Vector)
		if _, ok := hintSet[c.SectionHint]; ok && c.SectionHint != "" {
			s *= sectionHintBoost
		}
		scored = append(scored, scoredChunk{chunk: c, score: s})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chunk.ID < scored[j].chunk.ID
	})

	if len(scored) > opts.TopNForMMR {
		scored = scored[:opts.TopNForMMR]
	}

	selected := mmr(scored, opts.Lambda, opts.TopK)
	out := make([]chunk.Chunk, 0, len(selected))
	for _, sc := range selected {
		out = append(out, sc.chunk)
	}
	return out
}

// mmr greedily selects up to k candidates maximising
// lambda*score - (1-lambda)*maxSim(candidate, selected). Candidates arrive
// sorted by score descending; ties break by score, then by chunk id.
func mmr(candidates []scoredChunk, lambda float64, k int) []scoredChunk {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	selected := []scoredChunk{candidates[0]}
	pool := append([]scoredChunk(nil), candidates[1:]...)

	for len(selected) < k && len(pool) > 0 {
		bestIdx := -1
		bestMMR := math.Inf(-1)
		for i, cand := range pool {
			maxSim := math.Inf(-1)
			for _, sel := range selected {
				sim := CosineSimilarity(cand.chunk.Vector, sel.chunk.Vector)
				if sim > maxSim {
					maxSim = sim
				}
			}
			value := lambda*cand.score - (1-lambda)*maxSim
			if better(value, cand, bestMMR, bestIdx, pool) {
				bestMMR = value
				bestIdx = i
			}
		}
		selected = append(selected, pool[bestIdx])
		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
	}
	return selected
}

func better(value float64, cand scoredChunk, bestMMR float64, bestIdx int, pool []scoredChunk) bool {
	if bestIdx == -1 || value > bestMMR {
		return true
	}
	if value < bestMMR {
		return false
	}
	best := pool[bestIdx]
	if cand.score != best.score {
		return cand.score > best.score
	}
	return cand.chunk.ID < best.chunk.ID
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func allVectorsZero(chunks []chunk.Chunk) bool {
	for _, c := range chunks {
		if !isZero(c.Vector) {
			return false
		}
	}
	return true
}
