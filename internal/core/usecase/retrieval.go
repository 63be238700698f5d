package usecase

import (
	"math"
	"sort"
)

// ChapterCandidate is one embedded chapter considered for retrieval.
type ChapterCandidate struct {
	PolicyID     string
	PolicyName   string
	ChapterTitle string
	Content      string
	Vector       []float32
}

// RankedChapter pairs a candidate with its similarity to the query.
type RankedChapter struct {
	Candidate  ChapterCandidate
	Similarity float64
}

// RankChapters orders candidates by cosine similarity to the query
// vector and keeps the top k. Ties break on policy id then chapter
// title so results stay deterministic across runs.
func RankChapters(query []float32, candidates []ChapterCandidate, k int) []RankedChapter {
	if len(candidates) == 0 {
		return nil
	}
	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}

	ranked := make([]RankedChapter, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, RankedChapter{
			Candidate:  c,
			Similarity: cosine(query, c.Vector),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		if ranked[i].Candidate.PolicyID != ranked[j].Candidate.PolicyID {
			return ranked[i].Candidate.PolicyID < ranked[j].Candidate.PolicyID
		}
		return ranked[i].Candidate.ChapterTitle < ranked[j].Candidate.ChapterTitle
	})

	return ranked[:k]
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
