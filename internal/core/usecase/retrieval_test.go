package usecase

import (
	"testing"
)

func TestRankChaptersOrdersBySimilarity(t *testing.T) {
	query := []float32{1, 0}
	candidates := []ChapterCandidate{
		{PolicyID: "p1", ChapterTitle: "orthogonal", Vector: []float32{0, 1}},
		{PolicyID: "p1", ChapterTitle: "aligned", Vector: []float32{1, 0}},
		{PolicyID: "p2", ChapterTitle: "diagonal", Vector: []float32{1, 1}},
	}

	ranked := RankChapters(query, candidates, 3)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	if ranked[0].Candidate.ChapterTitle != "aligned" {
		t.Fatalf("expected aligned first, got %s", ranked[0].Candidate.ChapterTitle)
	}
	if ranked[2].Candidate.ChapterTitle != "orthogonal" {
		t.Fatalf("expected orthogonal last, got %s", ranked[2].Candidate.ChapterTitle)
	}
}

func TestRankChaptersTopK(t *testing.T) {
	query := []float32{1, 0}
	candidates := []ChapterCandidate{
		{PolicyID: "p1", ChapterTitle: "a", Vector: []float32{1, 0}},
		{PolicyID: "p1", ChapterTitle: "b", Vector: []float32{0.5, 0.5}},
		{PolicyID: "p1", ChapterTitle: "c", Vector: []float32{0, 1}},
	}

	ranked := RankChapters(query, candidates, 2)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
}

func TestRankChaptersDeterministicTies(t *testing.T) {
	query := []float32{1, 0}
	candidates := []ChapterCandidate{
		{PolicyID: "p2", ChapterTitle: "z", Vector: []float32{1, 0}},
		{PolicyID: "p1", ChapterTitle: "a", Vector: []float32{1, 0}},
	}

	ranked := RankChapters(query, candidates, 2)
	if ranked[0].Candidate.PolicyID != "p1" {
		t.Fatalf("expected p1 to win the tie, got %s", ranked[0].Candidate.PolicyID)
	}
}

func TestRankChaptersEmpty(t *testing.T) {
	if got := RankChapters([]float32{1}, nil, 3); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("expected ~1, got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
	if got := cosine(nil, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for empty, got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched dims, got %f", got)
	}
	if got := cosine([]float32{0, 0}, []float32{0, 0}); got != 0 {
		t.Fatalf("expected 0 for zero norm, got %f", got)
	}
}
