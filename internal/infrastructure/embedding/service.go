package embedding

import (
	"context"
	"log/slog"
	"math"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
	"github.com/policyscope/policyscope/internal/observability/metrics"
)

// Budget approximates token limits in characters. The embedding model
// counts tokens, we only see characters, so the ratio stays coarse on
// purpose.
type Budget struct {
	CharsPerToken    int
	TokenBudget      int
	RetryTokenBudget int
}

func DefaultBudget() Budget {
	return Budget{
		CharsPerToken:    3,
		TokenBudget:      2500,
		RetryTokenBudget: 1000,
	}
}

func (b Budget) normalize() Budget {
	out := b
	def := DefaultBudget()
	if out.CharsPerToken <= 0 {
		out.CharsPerToken = def.CharsPerToken
	}
	if out.TokenBudget <= 0 {
		out.TokenBudget = def.TokenBudget
	}
	if out.RetryTokenBudget <= 0 || out.RetryTokenBudget > out.TokenBudget {
		out.RetryTokenBudget = def.RetryTokenBudget
	}
	return out
}

// Service embeds arbitrary-length text by hard-splitting it under the
// model's token budget, embedding each sub-chunk through the cache and
// averaging the results back into a single unit vector.
type Service struct {
	client  ports.EmbeddingClient
	cache   *Cache
	budget  Budget
	metrics *metrics.Pipeline
	log     *slog.Logger
}

func NewService(client ports.EmbeddingClient, cache *Cache, budget Budget, m *metrics.Pipeline, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		client:  client,
		cache:   cache,
		budget:  budget.normalize(),
		metrics: m,
		log:     log,
	}
}

// Embed returns the averaged embedding for text. A nil error with an
// empty vector means nothing could be embedded; only a transport-level
// collaborator failure is surfaced to the caller.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}

	maxChars := s.budget.CharsPerToken * s.budget.TokenBudget
	var vectors [][]float32

	for _, sub := range hardSplit(text, maxChars) {
		vec, err := s.embedSub(ctx, sub)
		if err != nil {
			if domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
				return nil, err
			}
			s.log.Warn("sub_chunk_embed_failed", "chars", len(sub), "error", err)
			continue
		}
		if len(vec) > 0 {
			vectors = append(vectors, vec)
		}
	}
	return averageVectors(vectors), nil
}

// embedSub consults the cache, calls the collaborator and retries once
// with a smaller slice when the full sub-chunk is rejected.
func (s *Service) embedSub(ctx context.Context, sub string) ([]float32, error) {
	key := Key(sub)
	if vec, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit()
		return vec, nil
	}
	s.metrics.CacheMiss()

	vec, err := s.client.Embed(ctx, sub)
	if err != nil {
		if domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
			return nil, err
		}
		retryChars := s.budget.CharsPerToken * s.budget.RetryTokenBudget
		if len(sub) <= retryChars {
			return nil, err
		}
		shorter := hardSplit(sub, retryChars)[0]
		vec, err = s.client.Embed(ctx, shorter)
		if err != nil {
			return nil, err
		}
	}

	s.cache.Set(key, vec)
	return vec, nil
}

// hardSplit cuts text into pieces of at most maxChars bytes, aligned to
// rune boundaries. No semantic awareness; the caller already chunked
// semantically.
func hardSplit(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}
	var parts []string
	for len(text) > maxChars {
		cut := maxChars
		for cut > 0 && text[cut]&0xC0 == 0x80 {
			cut--
		}
		if cut == 0 {
			cut = maxChars
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// averageVectors element-wise averages same-length vectors and
// renormalizes to unit length. Mismatched lengths are skipped.
func averageVectors(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	used := 0
	for _, vec := range vectors {
		if len(vec) != dim {
			continue
		}
		for i, v := range vec {
			sum[i] += float64(v)
		}
		used++
	}
	if used == 0 {
		return nil
	}

	norm := 0.0
	for i := range sum {
		sum[i] /= float64(used)
		norm += sum[i] * sum[i]
	}
	norm = math.Sqrt(norm)

	out := make([]float32, dim)
	for i := range sum {
		if norm > 0 {
			out[i] = float32(sum[i] / norm)
		}
	}
	return out
}

// Cosine is the cosine similarity of two vectors, 0 when either is
// empty, mismatched or zero-magnitude.
func Cosine(a, b []float32) float64 {
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
