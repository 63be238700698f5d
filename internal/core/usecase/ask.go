package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
)

const (
	defaultAskTopK     = 3
	minAskSimilarity   = 0.1
	askExcerptRuneCap  = 1500
	askAnswerMaxTokens = 400
)

type AskUseCase struct {
	repo       ports.PolicyRepository
	embedder   ports.Embedder
	chunker    ports.Chunker
	completion ports.CompletionClient
}

func NewAskUseCase(
	repo ports.PolicyRepository,
	embedder ports.Embedder,
	chunker ports.Chunker,
	completion ports.CompletionClient,
) *AskUseCase {
	return &AskUseCase{
		repo:       repo,
		embedder:   embedder,
		chunker:    chunker,
		completion: completion,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, question string, policyIDs []string, topK int) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer question", errors.New("empty question"))
	}
	if topK <= 0 {
		topK = defaultAskTopK
	}

	policies, err := uc.resolvePolicies(ctx, policyIDs)
	if err != nil {
		return nil, err
	}

	queryVector, err := uc.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	candidates, err := uc.collectCandidates(ctx, policies)
	if err != nil {
		return nil, err
	}

	ranked := RankChapters(queryVector, candidates, topK)
	ranked = dropWeakMatches(ranked)
	if len(ranked) == 0 {
		return &domain.Answer{Text: domain.AnswerNotSpecified}, nil
	}

	answerText, err := uc.completion.Complete(ctx, ports.CompletionRequest{
		Prompt:      buildAskPrompt(question, ranked),
		MaxTokens:   askAnswerMaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]domain.ChapterMatch, 0, len(ranked))
	for _, r := range ranked {
		sources = append(sources, domain.ChapterMatch{
			PolicyID:     r.Candidate.PolicyID,
			PolicyName:   r.Candidate.PolicyName,
			ChapterTitle: r.Candidate.ChapterTitle,
			Similarity:   r.Similarity,
		})
	}

	return &domain.Answer{
		Text:       strings.TrimSpace(answerText),
		Sources:    sources,
		Confidence: ranked[0].Similarity,
	}, nil
}

func (uc *AskUseCase) resolvePolicies(ctx context.Context, policyIDs []string) ([]domain.Policy, error) {
	if len(policyIDs) == 0 {
		all, err := uc.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list policies: %w", err)
		}
		var ready []domain.Policy
		for _, p := range all {
			if p.Status == domain.PolicyStatusReady {
				ready = append(ready, p)
			}
		}
		return ready, nil
	}

	policies := make([]domain.Policy, 0, len(policyIDs))
	for _, id := range policyIDs {
		policy, err := uc.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if policy.Status != domain.PolicyStatusReady {
			return nil, domain.WrapError(domain.ErrInvalidInput, "answer question",
				fmt.Errorf("policy %s is not ready (status %s)", id, policy.Status))
		}
		policies = append(policies, *policy)
	}
	return policies, nil
}

// collectCandidates embeds each ready chapter at chunk granularity so a
// long chapter can still surface its one relevant passage.
func (uc *AskUseCase) collectCandidates(ctx context.Context, policies []domain.Policy) ([]ChapterCandidate, error) {
	var candidates []ChapterCandidate
	for _, policy := range policies {
		for _, chapter := range policy.Chapters {
			content := chapter.FlattenContent()
			if strings.TrimSpace(content) == "" {
				continue
			}
			for _, chunk := range uc.chunker.Chunk(content) {
				vector, err := uc.embedder.Embed(ctx, chunk)
				if err != nil {
					return nil, fmt.Errorf("embed chapter %q of %s: %w", chapter.Title, policy.ID, err)
				}
				candidates = append(candidates, ChapterCandidate{
					PolicyID:     policy.ID,
					PolicyName:   policy.Name,
					ChapterTitle: chapter.Title,
					Content:      chunk,
					Vector:       vector,
				})
			}
		}
	}
	return candidates, nil
}

func dropWeakMatches(ranked []RankedChapter) []RankedChapter {
	out := ranked[:0]
	for _, r := range ranked {
		if r.Similarity >= minAskSimilarity {
			out = append(out, r)
		}
	}
	return out
}

func buildAskPrompt(question string, ranked []RankedChapter) string {
	var b strings.Builder
	b.WriteString("להלן קטעים מתוך פוליסות ביטוח בריאות:\n\n")
	for i, r := range ranked {
		fmt.Fprintf(&b, "קטע %d (פוליסה: %s, פרק: %s):\n%s\n\n",
			i+1, r.Candidate.PolicyName, r.Candidate.ChapterTitle,
			truncateText(r.Candidate.Content, askExcerptRuneCap))
	}
	b.WriteString("שאלה: ")
	b.WriteString(question)
	b.WriteString("\n\nענה בעברית על סמך הקטעים בלבד. אם המידע אינו מופיע בקטעים, השב \"לא מפורט\".")
	return b.String()
}

func truncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
