package ports

import (
	"context"
	"io"

	"github.com/policyscope/policyscope/internal/core/domain"
)

// PolicyRepository persists and reads policy state.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.Policy) error
	GetByID(ctx context.Context, id string) (*domain.Policy, error)
	List(ctx context.Context) ([]domain.Policy, error)
	UpdateStatus(ctx context.Context, id string, status domain.PolicyStatus, errMessage string) error
	SaveStructure(ctx context.Context, id string, meta domain.PolicyMetadata, chapters []domain.Chapter) error
}

// ComparisonRepository persists finished comparison results.
type ComparisonRepository interface {
	Save(ctx context.Context, result *domain.ComparisonResult) error
	GetByID(ctx context.Context, id string) (*domain.ComparisonResult, error)
}

// ObjectStorage stores raw policy uploads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes policy-processing jobs.
type MessageQueue interface {
	PublishPolicyUploaded(ctx context.Context, event domain.PolicyUploaded) error
	SubscribePolicyUploaded(ctx context.Context, handler func(context.Context, domain.PolicyUploaded) error) error
}

// TextExtractor extracts plain text from a stored policy upload.
type TextExtractor interface {
	Extract(ctx context.Context, policy *domain.Policy) (string, error)
}

// StructureExtractor recovers the chapter tree from extracted text. It
// never fails; a text with no recognizable headers still yields at
// least one chapter.
type StructureExtractor interface {
	Extract(text string) []domain.Chapter
}

// MetadataParser pulls insurer details out of raw policy text.
type MetadataParser interface {
	ParseMetadata(text string) domain.PolicyMetadata
}

// CompletionRequest is a single prompt sent to the completion collaborator.
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionClient talks to the text-generation collaborator.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// EmbeddingClient turns one text into a vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embedder is the cached, budget-aware embedding service consumed by
// use cases. A nil error with an empty vector means the text could not
// be embedded and downstream similarity treats it as zero.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Chunk(text string) []string
}

// CoverageExtractor answers catalog questions against chapter content,
// serialized behind the extraction queue.
type CoverageExtractor interface {
	ExtractAnswer(ctx context.Context, content string, question domain.ChapterQuestion) (string, error)
	ExtractBatch(ctx context.Context, content string, questions []domain.ChapterQuestion) (map[string]string, error)
}

// QuestionCatalog resolves the coverage questions for a chapter title.
type QuestionCatalog interface {
	QuestionsForChapter(title, content string) []domain.ChapterQuestion
}

// CoverageAnalyzer compares two extracted answers to the same question
// and produces a structured verdict. Implementations degrade to a
// numeric heuristic when the model response is unusable.
type CoverageAnalyzer interface {
	CompareAnswers(ctx context.Context, question domain.ChapterQuestion, answerA, answerB string) (domain.CoverageComparison, error)
}
