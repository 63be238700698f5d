package ports

import (
	"context"
	"io"

	"github.com/policyscope/policyscope/internal/core/domain"
)

// PolicyIngestor is the inbound contract for policy upload orchestration.
type PolicyIngestor interface {
	Upload(ctx context.Context, name, filename, mimeType string, body io.Reader) (*domain.Policy, error)
}

// PolicyReader is the inbound read model for policy metadata/state.
type PolicyReader interface {
	GetByID(ctx context.Context, id string) (*domain.Policy, error)
	List(ctx context.Context) ([]domain.Policy, error)
}

// PolicyProcessor is the inbound contract for asynchronous structuring of
// an uploaded policy.
type PolicyProcessor interface {
	ProcessByID(ctx context.Context, policyID string) error
}

// PolicyComparator runs the full two-policy comparison pipeline.
type PolicyComparator interface {
	Compare(ctx context.Context, policyAID, policyBID string) (*domain.ComparisonResult, error)
}

// QuestionAnswerer answers a free-form question against stored policies.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, policyIDs []string, topK int) (*domain.Answer, error)
}
