package openai

import (
	"context"
	"errors"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/infrastructure/resilience"
)

// ResilientClient runs embedding calls through the retry and circuit
// breaker executor. Rate limits are not retried here; the embedding
// service has its own size-reduction fallback and the extraction queue
// owns all pacing.
type ResilientClient struct {
	client   *Client
	executor *resilience.Executor
}

func NewResilient(client *Client, executor *resilience.Executor) *ResilientClient {
	return &ResilientClient{client: client, executor: executor}
}

func (r *ResilientClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := r.executor.Execute(ctx, "openai_embed", func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = r.client.Embed(ctx, text)
		return embedErr
	}, classifyEmbedError)
	if err != nil {
		return nil, err
	}
	return vector, nil
}

func classifyEmbedError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	if domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	if domain.IsKind(err, domain.ErrRateLimited) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}
	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}
