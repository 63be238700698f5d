package usecase

import (
	"context"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
)

// ReadPolicyUseCase is the thin read model behind the policy endpoints.
type ReadPolicyUseCase struct {
	repo ports.PolicyRepository
}

func NewReadPolicyUseCase(repo ports.PolicyRepository) *ReadPolicyUseCase {
	return &ReadPolicyUseCase{repo: repo}
}

func (uc *ReadPolicyUseCase) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *ReadPolicyUseCase) List(ctx context.Context) ([]domain.Policy, error) {
	return uc.repo.List(ctx)
}
