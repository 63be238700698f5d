package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
)

type ProcessPolicyUseCase struct {
	repo       ports.PolicyRepository
	extractor  ports.TextExtractor
	structurer ports.StructureExtractor
	metadata   ports.MetadataParser
}

func NewProcessPolicyUseCase(
	repo ports.PolicyRepository,
	extractor ports.TextExtractor,
	structurer ports.StructureExtractor,
	metadata ports.MetadataParser,
) *ProcessPolicyUseCase {
	return &ProcessPolicyUseCase{
		repo:       repo,
		extractor:  extractor,
		structurer: structurer,
		metadata:   metadata,
	}
}

func (uc *ProcessPolicyUseCase) ProcessByID(ctx context.Context, policyID string) error {
	if err := uc.markStatus(ctx, policyID, domain.PolicyStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, policyID); err != nil {
		if failErr := uc.markFailed(ctx, policyID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, policyID, domain.PolicyStatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessPolicyUseCase) processPipeline(ctx context.Context, policyID string) error {
	policy, err := uc.repo.GetByID(ctx, policyID)
	if err != nil {
		return fmt.Errorf("fetch policy by id: %w", err)
	}

	text, err := uc.extractText(ctx, policy)
	if err != nil {
		return err
	}

	meta := uc.metadata.ParseMetadata(text)

	chapters := uc.structurer.Extract(text)
	if len(chapters) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "structure policy", errors.New("no chapters detected"))
	}

	if err := uc.repo.SaveStructure(ctx, policyID, meta, chapters); err != nil {
		return fmt.Errorf("save policy structure: %w", err)
	}
	return nil
}

func (uc *ProcessPolicyUseCase) extractText(ctx context.Context, policy *domain.Policy) (string, error) {
	text, err := uc.extractor.Extract(ctx, policy)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessPolicyUseCase) markStatus(ctx context.Context, policyID string, status domain.PolicyStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, policyID, status, errMessage)
}

func (uc *ProcessPolicyUseCase) markFailed(ctx context.Context, policyID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, policyID, domain.PolicyStatusFailed, processErr.Error())
}
