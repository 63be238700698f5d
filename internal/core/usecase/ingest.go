package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
)

type IngestPolicyUseCase struct {
	repo    ports.PolicyRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestPolicyUseCase(
	repo ports.PolicyRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestPolicyUseCase {
	return &IngestPolicyUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestPolicyUseCase) Upload(
	ctx context.Context,
	name, filename, mimeType string,
	body io.Reader,
) (*domain.Policy, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload policy", errors.New("empty filename"))
	}
	if strings.TrimSpace(name) == "" {
		name = displayName(filename)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	policy := &domain.Policy{
		ID:          id,
		Name:        name,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.PolicyStatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, policy); err != nil {
		return nil, fmt.Errorf("create policy record: %w", err)
	}

	event := domain.PolicyUploaded{PolicyID: policy.ID, UploadedAt: now}
	if err := uc.queue.PublishPolicyUploaded(ctx, event); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return policy, nil
}

func displayName(filename string) string {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || strings.Trim(base, "._-") == "" {
		return "policy.bin"
	}
	return base
}
