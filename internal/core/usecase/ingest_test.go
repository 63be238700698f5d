package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/policyscope/policyscope/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Policy
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, policy *domain.Policy) error {
	if f.err != nil {
		return f.err
	}
	copyPolicy := *policy
	f.created = &copyPolicy
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.Policy, error) {
	return nil, errors.New("not implemented")
}
func (f *ingestRepoFake) List(context.Context) ([]domain.Policy, error) {
	return nil, errors.New("not implemented")
}
func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.PolicyStatus, string) error {
	return errors.New("not implemented")
}
func (f *ingestRepoFake) SaveStructure(context.Context, string, domain.PolicyMetadata, []domain.Chapter) error {
	return errors.New("not implemented")
}

type ingestStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *ingestStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type ingestQueueFake struct {
	event domain.PolicyUploaded
	err   error
}

func (f *ingestQueueFake) PublishPolicyUploaded(_ context.Context, event domain.PolicyUploaded) error {
	if f.err != nil {
		return f.err
	}
	f.event = event
	return nil
}

func (f *ingestQueueFake) SubscribePolicyUploaded(context.Context, func(context.Context, domain.PolicyUploaded) error) error {
	return errors.New("not implemented")
}

func TestIngestUploadSuccess(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestPolicyUseCase(repo, storage, queue)

	policy, err := uc.Upload(context.Background(), "הראל בריאות", "harel 2026.pdf", "application/pdf", bytes.NewBufferString("%PDF"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if policy.ID == "" {
		t.Fatalf("expected policy id")
	}
	if policy.Status != domain.PolicyStatusUploaded {
		t.Fatalf("expected status uploaded, got %s", policy.Status)
	}
	if policy.Name != "הראל בריאות" {
		t.Fatalf("expected given name, got %s", policy.Name)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.event.PolicyID != policy.ID {
		t.Fatalf("expected queued policy id %s, got %s", policy.ID, queue.event.PolicyID)
	}
	if queue.event.UploadedAt.IsZero() {
		t.Fatalf("expected upload timestamp on queued event")
	}
	if !strings.Contains(storage.savedKey, "_harel_2026.pdf") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "%PDF" {
		t.Fatalf("expected saved body, got %s", storage.savedBody)
	}
}

func TestIngestUploadDerivesNameFromFilename(t *testing.T) {
	uc := NewIngestPolicyUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{})

	policy, err := uc.Upload(context.Background(), "  ", "clal_health_2026.pdf", "application/pdf", bytes.NewBufferString("x"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if policy.Name != "clal health 2026" {
		t.Fatalf("expected derived name, got %q", policy.Name)
	}
}

func TestIngestUploadEmptyFilename(t *testing.T) {
	uc := NewIngestPolicyUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{})

	_, err := uc.Upload(context.Background(), "name", "", "text/plain", bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIngestUploadQueueError(t *testing.T) {
	queue := &ingestQueueFake{err: errors.New("queue down")}
	uc := NewIngestPolicyUseCase(&ingestRepoFake{}, &ingestStorageFake{}, queue)

	_, err := uc.Upload(context.Background(), "name", "policy.txt", "text/plain", bytes.NewBufferString("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish upload event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}
