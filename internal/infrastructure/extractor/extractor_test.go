package extractor

import (
	"context"
	"testing"

	"github.com/policyscope/policyscope/internal/core/domain"
)

type markerExtractor struct {
	name string
}

func (m *markerExtractor) Extract(context.Context, *domain.Policy) (string, error) {
	return m.name, nil
}

func TestDispatchByMimeType(t *testing.T) {
	d := NewDispatcher(&markerExtractor{name: "plain"}, &markerExtractor{name: "pdf"})

	got, err := d.Extract(context.Background(), &domain.Policy{MimeType: "application/pdf", Filename: "policy.bin"})
	if err != nil || got != "pdf" {
		t.Fatalf("expected pdf extractor, got %q err=%v", got, err)
	}
}

func TestDispatchByExtension(t *testing.T) {
	d := NewDispatcher(&markerExtractor{name: "plain"}, &markerExtractor{name: "pdf"})

	got, _ := d.Extract(context.Background(), &domain.Policy{MimeType: "application/octet-stream", Filename: "Policy.PDF"})
	if got != "pdf" {
		t.Fatalf("expected pdf extractor for .pdf suffix, got %q", got)
	}
}

func TestDispatchDefaultsToPlaintext(t *testing.T) {
	d := NewDispatcher(&markerExtractor{name: "plain"}, &markerExtractor{name: "pdf"})

	got, _ := d.Extract(context.Background(), &domain.Policy{MimeType: "text/plain", Filename: "policy.txt"})
	if got != "plain" {
		t.Fatalf("expected plaintext extractor, got %q", got)
	}
}
