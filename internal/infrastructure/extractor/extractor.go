// Package extractor routes a stored policy to the text extractor that
// understands its format.
package extractor

import (
	"context"
	"strings"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
)

type Dispatcher struct {
	plain ports.TextExtractor
	pdf   ports.TextExtractor
}

func NewDispatcher(plain, pdf ports.TextExtractor) *Dispatcher {
	return &Dispatcher{plain: plain, pdf: pdf}
}

func (d *Dispatcher) Extract(ctx context.Context, policy *domain.Policy) (string, error) {
	if isPDF(policy) {
		return d.pdf.Extract(ctx, policy)
	}
	return d.plain.Extract(ctx, policy)
}

func isPDF(policy *domain.Policy) bool {
	if strings.EqualFold(policy.MimeType, "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(policy.Filename), ".pdf")
}
