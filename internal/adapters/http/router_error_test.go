package httpadapter

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/policyscope/policyscope/internal/core/domain"
)

func TestGetPolicyNotFoundMapsTo404(t *testing.T) {
	reader := &readerFake{err: domain.WrapError(domain.ErrPolicyNotFound, "get policy", errors.New("id missing"))}
	handler := newTestHandler(routerFakes{reader: reader})

	req := httptest.NewRequest(http.MethodGet, "/v1/policies/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetComparisonNotFoundMapsTo404(t *testing.T) {
	comparisons := &comparisonRepoStub{err: domain.WrapError(domain.ErrComparisonNotFound, "get comparison", errors.New("id missing"))}
	handler := newTestHandler(routerFakes{comparisons: comparisons})

	req := httptest.NewRequest(http.MethodGet, "/v1/comparisons/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestCompareCollaboratorOutageMapsTo503(t *testing.T) {
	comparator := &comparatorFake{err: domain.WrapError(domain.ErrCollaboratorUnavailable, "complete", errors.New("connection refused"))}
	handler := newTestHandler(routerFakes{comparator: comparator})

	req := httptest.NewRequest(http.MethodPost, "/v1/compare", bytes.NewBufferString(`{"policy_a_id":"a","policy_b_id":"b"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestCompareRateLimitedMapsTo429(t *testing.T) {
	comparator := &comparatorFake{err: domain.WrapError(domain.ErrRateLimited, "complete", errors.New("overloaded"))}
	handler := newTestHandler(routerFakes{comparator: comparator})

	req := httptest.NewRequest(http.MethodPost, "/v1/compare", bytes.NewBufferString(`{"policy_a_id":"a","policy_b_id":"b"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", res.Code)
	}
}

func TestCompareInvalidInputMapsTo400(t *testing.T) {
	comparator := &comparatorFake{err: domain.WrapError(domain.ErrInvalidInput, "compare policies", errors.New("not ready"))}
	handler := newTestHandler(routerFakes{comparator: comparator})

	req := httptest.NewRequest(http.MethodPost, "/v1/compare", bytes.NewBufferString(`{"policy_a_id":"a","policy_b_id":"b"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCompareMissingIDsRejected(t *testing.T) {
	handler := newTestHandler(routerFakes{})

	req := httptest.NewRequest(http.MethodPost, "/v1/compare", bytes.NewBufferString(`{"policy_a_id":"a"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUnknownErrorMapsTo500(t *testing.T) {
	reader := &readerFake{err: errors.New("boom")}
	handler := newTestHandler(routerFakes{reader: reader})

	req := httptest.NewRequest(http.MethodGet, "/v1/policies", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}
