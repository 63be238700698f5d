package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
)

type compareRepoFake struct {
	policies map[string]*domain.Policy
}

func (f *compareRepoFake) Create(context.Context, *domain.Policy) error {
	return errors.New("not implemented")
}

func (f *compareRepoFake) GetByID(_ context.Context, id string) (*domain.Policy, error) {
	policy, ok := f.policies[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrPolicyNotFound, "get policy", errors.New(id))
	}
	return policy, nil
}

func (f *compareRepoFake) List(context.Context) ([]domain.Policy, error) {
	return nil, errors.New("not implemented")
}

func (f *compareRepoFake) UpdateStatus(context.Context, string, domain.PolicyStatus, string) error {
	return errors.New("not implemented")
}

func (f *compareRepoFake) SaveStructure(context.Context, string, domain.PolicyMetadata, []domain.Chapter) error {
	return errors.New("not implemented")
}

type comparisonStoreFake struct {
	saved *domain.ComparisonResult
	err   error
}

func (f *comparisonStoreFake) Save(_ context.Context, result *domain.ComparisonResult) error {
	if f.err != nil {
		return f.err
	}
	f.saved = result
	return nil
}

func (f *comparisonStoreFake) GetByID(context.Context, string) (*domain.ComparisonResult, error) {
	return nil, errors.New("not implemented")
}

type catalogFake struct {
	byTitle map[string][]domain.ChapterQuestion
}

func (f *catalogFake) QuestionsForChapter(title, _ string) []domain.ChapterQuestion {
	return f.byTitle[title]
}

type coverageFake struct {
	byContent map[string]map[string]string
	err       error
}

func (f *coverageFake) ExtractAnswer(_ context.Context, content string, question domain.ChapterQuestion) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.byContent[content][question.ID], nil
}

func (f *coverageFake) ExtractBatch(_ context.Context, content string, questions []domain.ChapterQuestion) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(questions))
	for _, q := range questions {
		if answer, ok := f.byContent[content][q.ID]; ok {
			out[q.ID] = answer
		} else {
			out[q.ID] = domain.AnswerNotSpecified
		}
	}
	return out, nil
}

type analyzerFake struct {
	calls int
}

func (f *analyzerFake) CompareAnswers(_ context.Context, _ domain.ChapterQuestion, answerA, answerB string) (domain.CoverageComparison, error) {
	f.calls++
	verdict := domain.VerdictPolicyA
	if answerA == answerB {
		verdict = domain.VerdictEqual
	}
	return domain.CoverageComparison{
		PolicyA:      answerA,
		PolicyB:      answerB,
		BetterPolicy: verdict,
	}, nil
}

func transplantQuestions() []domain.ChapterQuestion {
	return []domain.ChapterQuestion{
		{ID: "transplant_coverage", Question: "מהי תקרת הכיסוי להשתלות?", ChapterType: "transplants"},
		{ID: "transplant_abroad", Question: "האם יש כיסוי להשתלה בחו\"ל?", ChapterType: "transplants"},
	}
}

func readyPolicy(id, name, content string) *domain.Policy {
	return &domain.Policy{
		ID:     id,
		Name:   name,
		Status: domain.PolicyStatusReady,
		Chapters: []domain.Chapter{
			{Title: "פרק א: השתלות", Content: content},
		},
	}
}

func newCompareFixture(coverage *coverageFake, completion *completionFake) (*CompareUseCase, *comparisonStoreFake, *analyzerFake) {
	repo := &compareRepoFake{policies: map[string]*domain.Policy{
		"pol-a": readyPolicy("pol-a", "הראל", "תוכן א"),
		"pol-b": readyPolicy("pol-b", "כלל", "תוכן ב"),
	}}
	store := &comparisonStoreFake{}
	analyzer := &analyzerFake{}
	catalog := &catalogFake{byTitle: map[string][]domain.ChapterQuestion{
		"פרק א: השתלות": transplantQuestions(),
	}}
	uc := NewCompareUseCase(repo, store, catalog, coverage, analyzer, completion, nil, nil, CompareConfig{})
	return uc, store, analyzer
}

func TestCompareIdenticalCoverageYieldsNoWinner(t *testing.T) {
	coverage := &coverageFake{byContent: map[string]map[string]string{
		"תוכן א": {"transplant_coverage": "עד 1,000,000 ₪", "transplant_abroad": "כן"},
		"תוכן ב": {"transplant_coverage": "עד 1,000,000 ₪", "transplant_abroad": "כן"},
	}}
	completion := &completionFake{err: errors.New("no model in test")}
	uc, store, _ := newCompareFixture(coverage, completion)

	result, err := uc.Compare(context.Background(), "pol-a", "pol-b")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	chapter, ok := result.Chapters["פרק א: השתלות"]
	if !ok {
		t.Fatalf("expected chapter keyed by title, got %v", result.Chapters)
	}
	for id, entry := range chapter.Coverage {
		if entry.BetterPolicy == domain.VerdictPolicyA || entry.BetterPolicy == domain.VerdictPolicyB {
			t.Fatalf("identical coverage must not pick a winner, %s got %s", id, entry.BetterPolicy)
		}
	}
	if len(chapter.MissingInA) != 0 || len(chapter.MissingInB) != 0 {
		t.Fatalf("expected no missing questions, got %v / %v", chapter.MissingInA, chapter.MissingInB)
	}
	if len(result.SignificantDifferences) != 0 {
		t.Fatalf("expected no significant differences, got %v", result.SignificantDifferences)
	}
	if store.saved == nil || store.saved.ID != result.ID {
		t.Fatalf("expected result persisted")
	}
}

func TestCompareMissingAnswerNamesLackingPolicy(t *testing.T) {
	coverage := &coverageFake{byContent: map[string]map[string]string{
		"תוכן א": {"transplant_coverage": "עד 1,000,000 ₪"},
		"תוכן ב": {"transplant_coverage": "עד 1,000,000 ₪", "transplant_abroad": "כן, בכל העולם"},
	}}
	completion := &completionFake{err: errors.New("no model in test")}
	uc, _, _ := newCompareFixture(coverage, completion)

	result, err := uc.Compare(context.Background(), "pol-a", "pol-b")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	chapter := result.Chapters["פרק א: השתלות"]
	if len(chapter.MissingInA) != 1 || chapter.MissingInA[0] != "transplant_abroad" {
		t.Fatalf("expected transplant_abroad missing in A, got %v", chapter.MissingInA)
	}
	if len(chapter.MissingInB) != 0 {
		t.Fatalf("expected nothing missing in B, got %v", chapter.MissingInB)
	}
	if _, ok := chapter.Coverage["transplant_abroad"]; ok {
		t.Fatalf("one-sided question must stay out of the coverage map")
	}
	if _, ok := chapter.Coverage["transplant_coverage"]; !ok {
		t.Fatalf("two-sided question must get a coverage entry")
	}
}

func TestCompareKeepsSameTypeChaptersDistinct(t *testing.T) {
	chapters := []domain.Chapter{
		{Title: "פרק א: השתלות", Content: "תוכן השתלות"},
		{Title: "פרק ה: השתלות בחו\"ל", Content: "תוכן השתלות בחו\"ל"},
	}
	repo := &compareRepoFake{policies: map[string]*domain.Policy{
		"pol-a": {ID: "pol-a", Name: "הראל", Status: domain.PolicyStatusReady, Chapters: chapters},
		"pol-b": {ID: "pol-b", Name: "כלל", Status: domain.PolicyStatusReady, Chapters: chapters},
	}}
	catalog := &catalogFake{byTitle: map[string][]domain.ChapterQuestion{
		"פרק א: השתלות":        {{ID: "transplant_coverage", Question: "מהי תקרת הכיסוי להשתלות?", ChapterType: "transplants"}},
		"פרק ה: השתלות בחו\"ל": {{ID: "transplant_abroad", Question: "האם יש כיסוי להשתלה בחו\"ל?", ChapterType: "transplants"}},
	}}
	coverage := &coverageFake{byContent: map[string]map[string]string{
		"תוכן השתלות":        {"transplant_coverage": "עד 1,000,000 ₪"},
		"תוכן השתלות בחו\"ל": {"transplant_abroad": "כן"},
	}}
	completion := &completionFake{err: errors.New("no model in test")}
	uc := NewCompareUseCase(repo, &comparisonStoreFake{}, catalog, coverage, &analyzerFake{}, completion, nil, nil, CompareConfig{})

	result, err := uc.Compare(context.Background(), "pol-a", "pol-b")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(result.Chapters) != 2 {
		t.Fatalf("expected two chapters of the same type to stay distinct, got %v", result.Chapters)
	}
	if _, ok := result.Chapters["פרק א: השתלות"]; !ok {
		t.Fatalf("missing first chapter, got %v", result.Chapters)
	}
	if _, ok := result.Chapters["פרק ה: השתלות בחו\"ל"]; !ok {
		t.Fatalf("missing second chapter, got %v", result.Chapters)
	}
}

func TestCompareSummariesUseModelWhenAvailable(t *testing.T) {
	coverage := &coverageFake{byContent: map[string]map[string]string{
		"תוכן א": {"transplant_coverage": "עד 1,000,000 ₪", "transplant_abroad": "כן"},
		"תוכן ב": {"transplant_coverage": "עד 1,000,000 ₪", "transplant_abroad": "כן"},
	}}
	completion := &completionFake{
		answerFor: map[string]string{
			"סכם בעברית את השוואת הפרק":      "סיכום פרק מהמודל",
			"סכם בעברית את ההשוואה הכוללת": "סיכום כולל מהמודל",
		},
		err: errors.New("no model for other prompts"),
	}
	uc, _, _ := newCompareFixture(coverage, completion)

	result, err := uc.Compare(context.Background(), "pol-a", "pol-b")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if got := result.Chapters["פרק א: השתלות"].Summary; got != "סיכום פרק מהמודל" {
		t.Fatalf("expected model chapter summary, got %q", got)
	}
	if result.Summary != "סיכום כולל מהמודל" {
		t.Fatalf("expected model overall summary, got %q", result.Summary)
	}
}

func TestCompareSummariesFallBackWhenModelFails(t *testing.T) {
	coverage := &coverageFake{byContent: map[string]map[string]string{
		"תוכן א": {"transplant_coverage": "עד 5,000,000 ₪", "transplant_abroad": "כן"},
		"תוכן ב": {"transplant_coverage": "עד 1,000,000 ₪", "transplant_abroad": "כן"},
	}}
	completion := &completionFake{err: errors.New("no model in test")}
	uc, _, _ := newCompareFixture(coverage, completion)

	result, err := uc.Compare(context.Background(), "pol-a", "pol-b")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if result.Chapters["פרק א: השתלות"].Summary == "" {
		t.Fatalf("expected deterministic chapter summary when the model fails")
	}
	if !strings.Contains(result.Summary, "הראל") {
		t.Fatalf("expected fallback summary to name the leading policy, got %q", result.Summary)
	}
}

func TestCompareSignificantDifferencesFromModel(t *testing.T) {
	coverage := &coverageFake{byContent: map[string]map[string]string{
		"תוכן א": {"transplant_coverage": "עד 5,000,000 ₪"},
		"תוכן ב": {"transplant_coverage": "עד 1,000,000 ₪"},
	}}
	completion := &completionFake{
		answerFor: map[string]string{
			"מערך JSON": `[{"aspect": "תקרת השתלות", "chapter": "פרק א: השתלות", "financial_impact": "4,000,000 ₪", "practical_implication": "הפרש ניכר", "better_policy": "A"}]`,
		},
		err: errors.New("no model for summaries"),
	}
	uc, _, _ := newCompareFixture(coverage, completion)

	result, err := uc.Compare(context.Background(), "pol-a", "pol-b")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(result.SignificantDifferences) != 1 {
		t.Fatalf("expected one significant difference, got %d", len(result.SignificantDifferences))
	}
	diff := result.SignificantDifferences[0]
	if diff.Aspect != "תקרת השתלות" || diff.BetterPolicy != domain.VerdictPolicyA {
		t.Fatalf("unexpected difference %+v", diff)
	}
	if !strings.Contains(result.Summary, "הראל") {
		t.Fatalf("expected summary to name the leading policy, got %q", result.Summary)
	}
}

func TestCompareSelfComparisonRejected(t *testing.T) {
	uc, _, _ := newCompareFixture(&coverageFake{}, &completionFake{})

	_, err := uc.Compare(context.Background(), "pol-a", "pol-a")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCompareNotReadyPolicyRejected(t *testing.T) {
	repo := &compareRepoFake{policies: map[string]*domain.Policy{
		"pol-a": readyPolicy("pol-a", "הראל", "תוכן א"),
		"pol-b": {ID: "pol-b", Name: "כלל", Status: domain.PolicyStatusProcessing},
	}}
	uc := NewCompareUseCase(repo, &comparisonStoreFake{}, &catalogFake{}, &coverageFake{}, &analyzerFake{}, &completionFake{}, nil, nil, CompareConfig{})

	_, err := uc.Compare(context.Background(), "pol-a", "pol-b")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCompareCollaboratorOutagePropagates(t *testing.T) {
	coverage := &coverageFake{err: domain.WrapError(domain.ErrCollaboratorUnavailable, "complete", errors.New("connection refused"))}
	uc, store, _ := newCompareFixture(coverage, &completionFake{})

	_, err := uc.Compare(context.Background(), "pol-a", "pol-b")
	if !domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("expected collaborator unavailable, got %v", err)
	}
	if store.saved != nil {
		t.Fatalf("failed comparison must not be persisted")
	}
}

var _ ports.PolicyComparator = (*CompareUseCase)(nil)
