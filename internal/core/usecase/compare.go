package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
	"github.com/policyscope/policyscope/internal/infrastructure/llmjson"
	"github.com/policyscope/policyscope/internal/observability/metrics"
)

const maxSignificantDifferences = 3

// CompareConfig carries the tunables of the comparison pipeline.
type CompareConfig struct {
	// Service labels metrics emitted by the pipeline.
	Service string
	// ChapterConcurrency caps how many chapters are extracted at once.
	// The extraction queue stays the global completion gate, so values
	// above 1 only overlap the waiting.
	ChapterConcurrency int
}

func (c *CompareConfig) normalize() {
	if c.Service == "" {
		c.Service = "anthropic"
	}
	if c.ChapterConcurrency <= 0 {
		c.ChapterConcurrency = 1
	}
}

type CompareUseCase struct {
	policies    ports.PolicyRepository
	comparisons ports.ComparisonRepository
	catalog     ports.QuestionCatalog
	coverage    ports.CoverageExtractor
	analyzer    ports.CoverageAnalyzer
	completion  ports.CompletionClient
	metrics     *metrics.Pipeline
	log         *slog.Logger
	cfg         CompareConfig
}

func NewCompareUseCase(
	policies ports.PolicyRepository,
	comparisons ports.ComparisonRepository,
	catalog ports.QuestionCatalog,
	coverage ports.CoverageExtractor,
	analyzer ports.CoverageAnalyzer,
	completion ports.CompletionClient,
	m *metrics.Pipeline,
	log *slog.Logger,
	cfg CompareConfig,
) *CompareUseCase {
	cfg.normalize()
	if log == nil {
		log = slog.Default()
	}
	return &CompareUseCase{
		policies:    policies,
		comparisons: comparisons,
		catalog:     catalog,
		coverage:    coverage,
		analyzer:    analyzer,
		completion:  completion,
		metrics:     m,
		log:         log,
		cfg:         cfg,
	}
}

func (uc *CompareUseCase) Compare(ctx context.Context, policyAID, policyBID string) (result *domain.ComparisonResult, err error) {
	started := time.Now()
	defer func() {
		uc.metrics.Comparison(uc.cfg.Service, time.Since(started), err)
	}()

	if policyAID == policyBID {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare policies",
			errors.New("cannot compare a policy with itself"))
	}

	policyA, err := uc.loadReadyPolicy(ctx, policyAID)
	if err != nil {
		return nil, err
	}
	policyB, err := uc.loadReadyPolicy(ctx, policyBID)
	if err != nil {
		return nil, err
	}

	covA, err := uc.extractPolicyCoverage(ctx, policyA)
	if err != nil {
		return nil, err
	}
	covB, err := uc.extractPolicyCoverage(ctx, policyB)
	if err != nil {
		return nil, err
	}

	chapters, err := uc.compareChapters(ctx, covA, covB)
	if err != nil {
		return nil, err
	}

	significant, err := uc.significantDifferences(ctx, chapters, mergedQuestions(covA, covB))
	if err != nil {
		return nil, err
	}

	result = &domain.ComparisonResult{
		ID:                     uuid.NewString(),
		PolicyAID:              policyA.ID,
		PolicyBID:              policyB.ID,
		PolicyAName:            policyA.Name,
		PolicyBName:            policyB.Name,
		Chapters:               chapters,
		SignificantDifferences: significant,
		Summary:                uc.overallSummary(ctx, policyA.Name, policyB.Name, chapters),
		ComparedAt:             time.Now().UTC(),
	}

	if err := uc.comparisons.Save(ctx, result); err != nil {
		return nil, fmt.Errorf("save comparison: %w", err)
	}

	uc.log.Info("comparison_completed",
		"comparison_id", result.ID,
		"policy_a", policyA.ID,
		"policy_b", policyB.ID,
		"chapters", len(chapters),
		"duration", time.Since(started).String(),
	)
	return result, nil
}

func (uc *CompareUseCase) loadReadyPolicy(ctx context.Context, id string) (*domain.Policy, error) {
	policy, err := uc.policies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.Status != domain.PolicyStatusReady {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare policies",
			fmt.Errorf("policy %s is not ready (status %s)", id, policy.Status))
	}
	return policy, nil
}

// chapterCoverage is the extraction output for one chapter of one
// policy, keyed by question id.
type chapterCoverage struct {
	answers   map[string]string
	questions map[string]domain.ChapterQuestion
}

func newChapterCoverage() *chapterCoverage {
	return &chapterCoverage{
		answers:   make(map[string]string),
		questions: make(map[string]domain.ChapterQuestion),
	}
}

// policyCoverage keys chapter coverage by chapter title, so two
// chapters of the same classified type stay distinct.
type policyCoverage struct {
	chapters map[string]*chapterCoverage
}

func (uc *CompareUseCase) extractPolicyCoverage(ctx context.Context, policy *domain.Policy) (*policyCoverage, error) {
	cov := &policyCoverage{chapters: make(map[string]*chapterCoverage)}

	type chapterJob struct {
		title     string
		content   string
		questions []domain.ChapterQuestion
	}

	// Coverage layers nest the real chapters one level down; questions
	// attach to the leaves, not to the layer header.
	var jobs []chapterJob
	var collect func([]domain.Chapter)
	collect = func(chapters []domain.Chapter) {
		for _, chapter := range chapters {
			if len(chapter.SubChapters) > 0 {
				collect(chapter.SubChapters)
				continue
			}
			content := chapter.FlattenContent()
			questions := uc.catalog.QuestionsForChapter(chapter.Title, content)
			if len(questions) == 0 {
				continue
			}
			jobs = append(jobs, chapterJob{title: chapter.Title, content: content, questions: questions})
		}
	}
	collect(policy.Chapters)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	sem := make(chan struct{}, uc.cfg.ChapterConcurrency)

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job chapterJob) {
			defer wg.Done()
			defer func() { <-sem }()

			answers, err := uc.coverage.ExtractBatch(ctx, job.content, job.questions)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("extract coverage for %q: %w", job.title, err)
				}
				return
			}
			chapter, ok := cov.chapters[job.title]
			if !ok {
				chapter = newChapterCoverage()
				cov.chapters[job.title] = chapter
			}
			for _, q := range job.questions {
				chapter.questions[q.ID] = q
				if answer, ok := answers[q.ID]; ok {
					chapter.answers[q.ID] = answer
				}
			}
		}(job)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	uc.log.Info("coverage_extracted",
		"policy_id", policy.ID,
		"chapters", len(cov.chapters),
	)
	return cov, nil
}

func (uc *CompareUseCase) compareChapters(ctx context.Context, covA, covB *policyCoverage) (map[string]domain.ChapterComparison, error) {
	chapters := make(map[string]domain.ChapterComparison)

	for _, title := range unionChapterTitles(covA, covB) {
		comparison, err := uc.compareChapter(ctx, title, covA.chapters[title], covB.chapters[title])
		if err != nil {
			return nil, err
		}
		chapters[title] = comparison
	}
	return chapters, nil
}

// compareChapter walks the union of the chapter's questions. A question
// answered on one side only goes to the missing list of the other side
// and gets no coverage entry; the two are mutually exclusive per
// question.
func (uc *CompareUseCase) compareChapter(ctx context.Context, title string, chA, chB *chapterCoverage) (domain.ChapterComparison, error) {
	comparison := domain.ChapterComparison{
		Title:    title,
		Coverage: make(map[string]domain.CoverageComparison),
	}

	for _, id := range unionQuestionIDs(chA, chB) {
		answerA, hasA := presentAnswer(chA, id)
		answerB, hasB := presentAnswer(chB, id)

		if !hasA {
			comparison.MissingInA = append(comparison.MissingInA, id)
			continue
		}
		if !hasB {
			comparison.MissingInB = append(comparison.MissingInB, id)
			continue
		}

		entry, err := uc.analyzer.CompareAnswers(ctx, questionByID(id, chA, chB), answerA, answerB)
		if err != nil {
			return domain.ChapterComparison{}, fmt.Errorf("compare answers for %s: %w", id, err)
		}
		comparison.Coverage[id] = entry
	}

	comparison.Summary = uc.chapterSummary(ctx, comparison)
	return comparison, nil
}

// significantDifferences asks the model to rank the headline differences
// and falls back to the largest financial gaps when the response is
// unusable.
func (uc *CompareUseCase) significantDifferences(ctx context.Context, chapters map[string]domain.ChapterComparison, questions map[string]domain.ChapterQuestion) ([]domain.SignificantDifference, error) {
	candidates := collectDifferenceCandidates(chapters, questions)
	if len(candidates) == 0 {
		return nil, nil
	}

	refined, err := uc.refineDifferences(ctx, candidates)
	if err != nil {
		if domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
			return nil, err
		}
		uc.log.Warn("significant_differences_degraded", "error", err)
	}
	if len(refined) > 0 {
		return refined, nil
	}
	return heuristicDifferences(candidates), nil
}

type differenceCandidate struct {
	chapter    string
	question   domain.ChapterQuestion
	comparison domain.CoverageComparison
}

func collectDifferenceCandidates(chapters map[string]domain.ChapterComparison, questions map[string]domain.ChapterQuestion) []differenceCandidate {
	var out []differenceCandidate
	for _, title := range sortedKeys(chapters) {
		chapter := chapters[title]
		for _, id := range sortedKeys(chapter.Coverage) {
			entry := chapter.Coverage[id]
			if entry.BetterPolicy != domain.VerdictPolicyA && entry.BetterPolicy != domain.VerdictPolicyB {
				continue
			}
			question, ok := questions[id]
			if !ok {
				question = domain.ChapterQuestion{ID: id, Question: id}
			}
			out = append(out, differenceCandidate{
				chapter:    chapter.Title,
				question:   question,
				comparison: entry,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].comparison.FinancialImpact != out[j].comparison.FinancialImpact {
			return out[i].comparison.FinancialImpact > out[j].comparison.FinancialImpact
		}
		return out[i].question.ID < out[j].question.ID
	})
	return out
}

type significantPayload struct {
	Aspect               string `json:"aspect"`
	Chapter              string `json:"chapter"`
	FinancialImpact      string `json:"financial_impact"`
	PracticalImplication string `json:"practical_implication"`
	BetterPolicy         string `json:"better_policy"`
}

func (uc *CompareUseCase) refineDifferences(ctx context.Context, candidates []differenceCandidate) ([]domain.SignificantDifference, error) {
	raw, err := uc.completion.Complete(ctx, ports.CompletionRequest{
		Prompt:    buildDifferencesPrompt(candidates),
		MaxTokens: 600,
	})
	if err != nil {
		return nil, err
	}

	result := llmjson.Parse[[]significantPayload](raw)
	if !result.Parsed || len(result.Value) == 0 {
		return nil, nil
	}
	parsed := result.Value

	out := make([]domain.SignificantDifference, 0, maxSignificantDifferences)
	for _, p := range parsed {
		if strings.TrimSpace(p.Aspect) == "" {
			continue
		}
		out = append(out, domain.SignificantDifference{
			Aspect:               strings.TrimSpace(p.Aspect),
			Chapter:              strings.TrimSpace(p.Chapter),
			FinancialImpact:      strings.TrimSpace(p.FinancialImpact),
			PracticalImplication: strings.TrimSpace(p.PracticalImplication),
			BetterPolicy:         domain.NormalizeVerdict(p.BetterPolicy),
		})
		if len(out) == maxSignificantDifferences {
			break
		}
	}
	return out, nil
}

func heuristicDifferences(candidates []differenceCandidate) []domain.SignificantDifference {
	out := make([]domain.SignificantDifference, 0, maxSignificantDifferences)
	for _, c := range candidates {
		impact := ""
		if c.comparison.FinancialImpact > 0 {
			impact = fmt.Sprintf("כ-%.0f ₪", c.comparison.FinancialImpact)
		}
		implication := c.comparison.Analysis
		if implication == "" {
			implication = c.comparison.Difference
		}
		out = append(out, domain.SignificantDifference{
			Aspect:               c.question.Question,
			Chapter:              c.chapter,
			FinancialImpact:      impact,
			PracticalImplication: implication,
			BetterPolicy:         c.comparison.BetterPolicy,
		})
		if len(out) == maxSignificantDifferences {
			break
		}
	}
	return out
}

func unionChapterTitles(covA, covB *policyCoverage) []string {
	seen := make(map[string]struct{})
	for title := range covA.chapters {
		seen[title] = struct{}{}
	}
	for title := range covB.chapters {
		seen[title] = struct{}{}
	}
	return sortedKeys(seen)
}

func unionQuestionIDs(chA, chB *chapterCoverage) []string {
	seen := make(map[string]struct{})
	if chA != nil {
		for id := range chA.questions {
			seen[id] = struct{}{}
		}
	}
	if chB != nil {
		for id := range chB.questions {
			seen[id] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func questionByID(id string, chA, chB *chapterCoverage) domain.ChapterQuestion {
	if chA != nil {
		if q, ok := chA.questions[id]; ok {
			return q
		}
	}
	if chB != nil {
		return chB.questions[id]
	}
	return domain.ChapterQuestion{ID: id, Question: id}
}

func mergedQuestions(covA, covB *policyCoverage) map[string]domain.ChapterQuestion {
	out := make(map[string]domain.ChapterQuestion)
	for _, cov := range []*policyCoverage{covB, covA} {
		for _, chapter := range cov.chapters {
			for id, q := range chapter.questions {
				out[id] = q
			}
		}
	}
	return out
}

func presentAnswer(ch *chapterCoverage, id string) (string, bool) {
	if ch == nil {
		return "", false
	}
	answer, ok := ch.answers[id]
	if !ok || domain.IsNoInformation(answer) {
		return answer, false
	}
	return answer, true
}

// chapterSummary asks the model for a short chapter summary and falls
// back to a deterministic win-count line when the call fails or comes
// back empty.
func (uc *CompareUseCase) chapterSummary(ctx context.Context, comparison domain.ChapterComparison) string {
	raw, err := uc.completion.Complete(ctx, ports.CompletionRequest{
		Prompt:    buildChapterSummaryPrompt(comparison),
		MaxTokens: 200,
	})
	if err != nil {
		uc.log.Warn("chapter_summary_degraded", "chapter", comparison.Title, "error", err)
	}
	if summary := strings.TrimSpace(raw); err == nil && summary != "" {
		return summary
	}
	return fallbackChapterSummary(comparison)
}

func fallbackChapterSummary(comparison domain.ChapterComparison) string {
	winsA, winsB, decided := verdictCounts(comparison.Coverage)
	switch {
	case winsA > winsB:
		return fmt.Sprintf("בפרק %q פוליסה א מציעה כיסוי טוב יותר ב-%d מתוך %d סעיפים שנבדקו", comparison.Title, winsA, decided)
	case winsB > winsA:
		return fmt.Sprintf("בפרק %q פוליסה ב מציעה כיסוי טוב יותר ב-%d מתוך %d סעיפים שנבדקו", comparison.Title, winsB, decided)
	default:
		return fmt.Sprintf("בפרק %q לא נמצא הבדל מהותי בין הפוליסות", comparison.Title)
	}
}

func (uc *CompareUseCase) overallSummary(ctx context.Context, nameA, nameB string, chapters map[string]domain.ChapterComparison) string {
	raw, err := uc.completion.Complete(ctx, ports.CompletionRequest{
		Prompt:    buildOverallSummaryPrompt(nameA, nameB, chapters),
		MaxTokens: 250,
	})
	if err != nil {
		uc.log.Warn("overall_summary_degraded", "error", err)
	}
	if summary := strings.TrimSpace(raw); err == nil && summary != "" {
		return summary
	}
	return fallbackOverallSummary(nameA, nameB, chapters)
}

func fallbackOverallSummary(nameA, nameB string, chapters map[string]domain.ChapterComparison) string {
	var winsA, winsB, decided int
	for _, chapter := range chapters {
		a, b, d := verdictCounts(chapter.Coverage)
		winsA += a
		winsB += b
		decided += d
	}

	switch {
	case decided == 0:
		return fmt.Sprintf("לא נמצא מידע מספק להשוואה בין %q לבין %q", nameA, nameB)
	case winsA > winsB:
		return fmt.Sprintf("%q מציעה כיסוי רחב יותר ב-%d מתוך %d סעיפים שנבדקו מול %q", nameA, winsA, decided, nameB)
	case winsB > winsA:
		return fmt.Sprintf("%q מציעה כיסוי רחב יותר ב-%d מתוך %d סעיפים שנבדקו מול %q", nameB, winsB, decided, nameA)
	default:
		return fmt.Sprintf("הפוליסות %q ו-%q מציעות כיסוי דומה ב-%d סעיפים שנבדקו", nameA, nameB, decided)
	}
}

func buildChapterSummaryPrompt(comparison domain.ChapterComparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "סכם בעברית את השוואת הפרק %q בין שתי פוליסות ביטוח בריאות.\n\n", comparison.Title)
	for _, id := range sortedKeys(comparison.Coverage) {
		entry := comparison.Coverage[id]
		fmt.Fprintf(&b, "- פוליסה A: %s | פוליסה B: %s | עדיפות: %s\n", entry.PolicyA, entry.PolicyB, entry.BetterPolicy)
	}
	if len(comparison.MissingInA) > 0 {
		fmt.Fprintf(&b, "חסר בפוליסה A: %s\n", strings.Join(comparison.MissingInA, ", "))
	}
	if len(comparison.MissingInB) > 0 {
		fmt.Fprintf(&b, "חסר בפוליסה B: %s\n", strings.Join(comparison.MissingInB, ", "))
	}
	b.WriteString("\nהשב בפסקה אחת קצרה, ללא פתיח.")
	return b.String()
}

func buildOverallSummaryPrompt(nameA, nameB string, chapters map[string]domain.ChapterComparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "סכם בעברית את ההשוואה הכוללת בין הפוליסה %q לבין הפוליסה %q.\n\n", nameA, nameB)
	for _, title := range sortedKeys(chapters) {
		fmt.Fprintf(&b, "פרק %q: %s\n", title, chapters[title].Summary)
	}
	b.WriteString("\nהשב בפסקה אחת קצרה המציינת איזו פוליסה עדיפה ולמה.")
	return b.String()
}

func verdictCounts(coverage map[string]domain.CoverageComparison) (winsA, winsB, decided int) {
	for _, entry := range coverage {
		switch entry.BetterPolicy {
		case domain.VerdictPolicyA:
			winsA++
			decided++
		case domain.VerdictPolicyB:
			winsB++
			decided++
		case domain.VerdictEqual:
			decided++
		}
	}
	return winsA, winsB, decided
}

func buildDifferencesPrompt(candidates []differenceCandidate) string {
	var b strings.Builder
	b.WriteString("להלן הבדלים שנמצאו בין שתי פוליסות ביטוח בריאות:\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. פרק: %s, שאלה: %s\n   פוליסה A: %s\n   פוליסה B: %s\n",
			i+1, c.chapter, c.question.Question, c.comparison.PolicyA, c.comparison.PolicyB)
	}
	fmt.Fprintf(&b, `
בחר את %d ההבדלים המשמעותיים ביותר למבוטח והחזר מערך JSON בלבד:
[{"aspect": "תיאור ההיבט", "chapter": "שם הפרק", "financial_impact": "הערכת ההשפעה הכספית", "practical_implication": "המשמעות המעשית", "better_policy": "A" או "B"}]`,
		maxSignificantDifferences)
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
