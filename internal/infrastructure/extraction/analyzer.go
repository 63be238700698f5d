package extraction

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
	"github.com/policyscope/policyscope/internal/infrastructure/llmjson"
)

const analysisMaxTokens = 300

// Analyzer turns a pair of extracted answers into a structured coverage
// verdict. The model is asked for JSON; when the response cannot be
// parsed the analyzer falls back to comparing the shekel amounts found
// in the answers.
type Analyzer struct {
	completion ports.CompletionClient
}

func NewAnalyzer(completion ports.CompletionClient) *Analyzer {
	return &Analyzer{completion: completion}
}

type analysisPayload struct {
	Difference           string `json:"difference"`
	PercentageDiff       string `json:"percentage_diff"`
	BetterPolicy         string `json:"better_policy"`
	Analysis             string `json:"analysis"`
	PracticalImplication string `json:"practical_implication"`
}

func (a *Analyzer) CompareAnswers(ctx context.Context, question domain.ChapterQuestion, answerA, answerB string) (domain.CoverageComparison, error) {
	result := domain.CoverageComparison{
		PolicyA: answerA,
		PolicyB: answerB,
	}

	raw, err := a.completion.Complete(ctx, ports.CompletionRequest{
		Prompt:    buildAnalysisPrompt(question, answerA, answerB),
		MaxTokens: analysisMaxTokens,
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
			return result, err
		}
		fillHeuristic(&result, answerA, answerB)
		return result, nil
	}

	parsed := llmjson.Parse[analysisPayload](raw)
	if !parsed.Parsed {
		fillHeuristic(&result, answerA, answerB)
		if trimmed := strings.TrimSpace(parsed.Raw); trimmed != "" {
			result.Analysis = trimmed
		}
		return result, nil
	}

	result.Difference = strings.TrimSpace(parsed.Value.Difference)
	result.PercentageDiff = strings.TrimSpace(parsed.Value.PercentageDiff)
	result.BetterPolicy = domain.NormalizeVerdict(parsed.Value.BetterPolicy)
	result.Analysis = strings.TrimSpace(parsed.Value.Analysis)
	if impl := strings.TrimSpace(parsed.Value.PracticalImplication); impl != "" && result.Analysis == "" {
		result.Analysis = impl
	}
	fillFinancial(&result, answerA, answerB)
	return result, nil
}

// fillHeuristic enriches a degraded comparison from shekel amounts.
// Without a usable model verdict the winner stays unknown; the amounts
// only describe the gap.
func fillHeuristic(result *domain.CoverageComparison, answerA, answerB string) {
	result.BetterPolicy = domain.VerdictUnknown

	amountA, okA := MaxAmount(answerA)
	amountB, okB := MaxAmount(answerB)
	if okA && okB && amountA != amountB {
		result.Difference = fmt.Sprintf("הפרש של %.0f ₪ בתקרת הכיסוי", math.Abs(amountA-amountB))
	}
	fillFinancial(result, answerA, answerB)
}

func fillFinancial(result *domain.CoverageComparison, answerA, answerB string) {
	amountA, okA := MaxAmount(answerA)
	amountB, okB := MaxAmount(answerB)
	if !okA || !okB {
		if result.FinancialImpact == 0 {
			result.FinancialImpact = FinancialImpact(result.Difference)
		}
		return
	}

	diff := math.Abs(amountA - amountB)
	if diff == 0 {
		return
	}
	result.FinancialImpact = diff
	if result.PercentageDiff == "" {
		smaller := math.Min(amountA, amountB)
		if smaller > 0 {
			result.PercentageDiff = fmt.Sprintf("%.1f%%", diff/smaller*100)
		}
	}
}

func buildAnalysisPrompt(question domain.ChapterQuestion, answerA, answerB string) string {
	var b strings.Builder
	b.WriteString("השווה בין שתי תשובות שחולצו משתי פוליסות ביטוח בריאות לאותה שאלה.\n\n")
	fmt.Fprintf(&b, "שאלה: %s\n\n", question.Question)
	fmt.Fprintf(&b, "פוליסה A: %s\n", answerA)
	fmt.Fprintf(&b, "פוליסה B: %s\n\n", answerB)
	b.WriteString(`החזר JSON בלבד במבנה הבא:
{"difference": "תיאור קצר של ההבדל", "percentage_diff": "25%", "better_policy": "A" או "B" או "equal" או "unknown", "analysis": "ניתוח קצר", "practical_implication": "משמעות מעשית למבוטח"}`)
	return b.String()
}
