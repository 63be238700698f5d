package domain

import "time"

// Verdict says which policy comes out ahead on a question, a chapter or
// the whole comparison.
type Verdict string

const (
	VerdictPolicyA Verdict = "A"
	VerdictPolicyB Verdict = "B"
	VerdictEqual   Verdict = "equal"
	VerdictUnknown Verdict = "unknown"
)

// NormalizeVerdict maps free-form model output onto a Verdict, keeping
// unknown as the safe default.
func NormalizeVerdict(raw string) Verdict {
	switch Verdict(raw) {
	case VerdictPolicyA, VerdictPolicyB, VerdictEqual:
		return Verdict(raw)
	default:
		return VerdictUnknown
	}
}

// CoverageComparison is the verdict for a single question across the
// two policies.
type CoverageComparison struct {
	PolicyA         string  `json:"policy_a"`
	PolicyB         string  `json:"policy_b"`
	Difference      string  `json:"difference"`
	PercentageDiff  string  `json:"percentage_diff,omitempty"`
	BetterPolicy    Verdict `json:"better_policy"`
	Analysis        string  `json:"analysis,omitempty"`
	FinancialImpact float64 `json:"financial_impact,omitempty"`
}

// ChapterComparison aggregates the question verdicts for one chapter.
// MissingInA lists question IDs answered only by policy B, and the
// other way around for MissingInB.
type ChapterComparison struct {
	Title      string                        `json:"title"`
	Coverage   map[string]CoverageComparison `json:"coverage"`
	MissingInA []string                      `json:"missing_in_a,omitempty"`
	MissingInB []string                      `json:"missing_in_b,omitempty"`
	Summary    string                        `json:"summary,omitempty"`
}

// SignificantDifference is one of the ranked headline differences of a
// comparison.
type SignificantDifference struct {
	Aspect               string  `json:"aspect"`
	Chapter              string  `json:"chapter"`
	FinancialImpact      string  `json:"financial_impact"`
	PracticalImplication string  `json:"practical_implication"`
	BetterPolicy         Verdict `json:"better_policy"`
}

type ComparisonResult struct {
	ID                     string                       `json:"id"`
	PolicyAID              string                       `json:"policy_a_id"`
	PolicyBID              string                       `json:"policy_b_id"`
	PolicyAName            string                       `json:"policy_a_name"`
	PolicyBName            string                       `json:"policy_b_name"`
	Chapters               map[string]ChapterComparison `json:"chapters"`
	SignificantDifferences []SignificantDifference      `json:"significant_differences"`
	Summary                string                       `json:"summary"`
	ComparedAt             time.Time                    `json:"compared_at"`
}
