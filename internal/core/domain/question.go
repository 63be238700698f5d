package domain

import "strings"

type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// ChapterQuestion is one coverage question asked against a chapter of a
// specific type. Keywords steer the relevance excerpting before the
// model sees the chapter text.
type ChapterQuestion struct {
	ID              string     `json:"id" yaml:"id"`
	Question        string     `json:"question" yaml:"question"`
	ChapterType     string     `json:"chapter_type" yaml:"chapter_type"`
	Keywords        []string   `json:"keywords" yaml:"keywords"`
	Importance      Importance `json:"importance" yaml:"importance"`
	RequiresNumeric bool       `json:"requires_numeric" yaml:"requires_numeric"`
}

// Sentinel answers produced when extraction cannot do better. Kept in
// the policy language so they read naturally next to real answers.
const (
	AnswerNotSpecified    = "לא מפורט"
	AnswerExtractionError = "שגיאה בחילוץ המידע"
)

var noInformationMarkers = []string{
	AnswerNotSpecified,
	AnswerExtractionError,
	"לא נמצא מידע",
	"not specified",
	"no information",
}

// IsNoInformation reports whether an extracted answer carries no usable
// coverage information, including the sentinel answers above.
func IsNoInformation(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return true
	}
	lowered := strings.ToLower(trimmed)
	for _, marker := range noInformationMarkers {
		if strings.Contains(lowered, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
