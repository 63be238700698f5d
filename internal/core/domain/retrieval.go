package domain

// ChapterMatch is one chapter ranked against a question embedding.
type ChapterMatch struct {
	PolicyID     string  `json:"policy_id"`
	PolicyName   string  `json:"policy_name"`
	ChapterTitle string  `json:"chapter_title"`
	Similarity   float64 `json:"similarity"`
}

// Answer is a grounded response to a free-form question over one or
// more policies. Confidence is the best source similarity, so zero
// when nothing matched.
type Answer struct {
	Text       string         `json:"text"`
	Sources    []ChapterMatch `json:"sources"`
	Confidence float64        `json:"confidence"`
}
