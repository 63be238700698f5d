package domain

import "time"

type PolicyStatus string

const (
	PolicyStatusUploaded   PolicyStatus = "uploaded"
	PolicyStatusProcessing PolicyStatus = "processing"
	PolicyStatusReady      PolicyStatus = "ready"
	PolicyStatusFailed     PolicyStatus = "failed"
)

// Policy is an uploaded insurance policy document together with the
// structure recovered from its text.
type Policy struct {
	ID          string
	Name        string
	Filename    string
	MimeType    string
	StoragePath string
	Status      PolicyStatus
	Error       string
	Metadata    PolicyMetadata
	Chapters    []Chapter
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PolicyMetadata holds identifying fields parsed from the policy text.
// Any of them may be empty when the text does not carry the label.
type PolicyMetadata struct {
	Insurer      string `json:"insurer,omitempty"`
	PolicyNumber string `json:"policy_number,omitempty"`
	ValidFrom    string `json:"valid_from,omitempty"`
	ValidTo      string `json:"valid_to,omitempty"`
}

// Chapter is one node of the recovered policy structure. Top-level
// chapters carry Level 1; nested layers and sub-chapters increase it.
type Chapter struct {
	Title       string    `json:"title"`
	Level       int       `json:"level"`
	Content     string    `json:"content,omitempty"`
	SubChapters []Chapter `json:"sub_chapters,omitempty"`
	Sections    []Section `json:"sections,omitempty"`
}

// Section is a numbered clause inside a chapter ("3.", "3.2." and so on).
type Section struct {
	Number      string    `json:"number"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	SubSections []Section `json:"sub_sections,omitempty"`
}

// FlattenContent returns the chapter's own content followed by the
// content of all nested sub-chapters, in document order.
func (c Chapter) FlattenContent() string {
	out := c.Content
	for _, sub := range c.SubChapters {
		nested := sub.FlattenContent()
		if nested == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += nested
	}
	return out
}

// ContentLength counts the characters held by the chapter and every
// nested sub-chapter. Used when two structure variants compete.
func (c Chapter) ContentLength() int {
	total := len(c.Content)
	for _, sub := range c.SubChapters {
		total += sub.ContentLength()
	}
	return total
}
