// Package questions holds the static coverage-question catalog and the
// heuristics matching a chapter to its type.
package questions

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/policyscope/policyscope/internal/core/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

type chapterType struct {
	Type            string                   `yaml:"type"`
	TitleHints      []string                 `yaml:"title_hints"`
	ContentPatterns []string                 `yaml:"content_patterns"`
	Questions       []domain.ChapterQuestion `yaml:"questions"`
}

type catalogFile struct {
	ChapterTypes []chapterType `yaml:"chapter_types"`
}

type Catalog struct {
	types []chapterType
}

func NewCatalog() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, fmt.Errorf("parse question catalog: %w", err)
	}
	if len(file.ChapterTypes) == 0 {
		return nil, fmt.Errorf("question catalog is empty")
	}

	for i := range file.ChapterTypes {
		ct := &file.ChapterTypes[i]
		for j := range ct.Questions {
			ct.Questions[j].ChapterType = ct.Type
		}
	}
	return &Catalog{types: file.ChapterTypes}, nil
}

// QuestionsForChapter resolves the chapter's type from its content
// first and its title second, and returns the type's questions. An
// unclassifiable chapter gets none.
func (c *Catalog) QuestionsForChapter(title, content string) []domain.ChapterQuestion {
	if ct := c.classify(title, content); ct != nil {
		return ct.Questions
	}
	return nil
}

// classify prefers content-pattern evidence: two distinct patterns (or
// the only one, for single-pattern types) must appear. Title hints are
// the weaker fallback.
func (c *Catalog) classify(title, content string) *chapterType {
	normalizedContent := normalize(content)

	var best *chapterType
	bestMatches := 0
	for i := range c.types {
		ct := &c.types[i]
		matches := 0
		for _, pattern := range ct.ContentPatterns {
			if strings.Contains(normalizedContent, normalize(pattern)) {
				matches++
			}
		}
		needed := 2
		if len(ct.ContentPatterns) == 1 {
			needed = 1
		}
		if matches >= needed && matches > bestMatches {
			best = ct
			bestMatches = matches
		}
	}
	if best != nil {
		return best
	}

	normalizedTitle := normalize(cleanTitle(title))
	for i := range c.types {
		ct := &c.types[i]
		for _, hint := range ct.TitleHints {
			if strings.Contains(normalizedTitle, normalize(hint)) {
				return ct
			}
		}
	}
	return nil
}

// cleanTitle drops trailing page numbers and separators that PDF
// extraction glues onto chapter headers.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.TrimRight(title, "0123456789 .-–")
	return title
}

func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
