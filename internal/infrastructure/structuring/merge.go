package structuring

import (
	"strings"

	"github.com/policyscope/policyscope/internal/core/domain"
)

// Merge collapses chapters whose titles are near-duplicates, keeping
// the variant carrying more content. Extraction often sees the same
// chapter twice, once in a table of contents and once for real.
func (e *Extractor) Merge(chapters []domain.Chapter) []domain.Chapter {
	var merged []domain.Chapter

	for _, ch := range chapters {
		replaced := false
		for i := range merged {
			if titleSimilarity(merged[i].Title, ch.Title) < e.cfg.TitleSimilarityThreshold {
				continue
			}
			if ch.ContentLength() > merged[i].ContentLength() {
				merged[i] = ch
			}
			replaced = true
			break
		}
		if !replaced {
			merged = append(merged, ch)
		}
	}
	return merged
}

// StripRedundantContent clears a parent's own content once sub-chapters
// hold the same text, so serialized trees do not double material.
func StripRedundantContent(chapters []domain.Chapter) []domain.Chapter {
	for i := range chapters {
		if len(chapters[i].SubChapters) > 0 {
			chapters[i].Content = ""
			chapters[i].SubChapters = StripRedundantContent(chapters[i].SubChapters)
		}
	}
	return chapters
}

// titleSimilarity is the ratio of positions where both normalized
// titles carry the same rune, over the longer title's length. Cheap,
// order-sensitive, and good enough to catch re-extracted duplicates.
func titleSimilarity(a, b string) float64 {
	ra := []rune(normalizeTitle(a))
	rb := []rune(normalizeTitle(b))
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	shorter, longer := ra, rb
	if len(rb) < len(ra) {
		shorter, longer = rb, ra
	}
	matches := 0
	for i := range shorter {
		if shorter[i] == longer[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(longer))
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
