package extraction

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	keywordScore     = 15
	moneyScore       = 20
	hugeAmountScore  = 60
	largeAmountScore = 30
	superlativeScore = 30
	comboScore       = 25

	relevanceThreshold  = 50
	maxRelevantSections = 2
	excerptCap          = 2000
	briefCap            = 600
)

var (
	sectionSplit  = regexp.MustCompile(`\n\s*\n|\n(?:\d+(?:\.\d+)*)\s*[.)]\s+`)
	sentenceSplit = regexp.MustCompile(`[^.!?\n]+[.!?\n]*`)
)

// superlatives signal ceilings and entitlements, the phrases coverage
// questions usually care about.
var superlatives = []string{
	"מרבי",
	"מקסימלי",
	"מקסימום",
	"תקרה",
	"עד לסך",
	"סכום ביטוח",
}

// RelevantExcerpt reduces chapter content to the passages most likely
// to answer the question, keeping the prompt small. Sections scoring
// over the threshold win; keyword sentences and finally a raw prefix
// back it up.
func RelevantExcerpt(content string, keywords []string) string {
	type scored struct {
		text  string
		score int
	}

	var candidates []scored
	for _, section := range sectionSplit.Split(content, -1) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if s := scoreSection(section, keywords); s >= relevanceThreshold {
			candidates = append(candidates, scored{text: section, score: s})
		}
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
		if len(candidates) > maxRelevantSections {
			candidates = candidates[:maxRelevantSections]
		}
		parts := make([]string, len(candidates))
		for i, c := range candidates {
			parts[i] = c.text
		}
		return truncateRunes(strings.Join(parts, "\n\n"), excerptCap)
	}

	if fallback := keywordSentences(content, keywords, excerptCap); fallback != "" {
		return fallback
	}
	return truncateRunes(content, excerptCap)
}

// BriefExcerpt is the degraded-prompt variant used after a rate-limit
// response: keyword sentences only, hard-capped much lower.
func BriefExcerpt(content string, keywords []string) string {
	if brief := keywordSentences(content, keywords, briefCap); brief != "" {
		return brief
	}
	return truncateRunes(content, briefCap)
}

func scoreSection(section string, keywords []string) int {
	score := 0
	normalized := normalize(section)

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, normalize(kw)) {
			matched++
		}
	}
	score += matched * keywordScore

	hasMoney := false
	if max, ok := MaxAmount(section); ok {
		hasMoney = true
		score += moneyScore
		switch {
		case max >= 1_000_000:
			score += hugeAmountScore
		case max >= 100_000:
			score += largeAmountScore
		}
	}

	for _, s := range superlatives {
		if strings.Contains(normalized, s) {
			score += superlativeScore
			break
		}
	}

	if matched > 0 && hasMoney {
		score += comboScore
	}
	return score
}

func keywordSentences(content string, keywords []string, limit int) string {
	var picked []string
	total := 0
	for _, sentence := range sentenceSplit.FindAllString(content, -1) {
		normalized := normalize(sentence)
		for _, kw := range keywords {
			if !strings.Contains(normalized, normalize(kw)) {
				continue
			}
			sentence = strings.TrimSpace(sentence)
			picked = append(picked, sentence)
			total += utf8.RuneCountInString(sentence)
			break
		}
		if total >= limit {
			break
		}
	}
	if len(picked) == 0 {
		return ""
	}
	return truncateRunes(strings.Join(picked, " "), limit)
}

// normalize lowercases and collapses whitespace so keyword matching is
// insensitive to line breaks inside PDF-extracted text.
func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
