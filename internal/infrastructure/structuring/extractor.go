package structuring

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/policyscope/policyscope/internal/core/domain"
)

// Config holds the structuring thresholds. Zero values fall back to the
// defaults, so callers can override selectively.
type Config struct {
	MinChapterLength         int
	ShortContentPenaltyBelow int
	MinCandidates            int
	PagesPerFallbackChapter  int
	TitleSimilarityThreshold float64
}

func DefaultConfig() Config {
	return Config{
		MinChapterLength:         200,
		ShortContentPenaltyBelow: 1000,
		MinCandidates:            3,
		PagesPerFallbackChapter:  3,
		TitleSimilarityThreshold: 0.7,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.MinChapterLength <= 0 {
		out.MinChapterLength = def.MinChapterLength
	}
	if out.ShortContentPenaltyBelow <= 0 {
		out.ShortContentPenaltyBelow = def.ShortContentPenaltyBelow
	}
	if out.MinCandidates <= 0 {
		out.MinCandidates = def.MinCandidates
	}
	if out.PagesPerFallbackChapter <= 0 {
		out.PagesPerFallbackChapter = def.PagesPerFallbackChapter
	}
	if out.TitleSimilarityThreshold <= 0 || out.TitleSimilarityThreshold > 1 {
		out.TitleSimilarityThreshold = def.TitleSimilarityThreshold
	}
	return out
}

// Extractor recovers a chapter tree from extracted policy text using
// layered header heuristics. Extraction never fails: when no header
// pattern matches, page grouping and finally a single catch-all chapter
// take over.
type Extractor struct {
	cfg Config
}

func New(cfg Config) *Extractor {
	return &Extractor{cfg: cfg.normalize()}
}

var (
	chapterPattern = regexp.MustCompile(`פרק\s+([א-ת]'?)[:\s'"־-]\s*([^\n.]+)`)
	layerPattern   = regexp.MustCompile(`רובד\s+(בסיס|הרחבה)`)
	numberedItems  = regexp.MustCompile(`\n\s*\d+\s*\.`)
	multiLevel     = regexp.MustCompile(`\d+\.\d+`)
	pageBreak      = regexp.MustCompile(`\f|\n\s*[-–]\s*\d+\s*[-–]\s*\n`)
)

// contentKeywords mark canonical policy clauses. Seeing them near the
// top of a candidate's content is a strong signal the header is real.
var contentKeywords = []string{
	"הגדרות",
	"מקרה הביטוח",
	"הכיסוי הביטוחי",
	"תגמולי ביטוח",
	"חריגים",
	"השתתפות עצמית",
	"תקופת אכשרה",
}

type candidate struct {
	id    string
	title string
	start int
	score int
}

func (e *Extractor) Extract(text string) []domain.Chapter {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cands := e.headerCandidates(text)
	if len(cands) < e.cfg.MinCandidates {
		cands = append(cands, e.keywordCandidates(text, cands)...)
	}

	chapters := e.buildChapters(text, cands)
	if len(chapters) == 0 {
		chapters = e.pageFallback(text)
	}
	if len(chapters) == 0 {
		chapters = []domain.Chapter{{
			Title:   "כללי",
			Level:   1,
			Content: strings.TrimSpace(text),
		}}
	}

	chapters = e.Merge(chapters)
	chapters = StripRedundantContent(nestLayers(chapters))
	attachSections(chapters)
	return chapters
}

// nestLayers groups the chapters that follow a coverage-layer header
// ("רובד בסיס", "רובד הרחבה") under that layer as sub-chapters. A
// layer's own introduction survives as a leading sub-chapter, so
// stripping parent content afterwards loses no text.
func nestLayers(chapters []domain.Chapter) []domain.Chapter {
	var out []domain.Chapter
	layer := -1

	for _, ch := range chapters {
		if layerPattern.MatchString(ch.Title) {
			out = append(out, ch)
			layer = len(out) - 1
			continue
		}
		if layer < 0 {
			out = append(out, ch)
			continue
		}
		parent := &out[layer]
		if len(parent.SubChapters) == 0 && strings.TrimSpace(parent.Content) != "" {
			parent.SubChapters = append(parent.SubChapters, domain.Chapter{
				Title:   "כללי",
				Level:   2,
				Content: parent.Content,
			})
		}
		sub := ch
		sub.Level = 2
		parent.SubChapters = append(parent.SubChapters, sub)
	}
	return out
}

func attachSections(chapters []domain.Chapter) {
	for i := range chapters {
		chapters[i].Sections = parseSections(chapters[i].Content)
		attachSections(chapters[i].SubChapters)
	}
}

// headerCandidates finds explicit chapter and coverage-layer headers.
func (e *Extractor) headerCandidates(text string) []candidate {
	var cands []candidate

	for _, m := range chapterPattern.FindAllStringSubmatchIndex(text, -1) {
		letter := text[m[2]:m[3]]
		title := strings.TrimSpace(text[m[4]:m[5]])
		cands = append(cands, candidate{
			id:    "chapter:" + letter,
			title: fmt.Sprintf("פרק %s: %s", letter, title),
			start: m[0],
		})
	}

	for _, m := range layerPattern.FindAllStringSubmatchIndex(text, -1) {
		kind := text[m[2]:m[3]]
		cands = append(cands, candidate{
			id:    "layer:" + kind,
			title: "רובד " + kind,
			start: m[0],
		})
	}
	return cands
}

// keywordCandidates falls back to literal clause keywords when too few
// headers matched. Occurrences inside already-claimed header lines are
// fine; dedup and scoring sort it out later.
func (e *Extractor) keywordCandidates(text string, existing []candidate) []candidate {
	claimed := make(map[int]bool, len(existing))
	for _, c := range existing {
		claimed[c.start] = true
	}

	var cands []candidate
	for _, kw := range contentKeywords {
		idx := strings.Index(text, kw)
		if idx < 0 || claimed[idx] {
			continue
		}
		cands = append(cands, candidate{
			id:    "keyword:" + kw,
			title: kw,
			start: idx,
		})
	}
	return cands
}

// buildChapters slices content between candidates, scores each one,
// keeps the best occurrence per identifier and drops thin chapters.
func (e *Extractor) buildChapters(text string, cands []candidate) []domain.Chapter {
	if len(cands) == 0 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].start < cands[j].start })

	contents := make([]string, len(cands))
	for i := range cands {
		end := len(text)
		if i+1 < len(cands) {
			end = cands[i+1].start
		}
		contents[i] = strings.TrimSpace(text[cands[i].start:end])
		cands[i].score = e.scoreContent(contents[i])
	}

	// Repeated identifiers usually mean a table of contents plus the
	// real chapter body. The higher-scoring occurrence wins.
	bestByID := make(map[string]int, len(cands))
	for i, c := range cands {
		best, seen := bestByID[c.id]
		if !seen || c.score > cands[best].score {
			bestByID[c.id] = i
		}
	}

	var kept []int
	for _, i := range bestByID {
		if utf8.RuneCountInString(contents[i]) >= e.cfg.MinChapterLength {
			kept = append(kept, i)
		}
	}
	sort.Ints(kept)

	chapters := make([]domain.Chapter, 0, len(kept))
	for _, i := range kept {
		chapters = append(chapters, domain.Chapter{
			Title:   cands[i].title,
			Level:   1,
			Content: contents[i],
		})
	}
	return chapters
}

func (e *Extractor) scoreContent(content string) int {
	score := 0

	runes := []rune(content)
	head := content
	if len(runes) > 500 {
		head = string(runes[:500])
	}
	for _, kw := range contentKeywords {
		if strings.Contains(head, kw) {
			score += 10
		}
	}

	if len(numberedItems.FindAllStringIndex(content, 3)) >= 3 {
		score += 5
	}

	switch n := len(runes); {
	case n > 5000:
		score += 20
	case n > 2500:
		score += 10
	case n > 1000:
		score += 5
	}

	switch lines := strings.Count(content, "\n"); {
	case lines > 50:
		score += 10
	case lines > 25:
		score += 5
	}

	if multiLevel.MatchString(content) || strings.Contains(content, "סעיף") {
		score += 10
	}

	if len(runes) < e.cfg.ShortContentPenaltyBelow || strings.Contains(content, "תוכן עניינים") {
		score -= 15
	}
	return score
}

// pageFallback groups a fixed number of pages per synthetic chapter
// when no header heuristic produced anything.
func (e *Extractor) pageFallback(text string) []domain.Chapter {
	pages := pageBreak.Split(text, -1)

	var nonEmpty []string
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(p))
		}
	}
	if len(nonEmpty) < 2 {
		return nil
	}

	per := e.cfg.PagesPerFallbackChapter
	var chapters []domain.Chapter
	for i := 0; i < len(nonEmpty); i += per {
		end := i + per
		if end > len(nonEmpty) {
			end = len(nonEmpty)
		}
		chapters = append(chapters, domain.Chapter{
			Title:   fmt.Sprintf("חלק %d", len(chapters)+1),
			Level:   1,
			Content: strings.Join(nonEmpty[i:end], "\n"),
		})
	}
	return chapters
}
