package structuring

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/policyscope/policyscope/internal/core/domain"
)

var sectionMarker = regexp.MustCompile(`(?m)^\s*(\d+(?:\.\d+)*)\s*[.)]\s+`)

// parseSections splits chapter content on numbered clause markers into
// a two-level section list. Content with no markers becomes a single
// implicit section so every chapter serializes uniformly.
func parseSections(content string) []domain.Section {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	markers := sectionMarker.FindAllStringSubmatchIndex(content, -1)
	if len(markers) == 0 {
		return []domain.Section{{Number: "1", Content: strings.TrimSpace(content)}}
	}

	var sections []domain.Section
	for i, m := range markers {
		number := content[m[2]:m[3]]
		end := len(content)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		body := strings.TrimSpace(content[m[1]:end])

		sec := domain.Section{
			Number:  number,
			Title:   sectionTitle(body),
			Content: body,
		}

		if parent := parentIndex(sections, number); parent >= 0 {
			sections[parent].SubSections = append(sections[parent].SubSections, sec)
		} else {
			sections = append(sections, sec)
		}
	}
	return sections
}

// parentIndex finds the top-level section a dotted number belongs to,
// or -1 when the number is itself top-level or its parent never showed.
func parentIndex(sections []domain.Section, number string) int {
	dot := strings.Index(number, ".")
	if dot < 0 {
		return -1
	}
	prefix := number[:dot]
	for i := len(sections) - 1; i >= 0; i-- {
		if sections[i].Number == prefix {
			return i
		}
	}
	return -1
}

// sectionTitle lifts a short leading phrase out of the clause body.
// Long first lines mean the clause starts with prose, not a title.
func sectionTitle(body string) string {
	line := body
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)

	for _, sep := range []string{" - ", " – ", ":"} {
		if idx := strings.Index(line, sep); idx > 0 {
			line = line[:idx]
			break
		}
	}
	if utf8.RuneCountInString(line) > 60 {
		return ""
	}
	return line
}
