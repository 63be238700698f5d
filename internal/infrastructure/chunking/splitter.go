package chunking

import (
	"regexp"
	"strings"
)

// Splitter cuts policy text into chunks sized for embedding. Chunks
// close on heading boundaries once MinLen is reached and never exceed
// MaxLen except for a single sentence that is itself too long, which
// gets hard-sliced.
type Splitter struct {
	MinLen int
	MaxLen int
}

func NewSplitter(minLen, maxLen int) *Splitter {
	if minLen <= 0 {
		minLen = 200
	}
	if maxLen <= minLen {
		maxLen = minLen * 10
	}
	return &Splitter{MinLen: minLen, MaxLen: maxLen}
}

var (
	headingLine = regexp.MustCompile(`^\s*(?:\d+(?:\.\d+)*[.)]\s+|פרק\s+|רובד\s+|סעיף\s+|נספח\s+)`)
	sentenceEnd = regexp.MustCompile(`[^.!?\n]*[.!?\n]+\s*|[^.!?\n]+$`)
)

func (s *Splitter) Chunk(text string) []string {
	return Chunk(text, s.MinLen, s.MaxLen)
}

// Chunk walks the text line by line, closing a chunk when a heading
// line starts and enough text accumulated, or when the next line would
// overflow maxLen.
func Chunk(text string, minLen, maxLen int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		piece := cur.String()
		cur.Reset()
		if len(piece) > maxLen {
			chunks = append(chunks, splitBySentences(piece, maxLen)...)
			return
		}
		chunks = append(chunks, piece)
	}

	for _, line := range strings.Split(text, "\n") {
		if headingLine.MatchString(line) && cur.Len() >= minLen {
			flush()
		}
		if cur.Len() > 0 && cur.Len()+1+len(line) > maxLen {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	flush()

	return mergeShort(chunks, minLen, maxLen)
}

// splitBySentences repacks an oversized chunk along sentence ends,
// hard-slicing any single sentence longer than maxLen.
func splitBySentences(text string, maxLen int) []string {
	var pieces []string
	var cur strings.Builder

	for _, sentence := range sentenceEnd.FindAllString(text, -1) {
		if len(sentence) > maxLen {
			if cur.Len() > 0 {
				pieces = append(pieces, cur.String())
				cur.Reset()
			}
			for len(sentence) > maxLen {
				cut := maxLen
				for cut > 0 && !isRuneStart(sentence[cut]) {
					cut--
				}
				if cut == 0 {
					cut = maxLen
				}
				pieces = append(pieces, sentence[:cut])
				sentence = sentence[cut:]
			}
			cur.WriteString(sentence)
			continue
		}
		if cur.Len()+len(sentence) > maxLen {
			pieces = append(pieces, cur.String())
			cur.Reset()
		}
		cur.WriteString(sentence)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}

// mergeShort folds a too-small chunk into its successor so only the
// final chunk may end up below minLen.
func mergeShort(chunks []string, minLen, maxLen int) []string {
	var out []string
	for i := 0; i < len(chunks); i++ {
		chunk := chunks[i]
		for len(chunk) < minLen && i+1 < len(chunks) && len(chunk)+1+len(chunks[i+1]) <= maxLen {
			chunk = chunk + "\n" + chunks[i+1]
			i++
		}
		out = append(out, chunk)
	}
	return out
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
