package structuring

import (
	"testing"

	"github.com/policyscope/policyscope/internal/core/domain"
)

func TestMergeKeepsLargerVariant(t *testing.T) {
	small := domain.Chapter{Title: "פרק ג: אמבולטורי", Level: 1, Content: "קצר"}
	large := domain.Chapter{Title: "פרק ג: אמבולטורי ", Level: 1, Content: "תוכן ארוך בהרבה מהגרסה הראשונה של הפרק"}

	merged := New(DefaultConfig()).Merge([]domain.Chapter{small, large})

	if len(merged) != 1 {
		t.Fatalf("expected near-duplicate titles to merge, got %d chapters", len(merged))
	}
	if merged[0].Content != large.Content {
		t.Fatalf("expected the larger variant to win, got %q", merged[0].Content)
	}
}

func TestMergeKeepsDistinctTitles(t *testing.T) {
	a := domain.Chapter{Title: "פרק א: השתלות בחוץ לארץ", Content: "תוכן"}
	b := domain.Chapter{Title: "כיסוי תרופות שאינן בסל", Content: "תוכן"}

	merged := New(DefaultConfig()).Merge([]domain.Chapter{a, b})

	if len(merged) != 2 {
		t.Fatalf("expected distinct chapters to survive, got %d", len(merged))
	}
}

func TestTitleSimilarity(t *testing.T) {
	if got := titleSimilarity("פרק א: הגדרות", "פרק  א: הגדרות"); got != 1 {
		t.Fatalf("whitespace-normalized identical titles should score 1, got %v", got)
	}
	if got := titleSimilarity("", "פרק"); got != 0 {
		t.Fatalf("empty title should score 0, got %v", got)
	}
	if got := titleSimilarity("abcdef", "abcxyz"); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestStripRedundantContent(t *testing.T) {
	chapters := []domain.Chapter{{
		Title:   "רובד בסיס",
		Content: "תוכן כפול",
		SubChapters: []domain.Chapter{
			{Title: "פרק א", Content: "תוכן הבן"},
		},
	}}

	stripped := StripRedundantContent(chapters)

	if stripped[0].Content != "" {
		t.Fatalf("parent content should be cleared once children exist")
	}
	if stripped[0].SubChapters[0].Content != "תוכן הבן" {
		t.Fatalf("child content must survive")
	}
}

func TestParseMetadata(t *testing.T) {
	text := "חברת הביטוח: הראל חברה לביטוח\nמספר פוליסה: 123456/7\nתקופת הביטוח מיום 01.01.2025 עד 31.12.2025\n"

	meta := ParseMetadata(text)

	if meta.Insurer != "הראל חברה לביטוח" {
		t.Fatalf("unexpected insurer: %q", meta.Insurer)
	}
	if meta.PolicyNumber != "123456/7" {
		t.Fatalf("unexpected policy number: %q", meta.PolicyNumber)
	}
	if meta.ValidFrom != "01.01.2025" || meta.ValidTo != "31.12.2025" {
		t.Fatalf("unexpected validity: %q - %q", meta.ValidFrom, meta.ValidTo)
	}
}
