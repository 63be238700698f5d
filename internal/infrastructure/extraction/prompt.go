package extraction

import (
	"fmt"
	"strings"

	"github.com/policyscope/policyscope/internal/core/domain"
)

// buildAnswerPrompt asks for a short factual answer grounded only in
// the excerpt. The instructions stay in the policy language so answers
// come back in it too.
func buildAnswerPrompt(excerpt string, question domain.ChapterQuestion) string {
	var b strings.Builder

	b.WriteString("להלן קטע מתוך פוליסת ביטוח בריאות:\n\n")
	b.WriteString(excerpt)
	b.WriteString("\n\nשאלה: ")
	b.WriteString(question.Question)
	b.WriteString("\n\n")
	b.WriteString("ענה בקצרה ובמדויק על סמך הקטע בלבד. ")
	if question.RequiresNumeric {
		b.WriteString("ציין את הסכום או האחוז המדויק כולל מטבע. ")
	}
	fmt.Fprintf(&b, "אם המידע אינו מופיע בקטע, השב \"%s\".", domain.AnswerNotSpecified)

	return b.String()
}
