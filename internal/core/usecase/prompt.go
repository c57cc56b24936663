package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

// SystemInstruction frames the generator as a stewards' assistant limited
// to the retrieved context.
const SystemInstruction = `You are an assistant specialised in Formula 1 race penalties and FIA regulations.
Analyse race incidents, explain penalties in plain terms and assess their fairness using only the
stewards' decisions and regulation excerpts supplied with the question. Do not rely on outside
knowledge and do not guess driver intent or race conditions that the context does not describe.
If the context is not enough for a full answer, say that more information is needed. Point out
conflicting interpretations when the context contains them. Keep a neutral, informative tone and
steer questions unrelated to Formula 1 penalties back to that topic.`

// BuildAnalysisPrompt lays the three context tiers out as labelled sections
// followed by the analysis tasks.
func BuildAnalysisPrompt(question string, rc domain.RetrievalContext) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\n")

	writeSection(&b, "Specific case (stewards' decision for this incident)", rc.Specific)
	writeSection(&b, "Historical precedent (similar past decisions)", rc.Historical)
	writeSection(&b, "Regulation excerpts (FIA Sporting Regulations)", rc.Regulatory)

	b.WriteString(`TASKS:
1. Explain the infringement clearly and what the regulation requires.
2. Compare the penalty with similar past penalties.
3. Assess whether the penalty is fair compared to precedent.
4. Highlight patterns or inconsistencies.

Explain each task simply and concisely.
If the answer is not in the context, say you cannot answer based on the information provided.
`)
	return b.String()
}

func writeSection(b *strings.Builder, title string, docs []string) {
	b.WriteString(title)
	b.WriteString(":\n")
	if len(docs) == 0 {
		b.WriteString("(none found)\n\n")
		return
	}
	for i, d := range docs {
		fmt.Fprintf(b, "[%d] %s\n", i+1, strings.TrimSpace(d))
	}
	b.WriteString("\n")
}
