package news

import (
	"fmt"
	"strings"
)

// SummaryVariant selects the shape of a generated summary.
type SummaryVariant string

const (
	VariantConcise       SummaryVariant = "concise"
	VariantDetailed      SummaryVariant = "detailed"
	VariantComprehensive SummaryVariant = "comprehensive"
)

var variantInstructions = map[SummaryVariant]string{
	VariantConcise: "Write a concise summary of 2-3 sentences. " +
		"Highlight the key insights in **bold**.",
	VariantDetailed: "Write a detailed summary structured under a \"Key Takeaways\" heading, " +
		"with one bullet point per takeaway.",
	VariantComprehensive: "Write a comprehensive summary with exactly three headed sections:\n" +
		"## Key Takeaways\n" +
		"## Market Impact\n" +
		"## Expert Analysis",
}

// Variants lists the recognized summary variants.
func Variants() []SummaryVariant {
	return []SummaryVariant{VariantConcise, VariantDetailed, VariantComprehensive}
}

// ParseVariant validates a summary variant name.
func ParseVariant(s string) (SummaryVariant, error) {
	v := SummaryVariant(s)
	if _, ok := variantInstructions[v]; !ok {
		names := make([]string, 0, len(variantInstructions))
		for _, known := range Variants() {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("unsupported summaryType %q (supported: %s)", s, strings.Join(names, ", "))
	}
	return v, nil
}

func summarySystemPrompt(ticker string, variant SummaryVariant) string {
	return fmt.Sprintf("You are a financial news analyst. Summarize the news about %s provided by the user. "+
		"Ignore any content that is not related to %s.\n\n%s",
		ticker, ticker, variantInstructions[variant])
}

const answerSystemPrompt = "You are a financial news expert. Answer the user's question using only " +
	"the news articles provided. If the articles do not contain the answer, say so."

func answerUserPrompt(documents []string, question string) string {
	var b strings.Builder
	b.WriteString("News articles:\n")
	for i, doc := range documents {
		fmt.Fprintf(&b, "%d. %s\n", i+1, doc)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
