package explain

import (
	"fmt"
	"strings"

	"github.com/abhisek/celltutor/internal/agent"
)

const systemPrompt = `You are a patient programming tutor. You explain notebook code cells to learners who are reading the code for the first time. You never run the code; reason only from its text.`

// numberedSource renders lines as "N | code", the format the line
// explanation prompt asks the model to echo back.
func numberedSource(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%d | %s\n", i, l)
	}
	return b.String()
}

func writeFacts(b *strings.Builder, facts agent.Facts) {
	if facts.Degraded {
		b.WriteString("\nNote: the cell could not be parsed; it may contain a syntax error.\n")
		return
	}
	if len(facts.Tags) > 0 {
		tags := make([]string, len(facts.Tags))
		for i, t := range facts.Tags {
			tags[i] = string(t)
		}
		fmt.Fprintf(b, "\nStructure: %s\n", strings.Join(tags, ", "))
	}
	if len(facts.Functions) > 0 {
		fmt.Fprintf(b, "Functions: %s\n", strings.Join(facts.Functions, ", "))
	}
	if len(facts.Classes) > 0 {
		fmt.Fprintf(b, "Classes: %s\n", strings.Join(facts.Classes, ", "))
	}
	if len(facts.Imports) > 0 {
		fmt.Fprintf(b, "Imports: %s\n", strings.Join(facts.Imports, ", "))
	}
}

func buildSummaryUserMessage(cell agent.CodeCell, facts agent.Facts) string {
	var b strings.Builder

	b.WriteString("Code cell:\n")
	b.WriteString(numberedSource(cell.Lines()))
	writeFacts(&b, facts)

	b.WriteString(`
Instructions:
Summarize what this cell does in 2-4 sentences. Mention the main steps in order and the result the cell produces. Use plain language and name the functions or variables involved.`)

	return b.String()
}

func buildLinesUserMessage(cell agent.CodeCell) string {
	var b strings.Builder

	b.WriteString("Code cell (each line is prefixed with its 0-based index):\n")
	b.WriteString(numberedSource(cell.Lines()))

	fmt.Fprintf(&b, `
Instructions:
Explain every line, in order. Return exactly %d items, one per index from 0 to %d. Keep each explanation to one sentence. For blank lines, say that the line is blank.`, cell.LineCount(), cell.LineCount()-1)

	return b.String()
}

// SimplifyInput carries the learner context for a re-explanation.
type SimplifyInput struct {
	PassRate float64

	// Missed lists prompts of questions the learner answered incorrectly.
	Missed []string
}

func buildSimplifyUserMessage(cell agent.CodeCell, original *agent.Explanation, in SimplifyInput) string {
	var b strings.Builder

	b.WriteString("Code cell:\n")
	b.WriteString(numberedSource(cell.Lines()))

	if original != nil && original.Summary != "" {
		fmt.Fprintf(&b, "\nPrevious explanation:\n%s\n", original.Summary)
	}

	fmt.Fprintf(&b, "\nLearner pass rate on this cell's quiz: %.0f%%\n", in.PassRate*100)
	if len(in.Missed) > 0 {
		b.WriteString("\nQuestions the learner got wrong:\n")
		for _, m := range in.Missed {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	b.WriteString(`
Instructions:
Explain the cell again, more simply than before. Focus on the ideas behind the questions the learner missed. Use a small concrete example where it helps.`)

	return b.String()
}

func buildAskUserMessage(cell agent.CodeCell, expl *agent.Explanation, question string) string {
	var b strings.Builder

	b.WriteString("Code cell:\n")
	b.WriteString(numberedSource(cell.Lines()))
	if expl != nil && expl.Summary != "" {
		fmt.Fprintf(&b, "\nExplanation already shown to the learner:\n%s\n", expl.Summary)
	}
	fmt.Fprintf(&b, "\nLearner question:\n%s\n", question)

	b.WriteString(`
Instructions:
Answer the learner's question about this cell in 2-4 sentences. If the question is unrelated to the cell, say so briefly.`)

	return b.String()
}
