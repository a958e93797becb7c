package quiz

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/celltutor/internal/agent"
)

const systemPrompt = `You are a programming tutor writing quiz questions about a single notebook code cell.

Rules:
- Every question must be answerable from the code alone, without running it.
- Refer to names that appear in the code.
- Prefer "exact" questions with a short unambiguous answer. Use "free_text" only for questions that need an explanation.
- For multiple choice, give 2-5 options where exactly one is correct, and put the text of the correct option in "answer".
- Do not repeat any question from the "already asked" list.`

// buildUserMessage constructs the user message from GenerateInput and Config limits.
func buildUserMessage(input GenerateInput, cfg Config) string {
	var b strings.Builder

	b.WriteString("Code cell:\n")
	for i, l := range input.Cell.Lines() {
		fmt.Fprintf(&b, "%d | %s\n", i, l)
	}

	if names := input.Facts.IdentifierNames(); len(names) > 0 {
		fmt.Fprintf(&b, "\nNames used: %s\n", strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, "\nDifficulty tier: %s\n", input.Tier)
	fmt.Fprintf(&b, "Guidance: %s\n", tierGuidance[input.Tier])

	b.WriteString("\nAlready asked:\n")
	b.WriteString(buildDedup(input.PriorQuestions, cfg.MaxPriorQuestions))

	return b.String()
}

// buildDedup formats prior questions for the prompt, respecting the max limit.
// Returns "None" if there are no prior questions.
func buildDedup(prior []string, max int) string {
	if len(prior) == 0 {
		return "None"
	}

	// Keep only the most recent N questions.
	if max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}

	var b strings.Builder
	for i, q := range prior {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}

const judgeSystemPrompt = `You are grading a learner's answer to a question about a code cell. Be fair but strict: the answer must show the learner understood the code.`

var judgeUserTemplate = template.Must(template.New("judge").Parse(`Question: {{.Question.Prompt}}
Expected answer: {{.Question.Expected.Answer}}
{{if .Question.Explanation}}Why: {{.Question.Explanation}}
{{end}}Learner's answer: {{.Answer}}
`))

func buildJudgeMessage(q agent.QuizQuestion, answer string) (string, error) {
	var buf bytes.Buffer
	err := judgeUserTemplate.Execute(&buf, struct {
		Question agent.QuizQuestion
		Answer   string
	}{q, answer})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
