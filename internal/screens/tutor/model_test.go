package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/builder"
	"github.com/abhisek/celltutor/internal/explain"
	"github.com/abhisek/celltutor/internal/llm"
	"github.com/abhisek/celltutor/internal/quiz"
	"github.com/abhisek/celltutor/internal/registry"
	"github.com/abhisek/celltutor/internal/runtime"
	"github.com/abhisek/celltutor/internal/visual"
)

const loopSource = `total = 0
for i in range(3):
    total += i
print(total)
`

// flakyJudge fails the first n calls as if the model judge were down.
type flakyJudge struct {
	failures int
}

func (j *flakyJudge) Judge(ctx context.Context, q agent.QuizQuestion, answer string) (agent.Evaluation, error) {
	if j.failures > 0 {
		j.failures--
		return agent.Evaluation{}, fmt.Errorf("%w: judge: provider down", agent.ErrGenerationUnavailable)
	}
	return quiz.ExactJudge{}.Judge(ctx, q, answer)
}

type harness struct {
	m   *Model
	reg *registry.Memory
}

func newHarness(t *testing.T, judge quiz.AnswerJudge, responses ...llm.MockResponse) *harness {
	t.Helper()
	mock := llm.NewMockProvider(responses...)
	explainer := explain.NewService(mock, explain.DefaultConfig())
	b := builder.New(nil, explainer, quiz.New(mock, quiz.DefaultConfig(), nil), &visual.MockRenderer{}, nil)
	reg := registry.NewMemory()
	t.Cleanup(func() { reg.Close() })
	if judge == nil {
		judge = quiz.ExactJudge{}
	}
	rt := runtime.New(b, explainer, judge, reg, runtime.DefaultConfig(), nil)

	a := agent.New(agent.NewCodeCell("loop", loopSource), agent.Facts{}, agent.DetailCoarse)
	a.SetExplanation(&agent.Explanation{Summary: "Sums 0, 1 and 2, then prints the total."})
	a.SetQuiz([]agent.QuizQuestion{
		{
			ID:       "q1",
			Prompt:   "What does the loop add to total?",
			Expected: agent.AnswerSpec{Answer: "yes", Kind: agent.AnswerExact},
			Tier:     agent.TierMedium,
		},
		{
			ID:       "q2",
			Prompt:   "What is printed?",
			Expected: agent.AnswerSpec{Answer: "3", Kind: agent.AnswerExact, Choices: []string{"0", "3", "6"}},
			Tier:     agent.TierMedium,
		},
	})

	h := &harness{m: New(t.Context(), rt, a, "ada"), reg: reg}
	h.settle(t, h.m.Init())
	return h
}

// settle runs a runtime command and feeds its result back to the model.
func (h *harness) settle(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	switch msg.(type) {
	case startedMsg, resultMsg:
	default:
		t.Fatalf("unexpected message %T", msg)
	}
	h.m.Update(msg)
}

func (h *harness) press(msg tea.KeyPressMsg) tea.Cmd {
	_, cmd := h.m.Update(msg)
	return cmd
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func (h *harness) answerText(t *testing.T, answer string) {
	t.Helper()
	h.m.input.Model.SetValue(answer)
	h.settle(t, h.press(specialKey(tea.KeyEnter)))
}

func TestStart_ShowsExplanation(t *testing.T) {
	h := newHarness(t, nil)
	if h.m.mode != modeReading {
		t.Fatalf("mode = %v, want reading", h.m.mode)
	}
	if view := h.m.render(); !strings.Contains(view, "Sums 0, 1 and 2") {
		t.Errorf("view does not show the explanation:\n%s", view)
	}
}

func TestQuiz_TextThenChoice(t *testing.T) {
	h := newHarness(t, nil)

	h.settle(t, h.press(keyPress('q')))
	if h.m.mode != modeAnswering || h.m.hasChoices() {
		t.Fatalf("expected a free-text question, mode = %v", h.m.mode)
	}

	h.answerText(t, "yes")
	if h.m.mode != modeFeedback || h.m.correct != 1 {
		t.Fatalf("after first answer: mode = %v correct = %d", h.m.mode, h.m.correct)
	}

	h.press(keyPress(' '))
	if h.m.mode != modeAnswering || !h.m.hasChoices() {
		t.Fatalf("expected the choice question, mode = %v", h.m.mode)
	}
	if view := h.m.render(); !strings.Contains(view, "2) 3") {
		t.Errorf("choices not rendered:\n%s", view)
	}

	h.settle(t, h.press(keyPress('2')))
	if h.m.evaluation == nil || !h.m.evaluation.Correct {
		t.Fatalf("choice answer evaluation = %+v", h.m.evaluation)
	}

	h.press(keyPress(' '))
	if h.m.mode != modeIdle {
		t.Errorf("exhausted bank should leave the quiz, mode = %v", h.m.mode)
	}
	history, _ := h.reg.History(t.Context(), "ada", "loop")
	if len(history) != 2 {
		t.Errorf("recorded %d attempts, want 2", len(history))
	}
}

func TestQuiz_JudgeUnavailableKeepsQuestionOpen(t *testing.T) {
	h := newHarness(t, &flakyJudge{failures: 1})
	h.settle(t, h.press(keyPress('q')))

	h.answerText(t, "yes")
	if h.m.quitting || h.m.Err() != nil {
		t.Fatalf("session ended on an unavailable judge: %v", h.m.Err())
	}
	if h.m.mode != modeAnswering || h.m.notice == "" {
		t.Fatalf("mode = %v notice = %q", h.m.mode, h.m.notice)
	}
	if h.m.session.State() != runtime.StateQuizzing {
		t.Errorf("session state = %v", h.m.session.State())
	}

	h.answerText(t, "yes")
	if h.m.mode != modeFeedback || h.m.correct != 1 {
		t.Errorf("resubmit: mode = %v correct = %d", h.m.mode, h.m.correct)
	}
}

func TestQuiz_ChoiceResubmitAfterJudgeFailure(t *testing.T) {
	judge := &flakyJudge{}
	h := newHarness(t, judge)
	h.settle(t, h.press(keyPress('q')))
	h.answerText(t, "yes")
	h.press(keyPress(' '))

	judge.failures = 1
	h.settle(t, h.press(keyPress('2')))
	if h.m.mode != modeAnswering || h.m.choice.Submitted {
		t.Fatalf("mode = %v submitted = %v", h.m.mode, h.m.choice.Submitted)
	}
	h.settle(t, h.press(keyPress('2')))
	if h.m.mode != modeFeedback || !h.m.evaluation.Correct {
		t.Errorf("mode = %v evaluation = %+v", h.m.mode, h.m.evaluation)
	}
}

func TestQuiz_SaveFailureOffersRetry(t *testing.T) {
	h := newHarness(t, nil)
	fails := 1
	h.reg.FailRecord = func(agent.Attempt, string) error {
		if fails > 0 {
			fails--
			return errors.New("database is locked")
		}
		return nil
	}
	h.settle(t, h.press(keyPress('q')))

	h.answerText(t, "yes")
	if h.m.mode != modeRetry {
		t.Fatalf("mode = %v, want retry", h.m.mode)
	}

	h.settle(t, h.press(keyPress('y')))
	if h.m.mode != modeFeedback || h.m.correct != 1 {
		t.Fatalf("after retry: mode = %v correct = %d", h.m.mode, h.m.correct)
	}
	history, _ := h.reg.History(t.Context(), "ada", "loop")
	if len(history) != 1 {
		t.Errorf("recorded %d attempts, want 1", len(history))
	}
}

func TestQuiz_SaveFailureGivesUp(t *testing.T) {
	h := newHarness(t, nil)
	h.reg.FailRecord = func(agent.Attempt, string) error { return errors.New("disk full") }
	h.settle(t, h.press(keyPress('q')))

	h.answerText(t, "yes")
	for i := 1; i < MaxSaveRetries; i++ {
		h.settle(t, h.press(keyPress('y')))
	}
	if !h.m.quitting || !errors.Is(h.m.Err(), agent.ErrPersistenceFailed) {
		t.Errorf("quitting = %v err = %v", h.m.quitting, h.m.Err())
	}
}

func TestAsk_ReturnsToExplanation(t *testing.T) {
	h := newHarness(t, nil, llm.MockResponse{Content: json.RawMessage(`{"answer": "range(3) yields 0, 1, 2."}`)})

	h.press(keyPress('a'))
	if h.m.mode != modeAsking {
		t.Fatalf("mode = %v, want asking", h.m.mode)
	}
	h.answerText(t, "What does range(3) give?")
	if h.m.mode != modeReading {
		t.Fatalf("mode = %v, want reading", h.m.mode)
	}
	if view := h.m.render(); !strings.Contains(view, "range(3) yields 0, 1, 2.") {
		t.Errorf("answer not shown:\n%s", view)
	}
}

func TestAsk_UnavailableWarns(t *testing.T) {
	h := newHarness(t, nil, llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	h.press(keyPress('a'))
	h.answerText(t, "Why?")
	if h.m.quitting || h.m.mode != modeReading || h.m.notice == "" {
		t.Errorf("quitting = %v mode = %v notice = %q", h.m.quitting, h.m.mode, h.m.notice)
	}
}

func TestEscAbandonsDuringQuiz(t *testing.T) {
	h := newHarness(t, nil)
	h.settle(t, h.press(keyPress('q')))

	cmd := h.press(specialKey(tea.KeyEscape))
	if cmd == nil || !h.m.quitting {
		t.Fatal("expected quit")
	}
	if !h.m.session.Closed() {
		t.Error("session should be abandoned")
	}
}

func TestKeysIgnoredWhileBusy(t *testing.T) {
	h := newHarness(t, nil)
	cmd := h.press(keyPress('q'))
	if h.press(keyPress('v')) != nil {
		t.Error("a second call started while the first was running")
	}
	h.settle(t, cmd)
	if h.m.mode != modeAnswering {
		t.Errorf("mode = %v", h.m.mode)
	}
}
