// Package tutor is the interactive terminal session: it shows a cell's
// explanation, answers questions about it and runs the adaptive quiz.
package tutor

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/runtime"
	"github.com/abhisek/celltutor/internal/ui/components"
)

// MaxSaveRetries bounds how often a learner may retry saving one answer.
const MaxSaveRetries = 3

type mode int

const (
	modeLoading mode = iota
	modeReading
	modeAsking
	modeAnswering
	modeFeedback
	modeRetry
	modeIdle
)

// Model drives one runtime session. Runtime calls run as commands; the
// model only learns about session changes from their results, so the
// view never reads the session while a call is in flight.
type Model struct {
	ctx     context.Context
	rt      *runtime.Runtime
	agent   *agent.CellAgent
	learner string

	session *runtime.Session
	state   runtime.State
	mode    mode
	busy    bool

	explanation *agent.Explanation
	simplified  *agent.Simplification
	reply       string
	diagram     string

	question   *agent.QuizQuestion
	answered   *agent.QuizQuestion
	evaluation *agent.Evaluation
	answerKey  string
	saveTries  int

	input  components.TextInput
	choice components.MultiChoice

	notice string

	asked, correct int
	quitting       bool
	err            error
}

var _ tea.Model = (*Model)(nil)

func New(ctx context.Context, rt *runtime.Runtime, a *agent.CellAgent, learner string) *Model {
	return &Model{ctx: ctx, rt: rt, agent: a, learner: learner}
}

// Err is the error that ended the session, if any.
func (m *Model) Err() error { return m.err }

func (m *Model) Init() tea.Cmd {
	ctx, rt, a, learner := m.ctx, m.rt, m.agent, m.learner
	return func() tea.Msg {
		s, res, err := rt.Start(ctx, a, learner)
		return startedMsg{session: s, res: res, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.session = msg.session
		m.showExplanation(msg.res)
		return m, nil

	case resultMsg:
		m.busy = false
		return m.handleResult(msg)

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if m.typing() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}
	if m.busy || m.session == nil {
		return m, nil
	}

	switch m.mode {
	case modeReading:
		switch key {
		case "q":
			return m, m.call(opQuiz, m.rt.StartQuiz)
		case "v":
			return m, m.call(opVisual, m.rt.RequestVisual)
		case "a":
			return m.startAsking()
		case "esc", "x":
			return m.quit()
		}

	case modeAsking:
		switch key {
		case "esc":
			m.mode = m.returnMode()
			return m, nil
		case "enter":
			question := m.input.Value()
			if question == "" {
				return m, nil
			}
			return m, m.call(opAsk, func(ctx context.Context, s *runtime.Session) (runtime.Result, error) {
				return m.rt.Ask(ctx, s, question)
			})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case modeAnswering:
		if key == "esc" {
			return m.quit()
		}
		if m.hasChoices() {
			m.choice, _ = m.choice.Update(msg)
			if m.choice.Submitted {
				return m, m.submit(m.choice.Value())
			}
			return m, nil
		}
		if key == "enter" {
			if answer := m.input.Value(); answer != "" {
				return m, m.submit(answer)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case modeFeedback:
		if m.state == runtime.StateQuizzing && m.question != nil {
			return m, m.beginQuestion(m.question)
		}
		m.mode = modeIdle
		return m, nil

	case modeRetry:
		switch key {
		case "y", "enter":
			return m, m.call(opRetry, m.rt.RetryPending)
		case "n", "esc":
			return m.quit()
		}

	case modeIdle:
		switch key {
		case "r":
			return m, m.call(opExplain, m.rt.Explain)
		case "a":
			return m.startAsking()
		case "esc", "x", "q":
			return m.quit()
		}
	}
	return m, nil
}

func (m *Model) handleResult(msg resultMsg) (tea.Model, tea.Cmd) {
	switch msg.op {
	case opExplain:
		if errors.Is(msg.err, agent.ErrGenerationUnavailable) {
			m.warnNotice("The explanation could not be prepared right now.")
			return m, nil
		}
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.showExplanation(msg.res)

	case opVisual:
		if errors.Is(msg.err, agent.ErrVisualUnavailable) {
			m.warnNotice("No diagram is available for this cell.")
			return m, nil
		}
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.diagram = "(in memory)"
		if img := msg.res.Image; img != nil && img.Path != "" {
			m.diagram = img.Path
		}

	case opAsk:
		m.mode = m.returnMode()
		if errors.Is(msg.err, agent.ErrGenerationUnavailable) {
			m.warnNotice("The tutor could not answer right now.")
			return m, nil
		}
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.reply = msg.res.Answer

	case opQuiz:
		if errors.Is(msg.err, agent.ErrGenerationUnavailable) {
			m.warnNotice("Quiz questions could not be prepared right now.")
			return m, nil
		}
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.state = msg.res.State
		if msg.res.Question == nil {
			m.mode = modeIdle
			m.warnNotice("This cell has no quiz questions left for you.")
			return m, nil
		}
		return m, m.beginQuestion(msg.res.Question)

	case opAnswer, opRetry:
		return m.handleAnswer(msg)
	}
	return m, nil
}

func (m *Model) handleAnswer(msg resultMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, agent.ErrPersistenceFailed):
		m.state = msg.res.State
		m.saveTries++
		if m.saveTries >= MaxSaveRetries {
			return m.fail(msg.err)
		}
		m.mode = modeRetry
		m.warnNotice("Your answer could not be saved.")
		return m, nil

	case msg.op == opAnswer && errors.Is(msg.err, agent.ErrGenerationUnavailable):
		// Nothing was recorded; the question stays open.
		m.choice.Submitted = false
		m.warnNotice("Your answer could not be checked right now. Submit it again to retry.")
		return m, nil

	case msg.err != nil:
		return m.fail(msg.err)
	}

	m.saveTries = 0
	m.asked++
	if msg.res.Evaluation != nil && msg.res.Evaluation.Correct {
		m.correct++
	}
	m.answered = m.question
	m.evaluation = msg.res.Evaluation
	m.state = msg.res.State
	m.question = msg.res.Question
	m.mode = modeFeedback
	return m, nil
}

// call runs fn against the session as a command.
func (m *Model) call(o op, fn func(context.Context, *runtime.Session) (runtime.Result, error)) tea.Cmd {
	m.busy = true
	m.notice = ""
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		res, err := fn(ctx, s)
		return resultMsg{op: o, res: res, err: err}
	}
}

// submit sends answer under the question's idempotency key, so a resend
// after a failed save cannot record the attempt twice.
func (m *Model) submit(answer string) tea.Cmd {
	key := m.answerKey
	return m.call(opAnswer, func(ctx context.Context, s *runtime.Session) (runtime.Result, error) {
		return m.rt.SubmitAnswer(ctx, s, answer, key)
	})
}

func (m *Model) beginQuestion(q *agent.QuizQuestion) tea.Cmd {
	m.question = q
	m.evaluation = nil
	m.answerKey = uuid.NewString()
	m.mode = modeAnswering
	if len(q.Expected.Choices) > 0 {
		m.choice = components.NewMultiChoice(q.Expected.Choices)
		return nil
	}
	m.input = components.NewTextInput("Type your answer...", 200)
	return m.input.Init()
}

func (m *Model) startAsking() (tea.Model, tea.Cmd) {
	m.reply = ""
	m.notice = ""
	m.mode = modeAsking
	m.input = components.NewTextInput("What would you like to know about this code?", 300)
	return m, m.input.Init()
}

func (m *Model) showExplanation(res runtime.Result) {
	m.state = res.State
	m.explanation = res.Explanation
	m.simplified = res.Simplified
	m.reply = ""
	m.mode = modeReading
}

// returnMode is where asking goes back to: Ask never changes state.
func (m *Model) returnMode() mode {
	if m.state == runtime.StateIdle {
		return modeIdle
	}
	return modeReading
}

func (m *Model) typing() bool {
	return m.mode == modeAsking || (m.mode == modeAnswering && !m.hasChoices())
}

func (m *Model) hasChoices() bool {
	return m.question != nil && len(m.question.Expected.Choices) > 0
}

func (m *Model) warnNotice(text string) {
	m.notice = text
}

// quit abandons the session when the runtime allows it. A session left
// in Explaining or Evaluating simply ends with the program.
func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.session != nil && !m.busy && (m.state == runtime.StateIdle || m.state == runtime.StateQuizzing) {
		_, _ = m.rt.Abandon(m.session)
	}
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.quitting = true
	return m, tea.Quit
}
