package tutor

import "github.com/abhisek/celltutor/internal/runtime"

// op names the runtime call a resultMsg answers.
type op int

const (
	opExplain op = iota
	opVisual
	opAsk
	opQuiz
	opAnswer
	opRetry
)

// startedMsg is sent once the session has its first explanation.
type startedMsg struct {
	session *runtime.Session
	res     runtime.Result
	err     error
}

// resultMsg carries the outcome of a runtime call made off the UI loop.
type resultMsg struct {
	op  op
	res runtime.Result
	err error
}
