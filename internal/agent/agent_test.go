package agent

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/abhisek/celltutor/internal/visual"
)

func TestCodeCell_Lines(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"empty", "", 0},
		{"single", "x = 1", 1},
		{"trailing newline", "x = 1\ny = 2\n", 2},
		{"crlf", "x = 1\r\ny = 2", 2},
		{"blank interior line", "x = 1\n\ny = 2", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCodeCell("c1", tt.source)
			if got := c.LineCount(); got != tt.want {
				t.Errorf("LineCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeCell_LinesCRLFTrailing(t *testing.T) {
	got := NewCodeCell("c1", "a\r\nb\r\n").Lines()
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Lines() = %q, want [a b]", got)
	}
}

func TestNewCodeCell_ContentID(t *testing.T) {
	a := NewCodeCell("", "print(1)")
	b := NewCodeCell("", "print(1)")
	c := NewCodeCell("", "print(2)")
	if a.ID != b.ID {
		t.Errorf("identical sources got different IDs: %q vs %q", a.ID, b.ID)
	}
	if a.ID == c.ID {
		t.Errorf("different sources share ID %q", a.ID)
	}
	if named := NewCodeCell("mine", "print(1)"); named.ID != "mine" {
		t.Errorf("explicit ID not kept: %q", named.ID)
	}
}

func TestTier_RaiseLower(t *testing.T) {
	if TierHard.Raise() != TierHard {
		t.Error("hard should stay hard")
	}
	if TierEasy.Lower() != TierEasy {
		t.Error("easy should stay easy")
	}
	if TierEasy.Raise() != TierMedium || TierHard.Lower() != TierMedium {
		t.Error("unexpected step")
	}
}

func TestTier_Text(t *testing.T) {
	for _, tier := range AllTiers() {
		b, err := tier.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", tier, err)
		}
		var got Tier
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("unmarshal %q: %v", b, err)
		}
		if got != tier {
			t.Errorf("got %v, want %v", got, tier)
		}
	}
	if _, err := ParseTier("impossible"); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestFacts_Has(t *testing.T) {
	f := Facts{Tags: []Tag{TagFunctionDef, TagLoop}}
	if !f.Has(TagLoop) {
		t.Error("expected has_loop")
	}
	if f.Has(TagClassDef) {
		t.Error("unexpected has_class_def")
	}
}

func TestCellAgent_WriteOnce(t *testing.T) {
	a := New(NewCodeCell("c1", "x = 1"), Facts{}, DetailCoarse)

	if a.Explanation() != nil || a.HasQuiz() || a.HasVisual() {
		t.Fatal("new agent should have empty caches")
	}

	first := &Explanation{Summary: "first"}
	if !a.SetExplanation(first) {
		t.Fatal("first SetExplanation should win")
	}
	if a.SetExplanation(&Explanation{Summary: "second"}) {
		t.Error("second SetExplanation should be rejected")
	}
	if a.Explanation().Summary != "first" {
		t.Errorf("explanation overwritten: %q", a.Explanation().Summary)
	}

	if !a.SetQuiz(nil) {
		t.Fatal("SetQuiz(nil) should store an empty bank")
	}
	if !a.HasQuiz() || len(a.Quiz()) != 0 {
		t.Error("expected empty but present quiz bank")
	}
	if a.SetQuiz([]QuizQuestion{{ID: "q1"}}) {
		t.Error("second SetQuiz should be rejected")
	}

	if a.SetVisual(nil) {
		t.Error("SetVisual(nil) should be rejected")
	}
	if !a.SetVisual(&visual.Image{Format: "png"}) {
		t.Error("first SetVisual should win")
	}
}

func TestCellAgent_ConcurrentSetExplanation(t *testing.T) {
	a := New(NewCodeCell("c1", "x = 1"), Facts{}, DetailCoarse)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.SetExplanation(&Explanation{Summary: "x"}) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestCellAgent_QuizIsCopied(t *testing.T) {
	a := New(NewCodeCell("c1", "x = 1"), Facts{}, DetailCoarse)
	a.SetQuiz([]QuizQuestion{{ID: "q1", Prompt: "original"}})

	q := a.Quiz()
	q[0].Prompt = "mutated"

	got, ok := a.Question("q1")
	if !ok {
		t.Fatal("question q1 not found")
	}
	if got.Prompt != "original" {
		t.Errorf("bank mutated through returned slice: %q", got.Prompt)
	}
	if _, ok := a.Question("missing"); ok {
		t.Error("unexpected question found")
	}
}

func TestManifest_RoundTrip(t *testing.T) {
	a := New(NewCodeCell("c1", "x = 1"), Facts{}, DetailLineByLine)
	a.SetExplanation(&Explanation{Summary: "assigns one"})
	a.SetQuiz([]QuizQuestion{{ID: "q1", Tier: TierEasy}})
	a.SetVisual(&visual.Image{Format: "png", Path: "/tmp/c1_diagram.png"})

	m := a.Manifest()
	if m.VisualPath != "/tmp/c1_diagram.png" {
		t.Errorf("visual path = %q", m.VisualPath)
	}

	restored := FromManifest(m, Facts{})
	if restored.Cell().ID != "c1" || restored.Detail() != DetailLineByLine {
		t.Errorf("cell/detail not restored")
	}
	if restored.Explanation().Summary != "assigns one" {
		t.Errorf("explanation not restored")
	}
	if len(restored.Quiz()) != 1 {
		t.Errorf("quiz not restored")
	}
	if !restored.CreatedAt().Equal(a.CreatedAt()) {
		t.Errorf("created_at not restored")
	}
}

func TestSimplifications(t *testing.T) {
	a := New(NewCodeCell("c1", "x = 1"), Facts{}, DetailCoarse)
	a.SetExplanation(&Explanation{Summary: "orig"})
	a.AppendSimplification(Simplification{LearnerID: "l1", Text: "simpler"})

	if got := a.Simplifications(); len(got) != 1 || got[0].Text != "simpler" {
		t.Errorf("unexpected simplifications: %+v", got)
	}
	if a.Explanation().Summary != "orig" {
		t.Error("simplification replaced the original explanation")
	}
}

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrGenerationUnavailable, ErrVisualUnavailable, ErrPersistenceFailed,
		ErrMalformedCell, ErrInvalidTransition, ErrUnknownQuestion,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
