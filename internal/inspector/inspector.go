// Package inspector extracts static facts from a notebook code cell using
// a tree-sitter parse. Cell code is never executed.
package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/abhisek/celltutor/internal/agent"
)

// Inspector parses cells into agent.Facts. It is safe for concurrent use;
// each call gets its own parser.
type Inspector struct {
	logger *slog.Logger
}

// New creates an Inspector. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{logger: logger}
}

// Inspect returns the structural facts for cell. Unparseable source
// yields degraded facts holding only the raw lines; the error is reported
// through Facts.Err rather than returned.
func (i *Inspector) Inspect(cell agent.CodeCell) agent.Facts {
	lines := cell.Lines()
	facts := agent.Facts{
		Lines:       lines,
		Identifiers: map[string][]int{},
	}
	if len(lines) == 0 {
		return facts
	}

	src := []byte(maskMagics(lines))

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return i.degrade(cell, lines, fmt.Errorf("%w: %v", agent.ErrMalformedCell, err))
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		row := firstErrorRow(root)
		return i.degrade(cell, lines, fmt.Errorf("%w: syntax error at line %d", agent.ErrMalformedCell, row+1))
	}

	w := &walker{src: src, facts: &facts, tags: map[agent.Tag]bool{}}
	w.walk(root)

	for tag := range w.tags {
		facts.Tags = append(facts.Tags, tag)
	}
	slices.Sort(facts.Tags)
	facts.Imports = dedupSorted(facts.Imports)
	for name, rows := range facts.Identifiers {
		facts.Identifiers[name] = slices.Compact(rows)
	}
	return facts
}

func (i *Inspector) degrade(cell agent.CodeCell, lines []string, err error) agent.Facts {
	i.logger.Debug("inspector degraded to raw lines", "cell_id", cell.ID, "error", err)
	return agent.Facts{
		Lines:    lines,
		Degraded: true,
		Err:      err,
	}
}

// maskMagics blanks IPython magics and shell escapes so they do not break
// the parse, keeping line numbering intact.
func maskMagics(lines []string) string {
	out := make([]string, len(lines))
	for idx, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "!") {
			continue
		}
		out[idx] = l
	}
	return strings.Join(out, "\n") + "\n"
}

func firstErrorRow(n *sitter.Node) uint32 {
	if n.IsError() || n.IsMissing() {
		return n.StartPoint().Row
	}
	for idx := 0; idx < int(n.ChildCount()); idx++ {
		child := n.Child(idx)
		if child != nil && child.HasError() {
			return firstErrorRow(child)
		}
	}
	return n.StartPoint().Row
}

type walker struct {
	src   []byte
	facts *agent.Facts
	tags  map[agent.Tag]bool
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.src[n.StartByte():n.EndByte()])
}

func (w *walker) walk(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		w.tags[agent.TagFunctionDef] = true
		if name := n.ChildByFieldName("name"); name != nil {
			w.facts.Functions = append(w.facts.Functions, w.text(name))
		}
	case "class_definition":
		w.tags[agent.TagClassDef] = true
		if name := n.ChildByFieldName("name"); name != nil {
			w.facts.Classes = append(w.facts.Classes, w.text(name))
		}
	case "for_statement", "while_statement":
		w.tags[agent.TagLoop] = true
	case "if_statement", "conditional_expression":
		w.tags[agent.TagConditional] = true
	case "list_comprehension", "dictionary_comprehension", "set_comprehension", "generator_expression":
		w.tags[agent.TagComprehension] = true
	case "try_statement":
		w.tags[agent.TagTry] = true
	case "return_statement":
		w.tags[agent.TagReturn] = true
	case "import_statement":
		w.tags[agent.TagImport] = true
		for idx := 0; idx < int(n.NamedChildCount()); idx++ {
			child := n.NamedChild(idx)
			switch child.Type() {
			case "dotted_name":
				w.facts.Imports = append(w.facts.Imports, w.text(child))
			case "aliased_import":
				if name := child.ChildByFieldName("name"); name != nil {
					w.facts.Imports = append(w.facts.Imports, w.text(name))
				}
			}
		}
		return
	case "import_from_statement":
		w.tags[agent.TagImport] = true
		if mod := n.ChildByFieldName("module_name"); mod != nil {
			w.facts.Imports = append(w.facts.Imports, w.text(mod))
		}
		return
	case "identifier":
		name := w.text(n)
		row := int(n.StartPoint().Row)
		w.facts.Identifiers[name] = append(w.facts.Identifiers[name], row)
		return
	}

	for idx := 0; idx < int(n.NamedChildCount()); idx++ {
		w.walk(n.NamedChild(idx))
	}
}

func dedupSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
