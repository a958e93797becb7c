package builder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/visual"
)

const maxVariables = 12

// VisualSpec builds the diagram request for a cell: one node per statement
// line, the variables it uses, and an animation frame per loop or function
// header.
func VisualSpec(cell agent.CodeCell, facts agent.Facts) visual.Spec {
	spec := visual.Spec{CellID: cell.ID, Title: title(facts)}

	lines := facts.Lines
	if lines == nil {
		lines = cell.Lines()
	}
	for i, line := range lines {
		code := strings.TrimSpace(line)
		if code == "" || strings.HasPrefix(code, "#") {
			continue
		}
		kind := nodeKind(code)
		spec.Nodes = append(spec.Nodes, visual.Node{
			Label: fmt.Sprintf("%d: %s", i+1, code),
			Kind:  kind,
		})
		if kind == visual.NodeLoop || kind == visual.NodeFunction {
			spec.Frames = append(spec.Frames, code)
		}
	}

	skip := make(map[string]bool)
	for _, name := range slices.Concat(facts.Functions, facts.Classes, facts.Imports) {
		skip[name] = true
	}
	for _, name := range facts.IdentifierNames() {
		if skip[name] {
			continue
		}
		if len(spec.Variables) == maxVariables {
			break
		}
		spec.Variables = append(spec.Variables, name)
	}
	return spec
}

func title(facts agent.Facts) string {
	switch {
	case facts.Degraded:
		return "cell (unparsed)"
	case len(facts.Functions) > 0:
		return "function " + strings.Join(facts.Functions, ", ")
	case len(facts.Classes) > 0:
		return "class " + strings.Join(facts.Classes, ", ")
	default:
		return "cell flow"
	}
}

func nodeKind(code string) visual.NodeKind {
	switch {
	case strings.HasPrefix(code, "def ") || strings.HasPrefix(code, "async def "):
		return visual.NodeFunction
	case strings.HasPrefix(code, "class "):
		return visual.NodeClass
	case strings.HasPrefix(code, "for ") || strings.HasPrefix(code, "while ") || strings.HasPrefix(code, "async for "):
		return visual.NodeLoop
	case strings.HasPrefix(code, "if ") || strings.HasPrefix(code, "elif ") || code == "else:" ||
		strings.HasPrefix(code, "try:") || strings.HasPrefix(code, "except"):
		return visual.NodeBranch
	case strings.HasPrefix(code, "import ") || strings.HasPrefix(code, "from "):
		return visual.NodeImport
	default:
		return visual.NodeStatic
	}
}
