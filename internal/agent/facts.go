package agent

import "slices"

// Tag is a coarse structural property of a cell.
type Tag string

const (
	TagLoop          Tag = "has_loop"
	TagFunctionDef   Tag = "has_function_def"
	TagClassDef      Tag = "has_class_def"
	TagConditional   Tag = "has_conditional"
	TagImport        Tag = "has_import"
	TagComprehension Tag = "has_comprehension"
	TagTry           Tag = "has_try"
	TagReturn        Tag = "has_return"
)

// Facts holds static information extracted from a cell without executing
// it. Degraded facts carry raw lines only.
type Facts struct {
	Lines []string

	// Identifiers maps each identifier to the 0-based line indexes it
	// occurs on, in ascending order.
	Identifiers map[string][]int

	Functions []string
	Classes   []string
	Imports   []string

	// Tags is sorted and free of duplicates.
	Tags []Tag

	// Degraded is true when the source could not be parsed. Err then
	// wraps ErrMalformedCell.
	Degraded bool
	Err      error
}

// Has reports whether the facts carry tag.
func (f Facts) Has(tag Tag) bool {
	_, found := slices.BinarySearch(f.Tags, tag)
	return found
}

// IdentifierNames returns the identifier names in sorted order.
func (f Facts) IdentifierNames() []string {
	names := make([]string, 0, len(f.Identifiers))
	for name := range f.Identifiers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
