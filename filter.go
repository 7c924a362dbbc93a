package gitsubset

import (
	"bufio"
	"encoding/hex"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/zeebo/xxh3"
)

// ExcludeSentinel is the line in a filter file that switches all subsequent
// paths from include to exclude semantics.
const ExcludeSentinel = "# !EXCLUDES!"

// Filter is a hierarchical include/exclude rule set over path components.
//
// A node without children is terminal: it fully includes everything beneath
// its path, or fully excludes it when the node is in exclude mode. Children
// are matched in lexicographic order with [Filter.Match]. A freshly created
// filter is an include-mode root with no children, which selects nothing
// until paths are inserted.
type Filter struct {
	exclude  bool
	children map[string]*Filter
}

// NewFilter creates an empty include-mode filter.
func NewFilter() *Filter {
	return newFilterNode(false)
}

func newFilterNode(exclude bool) *Filter {
	return &Filter{
		exclude:  exclude,
		children: make(map[string]*Filter),
	}
}

// LoadFilterFile loads a filter from the file at path. See [LoadFilter] for
// the line grammar.
func LoadFilterFile(path string) (*Filter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadFilter(f)
}

// LoadFilter reads a filter definition, one relative path per line.
// Blank lines and lines starting with "#" are ignored. The sentinel line
// [ExcludeSentinel] switches the remaining lines to exclude semantics.
// Malformed paths are the caller's responsibility, no validation happens
// here.
func LoadFilter(r io.Reader) (*Filter, error) {
	result := NewFilter()
	exclude := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == ExcludeSentinel:
			exclude = true
			continue
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		}

		if exclude {
			result.InsertExclude(line)
		} else {
			result.InsertInclude(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// pathComponents splits path on "/" and drops the components that do not
// name an entry ("", "." and "..").
func pathComponents(path string) []string {
	split := strings.Split(path, "/")
	result := make([]string, 0, len(split))
	for _, c := range split {
		switch c {
		case "", ".", "..":
			continue
		}
		result = append(result, c)
	}

	return result
}

// InsertInclude adds a path whose subtree should be kept. Descending stops
// at an exclude-mode node, exclusion wins over later include attempts
// beneath it. The final node becomes terminal.
func (f *Filter) InsertInclude(path string) {
	cur := f
	for _, component := range pathComponents(path) {
		if cur.exclude {
			break
		}
		next, ok := cur.children[component]
		if !ok {
			next = newFilterNode(false)
			cur.children[component] = next
		}
		cur = next
	}

	clear(cur.children)
}

// InsertExclude adds a path whose subtree should be dropped. The path can
// narrow an existing include subtree by adding exclude children beneath its
// terminal node. An exclude path that does not pass through the include
// structure is a no-op, unmatched entries are dropped by include-mode nodes
// anyway.
func (f *Filter) InsertExclude(path string) {
	components := pathComponents(path)

	cur := f
	for i, component := range components {
		if cur.IsEmpty() {
			cur.exclude = true
			cur.insertExcluded(components[i:])
			return
		}
		if cur.exclude {
			cur.insertExcluded(components[i:])
			return
		}
		next, ok := cur.children[component]
		if !ok {
			return
		}
		cur = next
	}
}

// insertExcluded descends along components creating exclude-mode nodes,
// stopping early at an existing terminal node. The final node is made
// terminal.
func (f *Filter) insertExcluded(components []string) {
	cur := f
	for _, component := range components {
		next, ok := cur.children[component]
		if ok {
			cur = next
			if cur.IsEmpty() {
				break
			}
			continue
		}
		next = newFilterNode(true)
		cur.children[component] = next
		cur = next
	}

	clear(cur.children)
}

// IsEmpty reports whether the node is terminal, i.e. has no children.
func (f *Filter) IsEmpty() bool {
	return len(f.children) == 0
}

// Exclude reports whether the node is in exclude mode.
func (f *Filter) Exclude() bool {
	return f.exclude
}

// matchName matches a tree entry name against a single filter component.
// Only exact equality and the full wildcards "" and "**" are supported.
func matchName(pattern, name string) bool {
	return pattern == "" || pattern == "**" || pattern == name
}

// Match returns the child filter matching the entry name, scanning children
// in lexicographic order, or nil when nothing matches.
func (f *Filter) Match(name string) *Filter {
	for _, pattern := range f.sortedChildren() {
		if matchName(pattern, name) {
			return f.children[pattern]
		}
	}

	return nil
}

func (f *Filter) sortedChildren() []string {
	keys := make([]string, 0, len(f.children))
	for k := range f.children {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// Hash returns a stable hash of the filter structure, the component names
// and exclude flags of every node in lexicographic order. It is rendered as
// 32 fixed-width hex characters and names the persisted [OidMap], so a
// changed filter never reuses a stale map.
func (f *Filter) Hash() string {
	h := xxh3.New()
	f.hashInto(h)

	sum := h.Sum128().Bytes()

	return hex.EncodeToString(sum[:])
}

func (f *Filter) hashInto(h *xxh3.Hasher) {
	if f.exclude {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	for _, name := range f.sortedChildren() {
		h.WriteString(name)
		h.Write([]byte{0})
		f.children[name].hashInto(h)
		h.Write([]byte{'\n'})
	}
}
