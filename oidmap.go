package gitsubset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// OidMap maps original object ids to their rewritten counterparts.
// A value of [plumbing.ZeroHash] is a tombstone: the original object has no
// surviving counterpart.
//
// Keys and values are not guaranteed to be disjoint, a mapping like
// A -> B -> C is possible. [OidMap.Resolve] follows such chains to the
// deepest value, which is what keeps parent remapping correct when empty
// commits are pruned.
type OidMap struct {
	m map[plumbing.Hash]plumbing.Hash
}

// NewOidMap creates an empty map.
func NewOidMap() *OidMap {
	return &OidMap{
		m: make(map[plumbing.Hash]plumbing.Hash),
	}
}

// LoadOidMap reads a map from r. Each line is either "<oid> <oid>" for a
// remap or a single "<oid>" for a tombstone. Blank lines, comments and
// malformed lines are skipped silently.
func LoadOidMap(r io.Reader) (*OidMap, error) {
	result := NewOidMap()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)

		k, err := DecodeHashHex(fields[0])
		if err != nil {
			continue
		}

		switch len(fields) {
		case 1:
			result.m[k] = plumbing.ZeroHash
		case 2:
			v, err := DecodeHashHex(fields[1])
			if err != nil {
				continue
			}
			result.m[k] = v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Persist writes the map to w, one entry per line, tombstones without a
// second field. Entry order is unspecified.
func (m *OidMap) Persist(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for k, v := range m.m {
		var err error
		if v.IsZero() {
			_, err = fmt.Fprintf(bw, "%s\n", k)
		} else {
			_, err = fmt.Fprintf(bw, "%s %s\n", k, v)
		}
		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Len returns the number of entries.
func (m *OidMap) Len() int {
	return len(m.m)
}

// Get returns the directly mapped value for k without following chains.
// The second return is false when k is not a key. A returned
// [plumbing.ZeroHash] is a tombstone.
func (m *OidMap) Get(k plumbing.Hash) (plumbing.Hash, bool) {
	v, ok := m.m[k]

	return v, ok
}

// Resolve follows the chain starting at k to its terminal value: a value
// that is not itself a key, a tombstone, or a self-mapping. The walk is
// bounded by a visited set so it terminates even on a cyclic, hand-edited
// map, where it returns the last value before the cycle closes.
func (m *OidMap) Resolve(k plumbing.Hash) (plumbing.Hash, bool) {
	v, ok := m.m[k]
	if !ok {
		return plumbing.ZeroHash, false
	}

	visited := NewHashSet(k)
	for {
		if v.IsZero() {
			return v, true
		}
		if _, seen := visited[v]; seen {
			return v, true
		}

		next, ok := m.m[v]
		if !ok {
			return v, true
		}

		visited[v] = empty{}
		v = next
	}
}

// Insert upserts k -> v and returns the previous value, if any. Use
// [plumbing.ZeroHash] as v to record a tombstone.
func (m *OidMap) Insert(k, v plumbing.Hash) (plumbing.Hash, bool) {
	prev, ok := m.m[k]
	m.m[k] = v

	return prev, ok
}
