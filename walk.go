package gitsubset

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Ancestors collects the hashes of from and every commit reachable from it.
// A zero from yields an empty set.
func Ancestors(ctx context.Context, s storer.EncodedObjectStorer, from plumbing.Hash) (HashSet, error) {
	result := NewHashSet()
	if from.IsZero() {
		return result, nil
	}

	stack := []plumbing.Hash{from}
	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := result[h]; seen {
			continue
		}
		result[h] = empty{}

		c, err := object.GetCommit(s, h)
		if err != nil {
			return nil, fmt.Errorf("cannot get commit %s: %w", h, err)
		}
		stack = append(stack, c.ParentHashes...)
	}

	return result, nil
}

type walkNode struct {
	data      *object.Commit
	nextvisit int
}

type commitWalker struct {
	seen    HashSet
	exclude HashSet
	stack   []*walkNode
	s       storer.EncodedObjectStorer
}

func (w *commitWalker) push(c *object.Commit) {
	if _, in := w.exclude[c.Hash]; in {
		return
	}
	if _, in := w.seen[c.Hash]; in {
		return
	}

	w.seen[c.Hash] = empty{}
	w.stack = append(w.stack, &walkNode{data: c})
}

// CommitsInRange enumerates the commits reachable from head but not in
// exclude, in topological order: parents strictly before children. The walk
// is a deterministic post-order depth first search visiting first parents
// first, and the head commit is the last element of the result.
func CommitsInRange(ctx context.Context, s storer.EncodedObjectStorer, head *object.Commit, exclude HashSet) ([]*object.Commit, error) {
	if exclude == nil {
		exclude = NewHashSet()
	}

	w := &commitWalker{
		seen:    NewHashSet(),
		exclude: exclude,
		s:       s,
	}
	w.push(head)

	result := make([]*object.Commit, 0)

	for len(w.stack) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		current := w.stack[len(w.stack)-1]

		if current.nextvisit == current.data.NumParents() {
			result = append(result, current.data)
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		parenthash := current.data.ParentHashes[current.nextvisit]
		current.nextvisit++

		if _, in := w.exclude[parenthash]; in {
			continue
		}
		if _, in := w.seen[parenthash]; in {
			continue
		}

		p, err := object.GetCommit(s, parenthash)
		if err != nil {
			return nil, fmt.Errorf("cannot get parent %s of %s: %w", parenthash, current.data.Hash, err)
		}
		w.push(p)
	}

	return result, nil
}
