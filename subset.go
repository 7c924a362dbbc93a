package gitsubset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ProgressFunc reports traversal progress. done counts processed commits
// including the current one, total is the size of the range and h is the
// original id of the commit being processed. It is invoked at most once per
// percentage point of total, frequent status writes measurably slow large
// traversals.
type ProgressFunc func(done, total int, h plumbing.Hash)

// ResolveRange resolves a revision expression into a (from, to) pair.
// "a..b" selects the commits reachable from b but not from a, a single
// revision selects everything reachable from it, with from left zero. Any
// other shape is [ErrUnsupportedRevision].
func ResolveRange(repo *git.Repository, expr string) (from, to plumbing.Hash, err error) {
	if strings.Contains(expr, "...") {
		return plumbing.ZeroHash, plumbing.ZeroHash, fmt.Errorf("%w: %q", ErrUnsupportedRevision, expr)
	}

	if i := strings.Index(expr, ".."); i >= 0 {
		left, right := expr[:i], expr[i+2:]
		if left == "" || right == "" || strings.Contains(right, "..") {
			return plumbing.ZeroHash, plumbing.ZeroHash, fmt.Errorf("%w: %q", ErrUnsupportedRevision, expr)
		}

		from, err = resolveRevision(repo, left)
		if err != nil {
			return plumbing.ZeroHash, plumbing.ZeroHash, err
		}
		to, err = resolveRevision(repo, right)
		if err != nil {
			return plumbing.ZeroHash, plumbing.ZeroHash, err
		}

		return from, to, nil
	}

	to, err = resolveRevision(repo, expr)
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}

	return plumbing.ZeroHash, to, nil
}

func resolveRevision(repo *git.Repository, rev string) (plumbing.Hash, error) {
	h, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}

	return *h, nil
}

// RewriteCommit creates a new commit in s from c: the tree filtered through
// f, each parent remapped through omap (tombstoned and unmapped parents
// dropped, duplicates collapsed to the first occurrence), and author,
// committer and message bytes copied unchanged. GPG signatures are not
// carried over. The new commit id is returned; omap is only mutated by the
// tree rewrite, recording the commit mapping is the caller's decision.
func RewriteCommit(ctx context.Context, c *object.Commit, omap *OidMap, f *Filter, s storer.EncodedObjectStorer) (plumbing.Hash, error) {
	tree, err := c.Tree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to obtain tree for commit %s: %w", c.Hash, err)
	}

	newtree, err := FilterTree(ctx, f, tree, omap, s)
	if err != nil {
		return plumbing.ZeroHash, errorf(err, "failed to filter tree of commit %s: %w", c.Hash, err)
	}

	parents := make([]plumbing.Hash, 0, c.NumParents())
	seen := NewHashSet()
	for _, p := range c.ParentHashes {
		newparent, ok := omap.Resolve(p)
		if !ok || newparent.IsZero() {
			continue
		}
		if _, dup := seen[newparent]; dup {
			continue
		}
		seen[newparent] = empty{}
		parents = append(parents, newparent)
	}

	newcommit := &object.Commit{
		Author:       c.Author,
		Committer:    c.Committer,
		Message:      c.Message,
		TreeHash:     newtree,
		ParentHashes: parents,
	}

	newhash, err := saveObject(ctx, newcommit, s)
	if err != nil {
		return plumbing.ZeroHash, errorf(err, "failed to save commit: %w", err)
	}

	return newhash, nil
}

// isEmptyCommit reports whether c carries no changes: it has no parents and
// the canonical empty tree, or every parent's tree equals its own.
func isEmptyCommit(s storer.EncodedObjectStorer, c *object.Commit) (bool, error) {
	if c.NumParents() == 0 {
		return c.TreeHash == EmptyTreeHash, nil
	}

	for _, p := range c.ParentHashes {
		parent, err := object.GetCommit(s, p)
		if err != nil {
			return false, fmt.Errorf("cannot get parent %s of %s: %w", p, c.Hash, err)
		}
		if parent.TreeHash != c.TreeHash {
			return false, nil
		}
	}

	return true, nil
}

// SubsetCommits rewrites commits, which must be in topological order with
// parents strictly before children (see [CommitsInRange]), and returns the
// id of the rewritten tip, or zero when every commit was pruned as empty.
//
//   - A commit already present in omap is reused without touching the store.
//   - A commit whose rewrite is empty is collapsed: its map entry is
//     overwritten with its first rewritten parent so later parent lookups
//     resolve through it, or with a tombstone when it has no parents, in
//     which case its children become new roots. The commit object written
//     for it is left behind as unreferenced, collectable garbage.
func SubsetCommits(ctx context.Context, commits []*object.Commit, omap *OidMap, f *Filter, s storer.EncodedObjectStorer, progress ProgressFunc) (plumbing.Hash, error) {
	if s == nil {
		return plumbing.ZeroHash, ErrNilStorage
	}
	if f == nil || f.IsEmpty() && !f.exclude {
		return plumbing.ZeroHash, ErrEmptyFilter
	}

	var tip plumbing.Hash

	n := len(commits)
	step := max(n/100, 1)

	for i, c := range commits {
		select {
		case <-ctx.Done():
			return plumbing.ZeroHash, ctx.Err()
		default:
		}
		if c == nil {
			continue
		}

		if progress != nil && i%step == 0 {
			progress(i+1, n, c.Hash)
		}

		// reuse work recorded by a previous run.
		if _, ok := omap.Get(c.Hash); ok {
			if v, ok := omap.Resolve(c.Hash); ok && !v.IsZero() {
				tip = v
			}
			logger.Debug("reuse mapped commit", "id", i, "total", n, "hash", c.Hash)
			continue
		}

		newhash, err := RewriteCommit(ctx, c, omap, f, s)
		if err != nil {
			return plumbing.ZeroHash, errorf(err, "failed to rewrite commit at %d for %s: %w", i, c.Hash, err)
		}

		omap.Insert(c.Hash, newhash)

		newcommit, err := object.GetCommit(s, newhash)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("cannot read new commit %s: %w", newhash, err)
		}

		isempty, err := isEmptyCommit(s, newcommit)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if isempty {
			if newcommit.NumParents() > 0 {
				// all parent trees are identical, any of them would do.
				omap.Insert(c.Hash, newcommit.ParentHashes[0])
			} else {
				omap.Insert(c.Hash, plumbing.ZeroHash)
			}
			logger.Debug("pruning empty commit", "id", i, "total", n, "hash", c.Hash)
			continue
		}

		logger.Debug("processing commit", "id", i, "total", n, "hash", c.Hash, "newcommit", newhash)
		tip = newhash
	}

	if progress != nil && n > 0 && (n-1)%step != 0 {
		progress(n, n, commits[n-1].Hash)
	}

	return tip, nil
}

// CreateBranch points the branch name at tip. An existing branch is an
// [ErrBranchExists] error unless force is set.
func CreateBranch(s storer.ReferenceStorer, name string, tip plumbing.Hash, force bool) error {
	refname := plumbing.NewBranchReferenceName(name)

	if !force {
		if _, err := s.Reference(refname); err == nil {
			return fmt.Errorf("%w: %s", ErrBranchExists, name)
		} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("failed to check branch %s: %w", name, err)
		}
	}

	return s.SetReference(plumbing.NewHashReference(refname, tip))
}

// SubsetBranch runs the whole pipeline on repo: resolve revexpr, enumerate
// the range topologically, rewrite every commit through f and omap, and
// create branch at the surviving tip. When every commit in the range is
// pruned it returns [ErrOnlyEmptyCommits] and no branch is created. Store
// errors abort the run without creating a branch; omap keeps whatever was
// accumulated and can still be persisted by the caller.
func SubsetBranch(ctx context.Context, repo *git.Repository, omap *OidMap, f *Filter, revexpr, branch string, force bool, progress ProgressFunc) (plumbing.Hash, error) {
	from, to, err := ResolveRange(repo, revexpr)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	exclude, err := Ancestors(ctx, repo.Storer, from)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	head, err := object.GetCommit(repo.Storer, to)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("cannot get commit %s: %w", to, err)
	}

	commits, err := CommitsInRange(ctx, repo.Storer, head, exclude)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	logger.Info("enumerated commits", "total", len(commits), "head", head.Hash)

	tip, err := SubsetCommits(ctx, commits, omap, f, repo.Storer, progress)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if tip.IsZero() {
		return plumbing.ZeroHash, ErrOnlyEmptyCommits
	}

	if err := CreateBranch(repo.Storer, branch, tip, force); err != nil {
		return plumbing.ZeroHash, err
	}

	return tip, nil
}
