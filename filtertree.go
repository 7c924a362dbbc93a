package gitsubset

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// FilterTree rewrites tree so that it only contains the entries selected by
// f, writing the rebuilt trees into s bottom-up and returning the id of the
// new root. Results are memoized in omap keyed by the original tree id, so
// omap must only ever be used with a single filter (persisted maps are named
// by [Filter.Hash] for exactly this reason).
//
// Subtrees that end up empty are omitted from their parent rather than
// written out. Only the root maps to the canonical empty tree, which is
// written to s so the id always resolves.
func FilterTree(ctx context.Context, f *Filter, tree *object.Tree, omap *OidMap, s storer.EncodedObjectStorer) (plumbing.Hash, error) {
	newhash, ok, err := filterTree(ctx, f, tree, omap, s)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if !ok {
		return saveObject(ctx, &object.Tree{}, s)
	}

	return newhash, nil
}

// filterTree is the recursive worker for [FilterTree]. The second return is
// false when every entry was filtered out and no object was written.
func filterTree(ctx context.Context, f *Filter, tree *object.Tree, omap *OidMap, s storer.EncodedObjectStorer) (plumbing.Hash, bool, error) {
	select {
	case <-ctx.Done():
		return plumbing.ZeroHash, false, ctx.Err()
	default:
	}

	// the work may already be done by an earlier commit or a previous run.
	if v, ok := omap.Get(tree.Hash); ok {
		return v, !v.IsZero(), nil
	}

	entries := make([]object.TreeEntry, 0, len(tree.Entries))

	for _, entry := range tree.Entries {
		sub := f.Match(entry.Name)

		switch {
		case sub == nil:
			// no match: under an exclusion context unmatched entries pass
			// through, under an inclusion context they are dropped.
			if f.exclude {
				entries = append(entries, entry)
			}

		case sub.IsEmpty():
			if !sub.exclude {
				entries = append(entries, entry)
			}

		case entry.Mode == filemode.Dir:
			subtree, err := object.GetTree(s, entry.Hash)
			if err != nil {
				return plumbing.ZeroHash, false, errorf(err, "failed to obtain subtree %s for entry %s: %w", entry.Hash, entry.Name, err)
			}

			newhash, ok, err := filterTree(ctx, sub, subtree, omap, s)
			if err != nil {
				return plumbing.ZeroHash, false, err
			}
			if ok {
				entry.Hash = newhash
				entries = append(entries, entry)
			}

			// sub-filters only apply to subtrees: a matching non-tree
			// entry is dropped.
		}
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, false, nil
	}

	newtree := &object.Tree{Entries: entries}

	newhash, err := saveObject(ctx, newtree, s)
	if err != nil {
		return plumbing.ZeroHash, false, errorf(err, "failed to save filtered tree for %s: %w", tree.Hash, err)
	}

	omap.Insert(tree.Hash, newhash)

	return newhash, true, nil
}
