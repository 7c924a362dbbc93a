// gitsubset creates a subset of a git repository's history.
// It rewrites every commit in a revision range so that the trees contain
// only the paths selected by a hierarchical include/exclude filter, drops
// commits that become empty after filtering, and points a new branch at the
// rewritten tip.
//
// See [SubsetBranch] for the whole pipeline, [FilterTree] for the tree
// rewrite and [Filter] for how paths are selected.
//
// Rewrites are memoized in an [OidMap] which can be persisted inside the
// repository, keyed by the filter's [Filter.Hash], so re-running with an
// unchanged filter only processes new commits.
package gitsubset
