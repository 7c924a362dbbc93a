package gitsubset_test

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

var testWhen = time.Date(2017, 4, 1, 12, 0, 0, 0, time.UTC)

func testSignature(offset int) object.Signature {
	return object.Signature{
		Name:  "A U Thor",
		Email: "author@example.com",
		When:  testWhen.Add(time.Duration(offset) * time.Minute),
	}
}

func writeBlob(t *testing.T, s storer.EncodedObjectStorer, content string) plumbing.Hash {
	t.Helper()

	o := s.NewEncodedObject()
	o.SetType(plumbing.BlobObject)

	w, err := o.Writer()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	h, err := s.SetEncodedObject(o)
	if err != nil {
		t.Fatal(err)
	}

	return h
}

func file(name string, h plumbing.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: h}
}

func dir(name string, h plumbing.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h}
}

// writeTree stores a tree with the given entries, which must already be in
// git sort order.
func writeTree(t *testing.T, s storer.EncodedObjectStorer, entries ...object.TreeEntry) plumbing.Hash {
	t.Helper()

	tree := &object.Tree{Entries: entries}

	o := s.NewEncodedObject()
	if err := tree.Encode(o); err != nil {
		t.Fatal(err)
	}

	h, err := s.SetEncodedObject(o)
	if err != nil {
		t.Fatal(err)
	}

	return h
}

func writeCommit(t *testing.T, s storer.EncodedObjectStorer, tree plumbing.Hash, parents []plumbing.Hash, message string, offset int) *object.Commit {
	t.Helper()

	c := &object.Commit{
		Author:       testSignature(offset),
		Committer:    testSignature(offset),
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	o := s.NewEncodedObject()
	if err := c.Encode(o); err != nil {
		t.Fatal(err)
	}

	h, err := s.SetEncodedObject(o)
	if err != nil {
		t.Fatal(err)
	}

	stored, err := object.GetCommit(s, h)
	if err != nil {
		t.Fatal(err)
	}

	return stored
}

func getCommit(t *testing.T, s storer.EncodedObjectStorer, h plumbing.Hash) *object.Commit {
	t.Helper()

	c, err := object.GetCommit(s, h)
	if err != nil {
		t.Fatal(err)
	}

	return c
}

func getTree(t *testing.T, s storer.EncodedObjectStorer, h plumbing.Hash) *object.Tree {
	t.Helper()

	tree, err := object.GetTree(s, h)
	if err != nil {
		t.Fatal(err)
	}

	return tree
}

func entryNames(tree *object.Tree) []string {
	names := make([]string, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		names = append(names, e.Name)
	}

	return names
}
