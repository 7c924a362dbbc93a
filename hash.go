package gitsubset

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

var ErrHexStringTooShort = errors.New("hex encoded byte slice is too short for hash")

// DecodeHashHex decodes a hex encoded sha1 ([plumbing.Hash]).
// It differs from [plumbing.NewHash] for [plumbing.NewHash] doesn't
// check [hex.DecodeString] has error or the length of the decoded bytes.
func DecodeHashHex(str string) (plumbing.Hash, error) {
	v, err := hex.DecodeString(str)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if len(v) < 20 {
		return plumbing.ZeroHash, ErrHexStringTooShort
	}

	r := plumbing.Hash{}

	copy(r[:], v)

	return r, nil
}

// MustDecodeHashHex decodes the input str to [plumbing.Hash] and
// panics if any error is encountered.
func MustDecodeHashHex(str string) plumbing.Hash {
	v, err := DecodeHashHex(str)
	if err != nil {
		panic(err)
	}

	return v
}

// EmptyTreeHash is the id of the canonical empty tree. Every git object
// store derives the same id for a tree with no entries.
var EmptyTreeHash = MustDecodeHashHex("4b825dc642cb6eb9a060e54bf8d69288fbee4904")

// GetHash calculates the hash of a tree or commit without storing it,
// by encoding it into a [plumbing.MemoryObject].
func GetHash(obj object.Object) (plumbing.Hash, error) {
	o := &plumbing.MemoryObject{}
	if err := obj.Encode(o); err != nil {
		return plumbing.ZeroHash, err
	}

	return o.Hash(), nil
}

// saveObject encodes obj into s and returns the hash of the stored object.
func saveObject(ctx context.Context, obj object.Object, s storer.EncodedObjectStorer) (plumbing.Hash, error) {
	select {
	case <-ctx.Done():
		return plumbing.ZeroHash, ctx.Err()
	default:
	}

	o := s.NewEncodedObject()
	if err := obj.Encode(o); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode object: %w", err)
	}

	return s.SetEncodedObject(o)
}
