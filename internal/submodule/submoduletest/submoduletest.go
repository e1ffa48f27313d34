// Package submoduletest provides a small, hand-built in-memory fake of
// the submodule package's collaborator interfaces, in the spirit of
// gitaly's own internal/git/gittest fixture package: a plain struct a
// test populates directly, not a generated mock with expectation
// scripts.
package submoduletest

import (
	"context"
	"fmt"

	"gitlab.com/gitlab-org/scm-cores/internal/submodule"
)

// Store is an in-memory Blobstore, TreeStore, DerivedData, and SubRepo
// all at once. A test builds one Store per logical repository (large
// repo or sub-repo) and wires the pieces it needs; Store implements
// submodule.LargeRepo and submodule.SubRepo directly.
type Store struct {
	Blobs map[submodule.BlobID][]byte
	Trees map[submodule.TreeID]submodule.Tree

	// Commits maps a commit id to the root tree DeriveRootTree should
	// hand back; derivation here is a lookup, not a real recomputation,
	// since the fake has no notion of diffing a commit against its
	// parents.
	Commits map[submodule.CommitID]submodule.TreeID

	// RootByHash backs SubRepo.RootTreeAt: a fake sub-repo resolves a
	// git commit hash straight to a root tree id.
	RootByHash map[submodule.GitHash]submodule.TreeID
}

// NewStore returns an empty Store ready for a test to populate.
func NewStore() *Store {
	return &Store{
		Blobs:      map[submodule.BlobID][]byte{},
		Trees:      map[submodule.TreeID]submodule.Tree{},
		Commits:    map[submodule.CommitID]submodule.TreeID{},
		RootByHash: map[submodule.GitHash]submodule.TreeID{},
	}
}

// PutBlob registers content under id, returning id for chaining.
func (s *Store) PutBlob(id submodule.BlobID, content []byte) submodule.BlobID {
	s.Blobs[id] = content
	return id
}

// PutTree registers a tree under id, returning id for chaining.
func (s *Store) PutTree(id submodule.TreeID, tree submodule.Tree) submodule.TreeID {
	s.Trees[id] = tree
	return id
}

// PutCommit records commit's pre-derived root tree, for DeriveRootTree
// to hand back directly.
func (s *Store) PutCommit(id submodule.CommitID, rootTree submodule.TreeID) {
	s.Commits[id] = rootTree
}

// PutSubRepoRoot records the root tree a sub-repo resolves a given
// commit hash to, for RootTreeAt to hand back directly.
func (s *Store) PutSubRepoRoot(hash submodule.GitHash, rootTree submodule.TreeID) {
	s.RootByHash[hash] = rootTree
}

// LoadBlob implements submodule.Blobstore.
func (s *Store) LoadBlob(_ context.Context, id submodule.BlobID) ([]byte, error) {
	content, ok := s.Blobs[id]
	if !ok {
		return nil, fmt.Errorf("submoduletest: no blob %q", id)
	}
	return content, nil
}

// LoadTree implements submodule.TreeStore.
func (s *Store) LoadTree(_ context.Context, id submodule.TreeID) (submodule.Tree, error) {
	tree, ok := s.Trees[id]
	if !ok {
		return nil, fmt.Errorf("submoduletest: no tree %q", id)
	}
	return tree, nil
}

// DeriveRootTree implements submodule.DerivedData: it looks up the
// commit's pre-registered root tree rather than deriving one, since
// the fake has no parent-diffing logic of its own.
func (s *Store) DeriveRootTree(_ context.Context, commit submodule.Commit, _ map[submodule.CommitID]submodule.TreeID) (submodule.TreeID, error) {
	id, ok := s.Commits[commit.ID]
	if !ok {
		return "", fmt.Errorf("submoduletest: no pre-registered root tree for commit %q", commit.ID)
	}
	return id, nil
}

// RootTreeAt implements submodule.SubRepo.
func (s *Store) RootTreeAt(_ context.Context, hash submodule.GitHash) (submodule.TreeID, error) {
	id, ok := s.RootByHash[hash]
	if !ok {
		return "", fmt.Errorf("submoduletest: no root tree registered for hash %s", hash)
	}
	return id, nil
}
