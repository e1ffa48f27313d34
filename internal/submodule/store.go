package submodule

import "context"

// Blobstore loads file content by id (spec §6). Implementations are
// expected to be content-addressed and read-only from this package's
// point of view (spec §5: "the content-addressed stores are read-only
// during validation").
type Blobstore interface {
	LoadBlob(ctx context.Context, id BlobID) ([]byte, error)
}

// TreeStore loads a directory's immediate children by tree id (spec
// §6). Named LoadTree, not Load: a single collaborator type
// implementing both Blobstore and TreeStore needs two distinctly
// named methods, since BlobID and TreeID are different parameter
// types and Go does not allow overloading by signature.
type TreeStore interface {
	LoadTree(ctx context.Context, id TreeID) (Tree, error)
}

// DerivedData derives a commit's root tree from the commit and its
// parents' already-derived root trees (spec §6, §4.9 step 6). A
// parent missing from parentRoots is a derivation error, not a panic:
// the validator surfaces it as DerivationError.
type DerivedData interface {
	DeriveRootTree(ctx context.Context, commit Commit, parentRoots map[CommitID]TreeID) (TreeID, error)
}

// SubRepo resolves a git commit hash recorded in a submodule's
// metadata file to that sub-repo's root tree at that commit (spec
// §6). One SubRepo value is the collaborator handle referenced by
// SubmoduleDeps.
type SubRepo interface {
	RootTreeAt(ctx context.Context, commit GitHash) (TreeID, error)
}

// LargeRepo bundles the three collaborators the validator needs
// against the large repo itself, mirroring how gitaly's RPC handlers
// take a single repository argument rather than three separate
// stores. Submodule collaborators are looked up per-path through
// SubmoduleDeps instead, since each declared submodule may live in a
// different sub-repo.
type LargeRepo interface {
	Blobstore
	TreeStore
	DerivedData
}
