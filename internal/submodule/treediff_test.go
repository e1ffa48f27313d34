package submodule_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/scm-cores/internal/submodule"
	"gitlab.com/gitlab-org/scm-cores/internal/submodule/submoduletest"
)

func hash(c byte) submodule.GitHash {
	h, err := submodule.ParseGitHash([]byte(strings.Repeat(string(c), 40)))
	if err != nil {
		panic(err)
	}
	return h
}

func TestTreeDifferSucceedsOnIdenticalTrees(t *testing.T) {
	store := submoduletest.NewStore()
	readme := store.PutBlob("blob-readme", []byte("hello"))
	tree := store.PutTree("tree-1", submodule.Tree{"README": submodule.FileEntry(readme, submodule.Regular)})

	differ := &submodule.TreeDiffer{Trees: store, Blobs: store, Prefix: "git", Fanout: 4}
	err := differ.Diff(context.Background(), submodule.RootPath, tree, tree, submodule.SubmoduleDeps{})
	require.NoError(t, err)
}

// V6 (spec §8): a path the submodule manifest declares but the
// expansion never mentions is a validation failure.
func TestTreeDifferFailsWhenManifestPathMissingFromExpansion(t *testing.T) {
	store := submoduletest.NewStore()
	eTree := store.PutTree("e-empty", submodule.Tree{})
	sTree := store.PutTree("s-has-file", submodule.Tree{
		"extra": submodule.FileEntry(store.PutBlob("blob-extra", []byte("x")), submodule.Regular),
	})

	differ := &submodule.TreeDiffer{Trees: store, Blobs: store, Prefix: "git", Fanout: 4}
	err := differ.Diff(context.Background(), submodule.RootPath, eTree, sTree, submodule.SubmoduleDeps{})
	require.Error(t, err)
	var iv *submodule.InvariantViolation
	require.ErrorAs(t, err, &iv)
	require.Equal(t, submodule.I3, iv.Kind)
}

// A directory that exists only in the expansion, with no manifest
// counterpart and no metadata-file shape, is rejected.
func TestTreeDifferFailsWhenExpansionHasUnexpectedDirectory(t *testing.T) {
	store := submoduletest.NewStore()
	innerTree := store.PutTree("e-inner", submodule.Tree{})
	eTree := store.PutTree("e-root", submodule.Tree{
		"stray": submodule.DirEntry(innerTree),
	})
	sTree := store.PutTree("s-root", submodule.Tree{})

	differ := &submodule.TreeDiffer{Trees: store, Blobs: store, Prefix: "git", Fanout: 4}
	err := differ.Diff(context.Background(), submodule.RootPath, eTree, sTree, submodule.SubmoduleDeps{})
	require.Error(t, err)
}

// V5 (spec §8): a recursive submodule's inner metadata hash must equal
// the outer sub-repo's GitSubmodule pointer content at the same path.
func TestTreeDifferRecursiveSubmoduleSucceeds(t *testing.T) {
	store := submoduletest.NewStore()
	innerHash := hash('c')

	innerEReadme := store.PutBlob("inner-readme", []byte("hi"))
	innerETree := store.PutTree("inner-e-tree", submodule.Tree{
		"README": submodule.FileEntry(innerEReadme, submodule.Regular),
	})
	store.PutSubRepoRoot(innerHash, innerETree)

	metaBlob := store.PutBlob("meta-blob", []byte(innerHash.String()))
	eTree := store.PutTree("outer-e-tree", submodule.Tree{
		"inner":      submodule.DirEntry(innerETree),
		".git-inner": submodule.FileEntry(metaBlob, submodule.Regular),
	})

	gitlinkBlob := store.PutBlob("gitlink-blob", []byte(innerHash.String()))
	sTree := store.PutTree("outer-s-tree", submodule.Tree{
		"inner": submodule.FileEntry(gitlinkBlob, submodule.GitSubmodule),
	})

	differ := &submodule.TreeDiffer{Trees: store, Blobs: store, Prefix: "git", Fanout: 4}
	deps := submodule.SubmoduleDeps{"inner": store}
	err := differ.Diff(context.Background(), submodule.RootPath, eTree, sTree, deps)
	require.NoError(t, err)
}

// If the inner metadata hash disagrees with the outer GitSubmodule
// pointer, the diff fails rather than silently trusting either side.
func TestTreeDifferRecursiveSubmoduleHashMismatchFails(t *testing.T) {
	store := submoduletest.NewStore()
	innerHash := hash('c')
	otherHash := hash('d')

	innerETree := store.PutTree("inner-e-tree", submodule.Tree{})
	store.PutSubRepoRoot(innerHash, innerETree)

	metaBlob := store.PutBlob("meta-blob", []byte(otherHash.String()))
	eTree := store.PutTree("outer-e-tree", submodule.Tree{
		"inner":      submodule.DirEntry(innerETree),
		".git-inner": submodule.FileEntry(metaBlob, submodule.Regular),
	})

	gitlinkBlob := store.PutBlob("gitlink-blob", []byte(innerHash.String()))
	sTree := store.PutTree("outer-s-tree", submodule.Tree{
		"inner": submodule.FileEntry(gitlinkBlob, submodule.GitSubmodule),
	})

	differ := &submodule.TreeDiffer{Trees: store, Blobs: store, Prefix: "git", Fanout: 4}
	deps := submodule.SubmoduleDeps{"inner": store}
	err := differ.Diff(context.Background(), submodule.RootPath, eTree, sTree, deps)
	require.Error(t, err)
	var iv *submodule.InvariantViolation
	require.ErrorAs(t, err, &iv)
	require.Equal(t, submodule.I2, iv.Kind)
}
