package submodule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePathRejectsDotComponents(t *testing.T) {
	_, err := ParsePath("a/./b")
	require.Error(t, err)

	_, err = ParsePath("a/../b")
	require.Error(t, err)

	_, err = ParsePath("a//b")
	require.Error(t, err)
}

func TestPathJoinAndComponents(t *testing.T) {
	p, err := NewPath("a", "b")
	require.NoError(t, err)
	require.Equal(t, Path("a/b"), p)
	require.Equal(t, []PathComponent{"a", "b"}, p.Components())

	p = p.Join("c")
	require.Equal(t, Path("a/b/c"), p)
}

func TestPathLeafAndParent(t *testing.T) {
	p, err := ParsePath("a/b/c")
	require.NoError(t, err)

	leaf, ok := p.Leaf()
	require.True(t, ok)
	require.Equal(t, PathComponent("c"), leaf)

	parent, ok := p.Parent()
	require.True(t, ok)
	require.Equal(t, Path("a/b"), parent)

	_, ok = RootPath.Leaf()
	require.False(t, ok)
}

func TestPathHasPrefix(t *testing.T) {
	p, err := ParsePath("a/bc")
	require.NoError(t, err)

	require.True(t, p.HasPrefix(RootPath))
	require.True(t, p.HasPrefix(p))

	prefix, err := ParsePath("a")
	require.NoError(t, err)
	require.True(t, p.HasPrefix(prefix))

	notPrefix, err := ParsePath("a/b")
	require.NoError(t, err)
	require.False(t, p.HasPrefix(notPrefix))
}

func TestPathStripPrefixStrict(t *testing.T) {
	p, err := ParsePath("a/b/c")
	require.NoError(t, err)
	prefix, err := ParsePath("a/b")
	require.NoError(t, err)

	rest, ok := p.StripPrefix(prefix)
	require.True(t, ok)
	require.Equal(t, Path("c"), rest)

	// equality is not a strict prefix.
	_, ok = p.StripPrefix(p)
	require.False(t, ok)

	other, err := ParsePath("x/y")
	require.NoError(t, err)
	_, ok = p.StripPrefix(other)
	require.False(t, ok)
}

func TestSubmoduleDepsStripPrefix(t *testing.T) {
	a, _ := ParsePath("vendor/a")
	b, _ := ParsePath("vendor/nested/b")
	c, _ := ParsePath("other/c")
	deps := SubmoduleDeps{a: nil, b: nil, c: nil}

	prefix, _ := ParsePath("vendor")
	adjusted := deps.StripPrefix(prefix)

	_, hasA := adjusted[Path("a")]
	_, hasB := adjusted[Path("nested/b")]
	_, hasC := adjusted[Path("other/c")]
	require.True(t, hasA)
	require.True(t, hasB)
	require.False(t, hasC)
	require.Len(t, adjusted, 2)
}

func TestMetadataPath(t *testing.T) {
	expansionPath, err := ParsePath("vendor/widgets")
	require.NoError(t, err)

	metaPath, err := MetadataPath("git", expansionPath)
	require.NoError(t, err)
	require.Equal(t, Path("vendor/.git-widgets"), metaPath)
}
