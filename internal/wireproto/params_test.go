package wireproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseParamKV(t *testing.T) {
	r := parseParamKV([]byte("namespace 9\nbookmarks"))
	require.True(t, r.isDone())
	require.Equal(t, ParamMap{"namespace": []byte("bookmarks")}, r.value)
	require.Empty(t, r.rest)
}

func TestParseParamStarNestedCount(t *testing.T) {
	r := parseParamStar([]byte("* 1\nnodes 40\n" + repeat('1', 40)))
	require.True(t, r.isDone())
	require.Equal(t, ParamMap{"nodes": []byte(repeat('1', 40))}, r.value)
}

func TestParseParamStarContributesOneSlotRegardlessOfK(t *testing.T) {
	// spec §9: the star counter contributes exactly +1 to outer arity
	// regardless of the nested count K.
	r := parseKeyedParams([]byte("* 2\none 3\nfootwo 3\nbar\n"), 1)
	require.True(t, r.isDone())
	require.Equal(t, ParamMap{"one": []byte("foo"), "two": []byte("bar")}, r.value)
	require.Equal(t, []byte("\n"), r.rest)
}

func TestParseKeyedParamsDuplicateKeyLastWriteWins(t *testing.T) {
	// spec §9: last-write-wins on duplicate keys across slots.
	r := parseKeyedParams([]byte("one 1\naone 1\nb"), 2)
	require.True(t, r.isDone())
	require.Equal(t, ParamMap{"one": []byte("b")}, r.value)
}

func TestParseKeyedParamsIncompleteMidCount(t *testing.T) {
	r := parseKeyedParams([]byte("namespace 9\nbook"), 1)
	require.True(t, r.isIncomplete())
}

func repeat(b byte, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return string(out)
}
