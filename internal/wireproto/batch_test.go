package wireproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnescapeBatch(t *testing.T) {
	out, err := unescapeBatch([]byte("a:cb:oc:sd:ee"))
	require.NoError(t, err)
	require.Equal(t, "a:b,c;d=e", string(out))
}

func TestUnescapeBatchDanglingEscape(t *testing.T) {
	_, err := unescapeBatch([]byte("ab:"))
	require.Error(t, err)
}

func TestUnescapeBatchUnknownEscape(t *testing.T) {
	_, err := unescapeBatch([]byte("a:xb"))
	require.Error(t, err)
}

func TestParseBatchEscapedParamsEmpty(t *testing.T) {
	params, err := parseBatchEscapedParams(nil)
	require.NoError(t, err)
	require.Empty(t, params)
}

func TestParseBatchEscapedParamsNoArityEnforcement(t *testing.T) {
	// spec §4.3: the batch-escaped decoder never enforces arity.
	params, err := parseBatchEscapedParams([]byte("a=1,b=2,c=3"))
	require.NoError(t, err)
	require.Equal(t, ParamMap{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")}, params)
}

func TestParseBatchEscapedParamsEscapedSeparators(t *testing.T) {
	params, err := parseBatchEscapedParams([]byte("nodes=1:o2"))
	require.NoError(t, err)
	require.Equal(t, ParamMap{"nodes": []byte("1,2")}, params)
}

func TestSplitBatchCommands(t *testing.T) {
	subs := splitBatchCommands([]byte("hello ;known nodes="))
	require.Len(t, subs, 2)
	require.Equal(t, "hello", string(subs[0].name))
	require.Empty(t, subs[0].args)
	require.Equal(t, "known", string(subs[1].name))
	require.Equal(t, "nodes=", string(subs[1].args))
}
