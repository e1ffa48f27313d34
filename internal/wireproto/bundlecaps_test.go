package wireproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBundleCapsEmpty(t *testing.T) {
	caps, err := parseBundleCaps(nil)
	require.NoError(t, err)
	require.Empty(t, caps)
}

func TestParseBundleCapsBareName(t *testing.T) {
	caps, err := parseBundleCaps([]byte("HG20"))
	require.NoError(t, err)
	require.Equal(t, BundleCaps{"HG20": {}}, caps)
}

func TestParseBundleCapsWithPayload(t *testing.T) {
	// payload is "listkeys\nchangegroup=01,02", percent-encoded (',' as
	// %2C, '\n' as %0A) since those bytes are structural at the outer
	// levels.
	caps, err := parseBundleCaps([]byte("bundlecaps=listkeys%0Achangegroup=01%2C02"))
	require.NoError(t, err)
	require.Equal(t, BundleCaps{
		"bundlecaps": {
			"listkeys":    {},
			"changegroup": {"01": {}, "02": {}},
		},
	}, caps)
}

func TestParseBundleCapsMultipleCaps(t *testing.T) {
	caps, err := parseBundleCaps([]byte("HG20,bundle2=HG20"))
	require.NoError(t, err)
	require.Equal(t, BundleCaps{
		"HG20":    {},
		"bundle2": {"HG20": {}},
	}, caps)
}

func TestPercentDecode(t *testing.T) {
	out, err := percentDecode([]byte("a%2Cb%0A"))
	require.NoError(t, err)
	require.Equal(t, "a,b\n", string(out))
}

func TestPercentDecodeTruncated(t *testing.T) {
	_, err := percentDecode([]byte("a%2"))
	require.Error(t, err)
}

func TestPercentDecodeInvalidHex(t *testing.T) {
	_, err := percentDecode([]byte("a%zz"))
	require.Error(t, err)
}
