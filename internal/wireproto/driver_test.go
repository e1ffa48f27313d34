package wireproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// P1: a valid complete encoding parses to Some(req) and empties the buffer.
func TestDriverTryParseCompleteEncoding(t *testing.T) {
	d := NewDriver()
	req, rest, err := d.TryParse([]byte("heads\n"))
	require.NoError(t, err)
	require.NotNil(t, req)
	require.Empty(t, rest)
	require.Equal(t, Single{Req: HeadsRequest{}}, req)
}

// P2: every proper prefix of a valid encoding yields (None, unchanged).
func TestDriverTryParsePrefixIsIncomplete(t *testing.T) {
	d := NewDriver()
	full := "listkeys\nnamespace 9\nbookmarks"
	for i := 1; i < len(full); i++ {
		prefix := []byte(full[:i])
		req, rest, err := d.TryParse(prefix)
		require.NoErrorf(t, err, "prefix %q", prefix)
		require.Nilf(t, req, "prefix %q", prefix)
		require.Nilf(t, rest, "prefix %q", prefix)
	}
}

// P3: trailing bytes belonging to the next command are left in the
// buffer untouched.
func TestDriverTryParseLeavesTrailingBytes(t *testing.T) {
	d := NewDriver()
	req, rest, err := d.TryParse([]byte("heads\nhello\n"))
	require.NoError(t, err)
	require.Equal(t, Single{Req: HeadsRequest{}}, req)
	require.Equal(t, []byte("hello\n"), rest)
}

func TestDriverTryParseBatchPrefixWaitsForMoreBytes(t *testing.T) {
	d := NewDriver()
	req, rest, err := d.TryParse([]byte("batch\n* 0\ncmds 5\nhel"))
	require.NoError(t, err)
	require.Nil(t, req)
	require.Nil(t, rest)
}

func TestDriverTryParseHardError(t *testing.T) {
	d := NewDriver()
	_, _, err := d.TryParse([]byte("nonsense\n"))
	require.Error(t, err)
	require.IsType(t, &ParseError{}, err)
}

func TestDriverTryParseBatch(t *testing.T) {
	d := NewDriver()
	req, rest, err := d.TryParse([]byte("batch\n* 0\ncmds 19\nhello ;known nodes="))
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, Batch{Reqs: []SingleRequest{HelloRequest{}, KnownRequest{}}}, req)
}
