package wireproto

import (
	"bytes"
	"fmt"
)

// This file implements the batch-escaped parameter format (spec §4.3)
// and the batch envelope (spec §4.6). Unlike the keyed decoder (§4.2),
// this format carries a complete, already-length-delimited byte
// string: there is no streaming concern here, so these functions
// return (value, error) rather than the three-valued result type.

// escapeChar is the only byte the escape alphabet treats specially; a
// bare, unescaped occurrence anywhere in a valid batch-escaped stream
// is a grammar violation.
const escapeChar = ':'

// unescapeBatch decodes the batch escape alphabet: :c -> :, :o -> ,,
// :s -> ;, :e -> =. Any other byte following ':' aborts the parse.
func unescapeBatch(raw []byte) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b != escapeChar {
			out = append(out, b)
			continue
		}
		if i+1 >= len(raw) {
			return nil, fmt.Errorf("wireproto: batch escape: dangling %q at end of input", escapeChar)
		}
		i++
		switch raw[i] {
		case 'c':
			out = append(out, ':')
		case 'o':
			out = append(out, ',')
		case 's':
			out = append(out, ';')
		case 'e':
			out = append(out, '=')
		default:
			return nil, fmt.Errorf("wireproto: batch escape: unknown escape %q%q", escapeChar, raw[i])
		}
	}
	return out, nil
}

// splitUnescaped splits raw on literal occurrences of sep, treating
// `:x` escape pairs as opaque so an escaped separator byte never
// splits the string. This must run before unescapeBatch, which is why
// it operates on the still-escaped bytes.
func splitUnescaped(raw []byte, sep byte) [][]byte {
	var parts [][]byte
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case escapeChar:
			i++ // skip the escaped byte, whatever it is
		case sep:
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	parts = append(parts, raw[start:])
	return parts
}

// parseBatchEscapedParams decodes `k=v(,k=v)*` with no arity
// enforcement (spec §4.3). An empty input decodes to an empty map.
func parseBatchEscapedParams(raw []byte) (ParamMap, error) {
	params := ParamMap{}
	if len(raw) == 0 {
		return params, nil
	}

	for _, pair := range splitUnescaped(raw, ',') {
		kv := splitUnescaped(pair, '=')
		if len(kv) != 2 {
			return nil, fmt.Errorf("wireproto: batch param %q is not key=value", pair)
		}

		key, err := unescapeBatch(kv[0])
		if err != nil {
			return nil, err
		}
		value, err := unescapeBatch(kv[1])
		if err != nil {
			return nil, err
		}
		params[string(key)] = value
	}

	return params, nil
}

// batchSubcommand is one `name args` entry from a batch cmds body.
type batchSubcommand struct {
	name []byte
	args []byte
}

// splitBatchCommands splits a cmds body on unescaped ';' into
// individual `name args` sub-commands (spec §4.6).
func splitBatchCommands(body []byte) []batchSubcommand {
	var subs []batchSubcommand
	for _, raw := range splitUnescaped(body, ';') {
		i := bytes.IndexByte(raw, ' ')
		if i < 0 {
			subs = append(subs, batchSubcommand{name: raw})
			continue
		}
		subs = append(subs, batchSubcommand{name: raw[:i], args: raw[i+1:]})
	}
	return subs
}
