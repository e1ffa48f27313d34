package wireproto

import (
	"bytes"
	"fmt"
)

// BundleCaps is the decoded `bundlecaps` value: a three-level
// capability tree, cap -> param -> set of values (spec §3, §4.5).
type BundleCaps map[string]map[string]map[string]struct{}

// parseBundleCaps decodes a comma-separated list of caps, each either
// `name` or `name=payload`, where payload is percent-encoded and,
// once decoded, is itself a newline-separated list of
// `param[=v1,v2,...]` entries (spec §4.5).
func parseBundleCaps(raw []byte) (BundleCaps, error) {
	caps := BundleCaps{}
	if len(raw) == 0 {
		return caps, nil
	}

	for _, capBytes := range bytes.Split(raw, []byte(",")) {
		name, payload, hasPayload := cutFirst(capBytes, '=')

		params := map[string]map[string]struct{}{}
		if hasPayload {
			decoded, err := percentDecode(payload)
			if err != nil {
				return nil, fmt.Errorf("wireproto: bundlecaps cap %q: %w", name, err)
			}

			for _, line := range bytes.Split(decoded, []byte("\n")) {
				if len(line) == 0 {
					continue
				}

				paramNameRaw, valuesRaw, hasValues := cutFirst(line, '=')
				paramName, err := percentDecode(paramNameRaw)
				if err != nil {
					return nil, fmt.Errorf("wireproto: bundlecaps cap %q: %w", name, err)
				}

				values := map[string]struct{}{}
				if hasValues {
					for _, v := range bytes.Split(valuesRaw, []byte(",")) {
						decodedVal, err := percentDecode(v)
						if err != nil {
							return nil, fmt.Errorf("wireproto: bundlecaps cap %q param %q: %w", name, paramName, err)
						}
						values[string(decodedVal)] = struct{}{}
					}
				}
				params[string(paramName)] = values
			}
		}

		caps[string(name)] = params
	}

	return caps, nil
}

// cutFirst splits b on the first occurrence of sep, gitaly-style
// "ok" return mirroring strings.Cut (not yet available pre-1.18
// stdlib, reimplemented here for []byte).
func cutFirst(b []byte, sep byte) (before, after []byte, found bool) {
	i := bytes.IndexByte(b, sep)
	if i < 0 {
		return b, nil, false
	}
	return b[:i], b[i+1:], true
}

// percentDecode decodes %HH escapes. Unlike net/url's QueryUnescape,
// it does not treat '+' as an encoded space: the bundlecaps wire
// format has no use for that convention and silently mangling literal
// '+' bytes would be a correctness bug.
func percentDecode(raw []byte) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] != '%' {
			out = append(out, raw[i])
			continue
		}
		if i+2 >= len(raw) {
			return nil, fmt.Errorf("wireproto: percent-decode: truncated escape at offset %d", i)
		}
		hi, ok1 := hexVal(raw[i+1])
		lo, ok2 := hexVal(raw[i+2])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("wireproto: percent-decode: invalid escape %q", raw[i:i+3])
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return out, nil
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}
