package wireproto

import (
	"bytes"
	"fmt"
)

// NodeHash is a fixed 20-byte identifier, encoded on the wire as 40
// lowercase hex digits (spec §3).
type NodeHash [20]byte

// ParseNodeHash decodes exactly 40 lowercase hex digits. Uppercase hex
// and any other length are rejected: the wire format is bit-exact
// (spec §6).
func ParseNodeHash(b []byte) (NodeHash, error) {
	var h NodeHash
	if len(b) != 40 {
		return h, fmt.Errorf("wireproto: node hash must be 40 hex digits, got %d bytes", len(b))
	}
	for i := 0; i < 20; i++ {
		hi, ok1 := lowerHexVal(b[2*i])
		lo, ok2 := lowerHexVal(b[2*i+1])
		if !ok1 || !ok2 {
			return h, fmt.Errorf("wireproto: node hash contains non-hex or uppercase byte at offset %d", 2*i)
		}
		h[i] = hi<<4 | lo
	}
	return h, nil
}

func lowerHexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	default:
		return 0, false
	}
}

func (h NodeHash) String() string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 40)
	for i, b := range h {
		out[2*i] = hexDigits[b>>4]
		out[2*i+1] = hexDigits[b&0xf]
	}
	return string(out)
}

// Pair is an ordered pair of node hashes, as used by `between`.
type Pair struct {
	From, To NodeHash
}

// SingleRequest is the tagged union of every command in the dispatch
// table (spec §3, §4.4).
type SingleRequest interface {
	commandName() string
}

// Request is Single(SingleRequest) | Batch(ordered []SingleRequest)
// (spec §3). Implemented as an interface rather than a struct with a
// discriminant flag so a type switch at the call site cannot forget a
// case.
type Request interface {
	isRequest()
}

// Single wraps one non-batched command.
type Single struct {
	Req SingleRequest
}

func (Single) isRequest() {}

// Batch wraps an ordered sequence of commands parsed out of a batch
// envelope's cmds body (spec §4.6).
type Batch struct {
	Reqs []SingleRequest
}

func (Batch) isRequest() {}

// --- command payload types -------------------------------------------------

type BetweenRequest struct{ Pairs []Pair }

func (BetweenRequest) commandName() string { return "between" }

type BranchmapRequest struct{}

func (BranchmapRequest) commandName() string { return "branchmap" }

type CapabilitiesRequest struct{}

func (CapabilitiesRequest) commandName() string { return "capabilities" }

type DebugwireargsRequest struct {
	One, Two string
	Params   ParamMap
}

func (DebugwireargsRequest) commandName() string { return "debugwireargs" }

type GetbundleRequest struct {
	Heads, Common []NodeHash
	Bundlecaps    BundleCaps
	Listkeys      []string
	Phases        bool
}

func (GetbundleRequest) commandName() string { return "getbundle" }

type HeadsRequest struct{}

func (HeadsRequest) commandName() string { return "heads" }

type HelloRequest struct{}

func (HelloRequest) commandName() string { return "hello" }

type ListkeysRequest struct{ Namespace string }

func (ListkeysRequest) commandName() string { return "listkeys" }

type LookupRequest struct{ Key string }

func (LookupRequest) commandName() string { return "lookup" }

type KnownRequest struct{ Nodes []NodeHash }

func (KnownRequest) commandName() string { return "known" }

type UnbundleRequest struct{ Heads []string }

func (UnbundleRequest) commandName() string { return "unbundle" }

type GettreepackRequest struct {
	Rootdir              []byte
	Mfnodes, Basemfnodes []NodeHash
	Directories          [][]byte
	Depth                *uint64
}

func (GettreepackRequest) commandName() string { return "gettreepack" }

type GetfilesRequest struct{}

func (GetfilesRequest) commandName() string { return "getfiles" }

type StreamOutShallowRequest struct{ Params ParamMap }

func (StreamOutShallowRequest) commandName() string { return "stream_out_shallow" }

// --- parameter helpers ------------------------------------------------------

func requireParam(p ParamMap, cmd, key string) ([]byte, error) {
	v, ok := p[key]
	if !ok {
		return nil, &ParamMissing{Command: cmd, Key: key}
	}
	return v, nil
}

func optionalParam(p ParamMap, key string) ([]byte, bool) {
	v, ok := p[key]
	return v, ok
}

// parseAlphanumField requires the entire value to be a single
// [A-Za-z_][A-Za-z0-9_]* token, matching the "ident_alphanum" grammar
// used for bare string fields such as debugwireargs' `one`/`two`.
func parseAlphanumField(cmd, key string, raw []byte) (string, error) {
	// raw is already length-delimited: an identifier run that reaches
	// its end (Incomplete to the streaming identAlphanum) is the whole
	// value, while Done means bytes remain after the run.
	r := identAlphanum(raw)
	if len(raw) == 0 || !r.isIncomplete() {
		return "", &ParamTrailingBytes{Command: cmd, Key: key}
	}
	return string(raw), nil
}

// parseHashList decodes a space-separated list of 40-hex node hashes,
// requiring the entire value to be consumed.
func parseHashList(cmd, key string, raw []byte) ([]NodeHash, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tokens := bytes.Split(raw, []byte(" "))
	out := make([]NodeHash, 0, len(tokens))
	for _, tok := range tokens {
		h, err := ParseNodeHash(tok)
		if err != nil {
			return nil, &ParamInvalid{Command: cmd, Key: key, Reason: err.Error()}
		}
		out = append(out, h)
	}
	return out, nil
}

// parsePairList decodes `between`'s space-separated NodeHash-NodeHash list.
func parsePairList(cmd, key string, raw []byte) ([]Pair, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tokens := bytes.Split(raw, []byte(" "))
	out := make([]Pair, 0, len(tokens))
	for _, tok := range tokens {
		parts := bytes.SplitN(tok, []byte("-"), 2)
		if len(parts) != 2 {
			return nil, &ParamInvalid{Command: cmd, Key: key, Reason: fmt.Sprintf("malformed pair %q", tok)}
		}
		from, err := ParseNodeHash(parts[0])
		if err != nil {
			return nil, &ParamInvalid{Command: cmd, Key: key, Reason: err.Error()}
		}
		to, err := ParseNodeHash(parts[1])
		if err != nil {
			return nil, &ParamInvalid{Command: cmd, Key: key, Reason: err.Error()}
		}
		out = append(out, Pair{From: from, To: to})
	}
	return out, nil
}

// parseBoolean decodes a field whose entire value must be one or more
// decimal digits, true iff the parsed integer is nonzero (the `phases`
// field on getbundle). A partially-numeric value (trailing bytes) or
// an empty value is an error.
func parseBoolean(raw []byte) (bool, error) {
	r := integerComplete(raw)
	if !r.isDone() || len(r.rest) != 0 {
		return false, fmt.Errorf("wireproto: expected a decimal integer")
	}
	return r.value != 0, nil
}

// commaValues implements the `commavalues` helper (spec §4.4): empty
// input decodes to an empty list, otherwise it is comma-split.
func commaValues(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	parts := bytes.Split(raw, []byte(","))
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

// --- command table -----------------------------------------------------------

// commandSpec is one dispatch-table entry (spec §4.4): a declared
// arity (used only by the keyed decoder; the batch-escaped decoder
// ignores it per §4.3) and a constructor from the decoded ParamMap to
// the typed request, shared verbatim between the normal and batch
// dispatch paths (spec §4.6).
type commandSpec struct {
	arity     int
	construct func(ParamMap) (SingleRequest, error)
}

var commandTable = map[string]commandSpec{
	"between": {
		arity: 1,
		construct: func(p ParamMap) (SingleRequest, error) {
			raw, err := requireParam(p, "between", "pairs")
			if err != nil {
				return nil, err
			}
			pairs, err := parsePairList("between", "pairs", raw)
			if err != nil {
				return nil, err
			}
			return BetweenRequest{Pairs: pairs}, nil
		},
	},
	"branchmap": {
		arity:     0,
		construct: func(ParamMap) (SingleRequest, error) { return BranchmapRequest{}, nil },
	},
	"capabilities": {
		arity:     0,
		construct: func(ParamMap) (SingleRequest, error) { return CapabilitiesRequest{}, nil },
	},
	"debugwireargs": {
		arity: 2, // + implicit star, see arityForCommand
		construct: func(p ParamMap) (SingleRequest, error) {
			oneRaw, err := requireParam(p, "debugwireargs", "one")
			if err != nil {
				return nil, err
			}
			twoRaw, err := requireParam(p, "debugwireargs", "two")
			if err != nil {
				return nil, err
			}
			one, err := parseAlphanumField("debugwireargs", "one", oneRaw)
			if err != nil {
				return nil, err
			}
			two, err := parseAlphanumField("debugwireargs", "two", twoRaw)
			if err != nil {
				return nil, err
			}
			return DebugwireargsRequest{One: one, Two: two, Params: p}, nil
		},
	},
	"getbundle": {
		arity: 0, // + implicit star
		construct: func(p ParamMap) (SingleRequest, error) {
			req := GetbundleRequest{Bundlecaps: BundleCaps{}}

			if raw, ok := optionalParam(p, "heads"); ok {
				heads, err := parseHashList("getbundle", "heads", raw)
				if err != nil {
					return nil, err
				}
				req.Heads = heads
			}
			if raw, ok := optionalParam(p, "common"); ok {
				common, err := parseHashList("getbundle", "common", raw)
				if err != nil {
					return nil, err
				}
				req.Common = common
			}
			if raw, ok := optionalParam(p, "bundlecaps"); ok {
				caps, err := parseBundleCaps(raw)
				if err != nil {
					return nil, &ParamInvalid{Command: "getbundle", Key: "bundlecaps", Reason: err.Error()}
				}
				req.Bundlecaps = caps
			}
			if raw, ok := optionalParam(p, "listkeys"); ok {
				req.Listkeys = commaValues(raw)
			}
			if raw, ok := optionalParam(p, "phases"); ok {
				b, err := parseBoolean(raw)
				if err != nil {
					return nil, &ParamInvalid{Command: "getbundle", Key: "phases", Reason: err.Error()}
				}
				req.Phases = b
			}

			return req, nil
		},
	},
	"heads": {
		arity:     0,
		construct: func(ParamMap) (SingleRequest, error) { return HeadsRequest{}, nil },
	},
	"hello": {
		arity:     0,
		construct: func(ParamMap) (SingleRequest, error) { return HelloRequest{}, nil },
	},
	"listkeys": {
		arity: 1,
		construct: func(p ParamMap) (SingleRequest, error) {
			raw, err := requireParam(p, "listkeys", "namespace")
			if err != nil {
				return nil, err
			}
			ns, err := parseAlphanumField("listkeys", "namespace", raw)
			if err != nil {
				return nil, err
			}
			return ListkeysRequest{Namespace: ns}, nil
		},
	},
	"lookup": {
		arity: 1,
		construct: func(p ParamMap) (SingleRequest, error) {
			raw, err := requireParam(p, "lookup", "key")
			if err != nil {
				return nil, err
			}
			return LookupRequest{Key: string(raw)}, nil
		},
	},
	"known": {
		arity: 1, // nodes + implicit star
		construct: func(p ParamMap) (SingleRequest, error) {
			raw, err := requireParam(p, "known", "nodes")
			if err != nil {
				return nil, err
			}
			nodes, err := parseHashList("known", "nodes", raw)
			if err != nil {
				return nil, err
			}
			return KnownRequest{Nodes: nodes}, nil
		},
	},
	"unbundle": {
		arity: 1,
		construct: func(p ParamMap) (SingleRequest, error) {
			raw, err := requireParam(p, "unbundle", "heads")
			if err != nil {
				return nil, err
			}
			var heads []string
			if len(raw) > 0 {
				for _, tok := range bytes.Split(raw, []byte(" ")) {
					for _, b := range tok {
						if !isAlnum(b) {
							return nil, &ParamInvalid{Command: "unbundle", Key: "heads", Reason: fmt.Sprintf("non-alphanumeric byte in head token %q", tok)}
						}
					}
					heads = append(heads, string(tok))
				}
			}
			return UnbundleRequest{Heads: heads}, nil
		},
	},
	"gettreepack": {
		arity: 0, // + implicit star
		construct: func(p ParamMap) (SingleRequest, error) {
			var req GettreepackRequest

			rootdir, err := requireParam(p, "gettreepack", "rootdir")
			if err != nil {
				return nil, err
			}
			req.Rootdir = rootdir

			mfRaw, err := requireParam(p, "gettreepack", "mfnodes")
			if err != nil {
				return nil, err
			}
			mfnodes, err := parseHashList("gettreepack", "mfnodes", mfRaw)
			if err != nil {
				return nil, err
			}
			req.Mfnodes = mfnodes

			baseRaw, err := requireParam(p, "gettreepack", "basemfnodes")
			if err != nil {
				return nil, err
			}
			basemfnodes, err := parseHashList("gettreepack", "basemfnodes", baseRaw)
			if err != nil {
				return nil, err
			}
			req.Basemfnodes = basemfnodes

			dirsRaw, err := requireParam(p, "gettreepack", "directories")
			if err != nil {
				return nil, err
			}
			for _, entry := range commaValues(dirsRaw) {
				if len(entry) == 0 {
					return nil, &ParamInvalid{Command: "gettreepack", Key: "directories", Reason: "empty directory entry"}
				}
				decoded, err := unescapeBatch([]byte(entry))
				if err != nil {
					return nil, &ParamInvalid{Command: "gettreepack", Key: "directories", Reason: err.Error()}
				}
				req.Directories = append(req.Directories, decoded)
			}

			if raw, ok := optionalParam(p, "depth"); ok {
				r := integerComplete(raw)
				if !r.isDone() || len(r.rest) != 0 {
					return nil, &ParamInvalid{Command: "gettreepack", Key: "depth", Reason: "not a decimal integer"}
				}
				d := r.value
				req.Depth = &d
			}
			return req, nil
		},
	},
	"getfiles": {
		arity:     0,
		construct: func(ParamMap) (SingleRequest, error) { return GetfilesRequest{}, nil },
	},
	"stream_out_shallow": {
		arity: 0, // + implicit star
		construct: func(p ParamMap) (SingleRequest, error) {
			return StreamOutShallowRequest{Params: p}, nil
		},
	},
}

// arityForCommand returns the declared keyed-decoder arity, adding the
// implicit +1 for commands whose table entry in spec §4.4 is written
// with a trailing "*" (the star block itself always counts as one
// slot, spec §4.4/§9, regardless of the table's base arity).
func arityForCommand(name string) (int, bool) {
	spec, ok := commandTable[name]
	if !ok {
		return 0, false
	}
	arity := spec.arity
	if hasImplicitStar[name] {
		arity++
	}
	return arity, true
}

var hasImplicitStar = map[string]bool{
	"debugwireargs":      true,
	"getbundle":          true,
	"known":              true,
	"gettreepack":        true,
	"stream_out_shallow": true,
}
