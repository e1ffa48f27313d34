package wireproto

import "fmt"

// ParamMap is the decoded keyed-parameter set for one command (spec
// §3). Keys are unique; when a key repeats (e.g. across a star block
// and a following plain param) the later occurrence wins, per spec
// §4.2 and §9's "duplicate keys" design note.
type ParamMap map[string][]byte

func (m ParamMap) merge(other ParamMap) {
	for k, v := range other {
		m[k] = v
	}
}

// parseParamEntry parses one "slot" counted against the declared
// arity: either a star block (§4.2 param_star) or a single keyed
// param (§4.2 param_kv). A star block always contributes exactly one
// slot regardless of its own nested count (spec §4.4/§9).
func parseParamEntry(input []byte) result[ParamMap] {
	star := parseParamStar(input)
	if !star.isError() {
		return star
	}
	return parseParamKV(input)
}

// parseKeyedParams decodes exactly arity slots from input (spec §4.2).
func parseKeyedParams(input []byte, arity int) result[ParamMap] {
	merged := ParamMap{}
	rest := input

	for i := 0; i < arity; i++ {
		r := parseParamEntry(rest)
		switch {
		case r.isIncomplete():
			return incomplete[ParamMap]()
		case r.isError():
			return errResult[ParamMap](r.err)
		}
		merged.merge(r.value)
		rest = r.rest
	}

	return done(rest, merged)
}

var starPrefix = []byte("* ")

// parseParamStar parses `"* " <count> "\n"` followed by count nested
// entries (spec §4.2). Once the literal "* " prefix matches, every
// subsequent failure is a hard error: the grammar has committed to a
// star block and there is no zero-byte-consumed alternative left to
// backtrack to.
func parseParamStar(input []byte) result[ParamMap] {
	lit := literal(input, starPrefix)
	if !lit.isDone() {
		return result[ParamMap]{status: lit.status, err: lit.err}
	}

	count := integer(lit.rest)
	switch {
	case count.isIncomplete():
		return incomplete[ParamMap]()
	case count.isError():
		return errResult[ParamMap](fmt.Errorf("wireproto: star block: %w", count.err))
	}

	nl := literal(count.rest, []byte("\n"))
	switch {
	case nl.isIncomplete():
		return incomplete[ParamMap]()
	case nl.isError():
		return errResult[ParamMap](fmt.Errorf("wireproto: star block: expected newline after count"))
	}

	merged := ParamMap{}
	rest := nl.rest
	k := int(count.value)
	for i := 0; i < k; i++ {
		entry := parseParamEntry(rest)
		switch {
		case entry.isIncomplete():
			return incomplete[ParamMap]()
		case entry.isError():
			return errResult[ParamMap](fmt.Errorf("wireproto: star block: nested param %d: %w", i, entry.err))
		}
		merged.merge(entry.value)
		rest = entry.rest
	}

	return done(rest, merged)
}

// parseParamKV parses `<ident> " " <len> "\n" <len bytes>` (spec §4.2).
func parseParamKV(input []byte) result[ParamMap] {
	key := identAlphanum(input)
	switch {
	case key.isIncomplete():
		return incomplete[ParamMap]()
	case key.isError():
		return errResult[ParamMap](fmt.Errorf("wireproto: expected parameter name: %w", key.err))
	}

	sp := literal(key.rest, []byte(" "))
	switch {
	case sp.isIncomplete():
		return incomplete[ParamMap]()
	case sp.isError():
		return errResult[ParamMap](fmt.Errorf("wireproto: expected space after parameter name %q", key.value))
	}

	length := integer(sp.rest)
	switch {
	case length.isIncomplete():
		return incomplete[ParamMap]()
	case length.isError():
		return errResult[ParamMap](fmt.Errorf("wireproto: parameter %q: %w", key.value, length.err))
	}

	nl := literal(length.rest, []byte("\n"))
	switch {
	case nl.isIncomplete():
		return incomplete[ParamMap]()
	case nl.isError():
		return errResult[ParamMap](fmt.Errorf("wireproto: parameter %q: expected newline after length", key.value))
	}

	val := take(nl.rest, int(length.value))
	if val.isIncomplete() {
		return incomplete[ParamMap]()
	}

	return done(val.rest, ParamMap{string(key.value): val.value})
}
