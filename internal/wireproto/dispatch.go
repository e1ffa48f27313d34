package wireproto

import "fmt"

// This file implements command dispatch (spec §4.4) and the batch
// envelope (spec §4.6): turning a command name plus a decoded
// ParamMap into a typed SingleRequest, and turning a whole buffer into
// either a Single or a Batch.

// parseSingleRequest parses `<name>\n` followed by that command's
// keyed params (with the table's declared arity) and constructs the
// typed request.
func parseSingleRequest(input []byte) result[Single] {
	name := takeUntil(input, '\n')
	switch {
	case name.isIncomplete():
		return incomplete[Single]()
	case name.isError():
		return errResult[Single](fmt.Errorf("wireproto: expected command name: %w", name.err))
	}

	cmdName := string(name.value)
	spec, ok := commandTable[cmdName]
	if !ok {
		return errResult[Single](fmt.Errorf("wireproto: unknown command %q", cmdName))
	}

	nl := literal(name.rest, []byte("\n"))
	switch {
	case nl.isIncomplete():
		return incomplete[Single]()
	case nl.isError():
		return errResult[Single](fmt.Errorf("wireproto: expected newline after command name %q", cmdName))
	}

	arity, _ := arityForCommand(cmdName)
	params := parseKeyedParams(nl.rest, arity)
	switch {
	case params.isIncomplete():
		return incomplete[Single]()
	case params.isError():
		return errResult[Single](fmt.Errorf("wireproto: command %q: %w", cmdName, params.err))
	}

	req, err := spec.construct(params.value)
	if err != nil {
		return errResult[Single](err)
	}

	return done(params.rest, Single{Req: req})
}

// parseBatchRequest parses the `batch` envelope (spec §4.6):
// `batch\n* <k>\ncmds <len>\n<body>`. The envelope itself is a
// star-based command with one named field, `cmds`; it is parsed with
// the ordinary keyed decoder like any other command, not the
// batch-escaped one — only each sub-command's args use that decoder.
func parseBatchRequest(input []byte) result[Batch] {
	name := literal(input, []byte("batch\n"))
	switch {
	case name.isIncomplete():
		return incomplete[Batch]()
	case name.isError():
		return errResult[Batch](name.err)
	}

	// batch has one named field (`cmds`) plus the implicit star,
	// matching scenario 3 (spec §8): "batch\n* 0\ncmds 19\n..." parses
	// the star block as one slot (here with zero nested entries) and
	// `cmds` itself as the second slot, exactly like `known`'s
	// "1 named + star" shape (spec §4.4, §9).
	params := parseKeyedParams(name.rest, 2)
	switch {
	case params.isIncomplete():
		return incomplete[Batch]()
	case params.isError():
		return errResult[Batch](fmt.Errorf("wireproto: batch: %w", params.err))
	}

	body, ok := params.value["cmds"]
	if !ok {
		return errResult[Batch](&ParamMissing{Command: "batch", Key: "cmds"})
	}

	reqs, err := parseBatchBody(body)
	if err != nil {
		return errResult[Batch](err)
	}

	return done(params.rest, Batch{Reqs: reqs})
}

// parseBatchBody decodes a cmds body into an ordered list of
// SingleRequests, reusing the command table's construct functions with
// the batch-escaped decoder in place of the keyed one (spec §4.6). A
// sub-command error aborts the whole batch.
func parseBatchBody(body []byte) ([]SingleRequest, error) {
	var reqs []SingleRequest
	for _, sub := range splitBatchCommands(body) {
		name := string(sub.name)
		spec, ok := commandTable[name]
		if !ok {
			return nil, fmt.Errorf("wireproto: batch: unknown sub-command %q", name)
		}

		params, err := parseBatchEscapedParams(sub.args)
		if err != nil {
			return nil, fmt.Errorf("wireproto: batch: sub-command %q: %w", name, err)
		}

		req, err := spec.construct(params)
		if err != nil {
			return nil, fmt.Errorf("wireproto: batch: sub-command %q: %w", name, err)
		}

		reqs = append(reqs, req)
	}

	return reqs, nil
}
